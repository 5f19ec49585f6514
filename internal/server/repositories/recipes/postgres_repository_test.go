package recipes

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewSQLRepository(db), mock, db
}

func ptr[T any](v T) *T { return &v }

var (
	insertQ = `(?s)^\s*INSERT\s+INTO\s+recipes\s+\(id, title, ingredients, instructions, image_ref, rating, deletable, created_at, updated_at\).*VALUES\s+\(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)\s*$`
	getQ    = regexp.QuoteMeta(`SELECT id, title, ingredients, instructions, image_ref, rating, deletable, created_at, updated_at FROM recipes WHERE id=$1`)
	listQ   = regexp.QuoteMeta(`SELECT id, title, ingredients, instructions, image_ref, rating, deletable, created_at, updated_at FROM recipes ORDER BY created_at, id`)
	columns = []string{"id", "title", "ingredients", "instructions", "image_ref", "rating", "deletable", "created_at", "updated_at"}
	ts      = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func TestInsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WithArgs("r1", "Soup", `["water","salt"]`, `["Boil","Add salt"]`, sql.NullString{}, 4, true, ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &models.Recipe{
		ID:           "r1",
		Title:        "Soup",
		Ingredients:  []string{"water", "salt"},
		Instructions: []string{"Boil", "Add salt"},
		Rating:       4,
		Deletable:    true,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_NilListsAndImageRef(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WithArgs("r1", "Toast", `[]`, `[]`, sql.NullString{String: "recipes/k", Valid: true}, 1, false, ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &models.Recipe{
		ID: "r1", Title: "Toast", ImageRef: ptr("recipes/k"), Rating: 1, CreatedAt: ts, UpdatedAt: ts,
	})
	require.NoError(t, err)
}

func TestInsert_UniqueViolationMapsToImageInUse(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Insert(context.Background(), &models.Recipe{ID: "r1", ImageRef: ptr("recipes/k"), Deletable: true})
	require.ErrorIs(t, err, common.ErrorImageInUse)
}

func TestInsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(errors.New("db down"))

	err := repo.Insert(context.Background(), &models.Recipe{ID: "r1"})
	require.ErrorContains(t, err, "db error: db down")
}

func TestGet_OK(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow("r1", "Soup", `["water","salt"]`, `["Boil","Add salt"]`, "recipes/k", 4, true, ts, ts)
	mock.ExpectQuery(getQ).WithArgs("r1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, &models.Recipe{
		ID:           "r1",
		Title:        "Soup",
		Ingredients:  []string{"water", "salt"},
		Instructions: []string{"Boil", "Add salt"},
		ImageRef:     ptr("recipes/k"),
		Rating:       4,
		Deletable:    true,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}, got)
}

func TestGet_NullImageRef(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).AddRow("r1", "Soup", `[]`, `[]`, nil, 3, true, ts, ts)
	mock.ExpectQuery(getQ).WithArgs("r1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Nil(t, got.ImageRef)
	assert.Equal(t, []string{}, got.Ingredients)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQ).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGet_BadJSON(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).AddRow("r1", "Soup", `not-json`, `[]`, nil, 3, true, ts, ts)
	mock.ExpectQuery(getQ).WithArgs("r1").WillReturnRows(rows)

	_, err := repo.Get(context.Background(), "r1")
	require.ErrorContains(t, err, "decode ingredients of r1")
}

func TestQuery_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow("r1", "Soup", `["water"]`, `["Boil"]`, "recipes/ph", 4, false, ts, ts).
		AddRow("r2", "Stew", `["beef"]`, `["Simmer"]`, "recipes/ph", 5, false, ts, ts)
	mock.ExpectQuery(listQ).WillReturnRows(rows)

	got, err := repo.Query(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, "r2", got[1].ID)
	assert.Equal(t, *got[0].ImageRef, *got[1].ImageRef)
}

func TestQuery_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.Query(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestQuery_QueryErr(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WillReturnError(errors.New("db err"))

	_, err := repo.Query(context.Background())
	require.ErrorContains(t, err, "failed to select recipes: db err")
}

func TestQuery_RowsErr(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow("r1", "Soup", `[]`, `[]`, nil, 4, true, ts, ts).
		AddRow("r2", "Stew", `[]`, `[]`, nil, 4, true, ts, ts).
		RowError(1, errors.New("row-err"))
	mock.ExpectQuery(listQ).WillReturnRows(rows)

	_, err := repo.Query(context.Background())
	require.EqualError(t, err, "row-err")
}

func TestPatch_TitleOnly(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE recipes SET title=$1, updated_at=$2 WHERE id=$3`)).
		WithArgs("New Title", ts, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Patch(context.Background(), "r1", models.RecipePatch{Title: ptr("New Title")}, ts)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPatch_AllFields(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `UPDATE recipes SET title=$1, ingredients=$2, instructions=$3, image_ref=$4, rating=$5, deletable=$6, updated_at=$7 WHERE id=$8`
	mock.ExpectExec(regexp.QuoteMeta(q)).
		WithArgs("T", `["a"]`, `["b"]`, "recipes/new", 2, true, ts, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Patch(context.Background(), "r1", models.RecipePatch{
		Title:        ptr("T"),
		Ingredients:  &[]string{"a"},
		Instructions: &[]string{"b"},
		ImageRef:     ptr("recipes/new"),
		Rating:       ptr(2),
		Deletable:    ptr(true),
	}, ts)
	require.NoError(t, err)
}

func TestPatch_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE recipes SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Patch(context.Background(), "nope", models.RecipePatch{Rating: ptr(3)}, ts)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPatch_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE recipes SET`).WillReturnError(errors.New("db err"))

	err := repo.Patch(context.Background(), "r1", models.RecipePatch{Rating: ptr(3)}, ts)
	require.ErrorContains(t, err, "failed to update recipe: db err")
}

func TestDelete(t *testing.T) {
	q := regexp.QuoteMeta(`DELETE FROM recipes WHERE id=$1`)

	t.Run("ok", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Delete(context.Background(), "r1"))
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 0))
		require.ErrorIs(t, repo.Delete(context.Background(), "r1"), common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WithArgs("r1").WillReturnError(errors.New("db err"))
		require.ErrorContains(t, repo.Delete(context.Background(), "r1"), "failed to delete recipe: db err")
	})
}

func TestCountByImageRef(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM recipes WHERE image_ref=$1 AND id<>$2`)).
		WithArgs("recipes/k", "r1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountByImageRef(context.Background(), "recipes/k", "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCountOwnedByImageRef(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.QuoteMeta(`SELECT COUNT(*) FROM recipes WHERE image_ref=$1 AND id<>$2 AND deletable`)
	mock.ExpectQuery(q).
		WithArgs("recipes/k", "r1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	n, err := repo.CountOwnedByImageRef(context.Background(), "recipes/k", "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mock.ExpectQuery(q).WithArgs("recipes/k", "r1").WillReturnError(errors.New("db err"))
	_, err = repo.CountOwnedByImageRef(context.Background(), "recipes/k", "r1")
	require.ErrorContains(t, err, "failed to count image owners: db err")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: recipes.image_ref (2067)")))
	assert.False(t, isUniqueViolation(errors.New("disk full")))
}
