package recipes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/dbx"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLRepository implements recipe storage over a dbx.DBTX (*sql.DB or *sql.Tx).
// The statements use $n placeholders and TEXT-encoded JSON lists, so the same
// code runs on PostgreSQL (pgx) and SQLite (modernc).
type SQLRepository struct {
	db dbx.DBTX
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

const selectColumns = `id, title, ingredients, instructions, image_ref, rating, deletable, created_at, updated_at`

// Insert stores a new recipe. recipe.ID must already be assigned.
func (r *SQLRepository) Insert(ctx context.Context, recipe *models.Recipe) error {
	ingredients, err := encodeLines(recipe.Ingredients)
	if err != nil {
		return err
	}
	instructions, err := encodeLines(recipe.Instructions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO recipes (id, title, ingredients, instructions, image_ref, rating, deletable, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		recipe.ID, recipe.Title, ingredients, instructions, nullString(recipe.ImageRef),
		recipe.Rating, recipe.Deletable, recipe.CreatedAt, recipe.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert recipe: %w", common.ErrorImageInUse)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns the recipe with the given id or common.ErrorNotFound.
func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Recipe, error) {
	query := `SELECT ` + selectColumns + ` FROM recipes WHERE id=$1`

	recipe, err := scanRecipe(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select recipe: %w", err)
	}
	return recipe, nil
}

// Query returns all recipes, oldest first.
func (r *SQLRepository) Query(ctx context.Context) ([]*models.Recipe, error) {
	query := `SELECT ` + selectColumns + ` FROM recipes ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select recipes: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Recipe, 0)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Patch writes only the fields present in patch, plus updated_at.
// Exactly one row must be affected.
func (r *SQLRepository) Patch(ctx context.Context, id string, patch models.RecipePatch, updatedAt time.Time) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, column+"=$"+strconv.Itoa(len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Ingredients != nil {
		v, err := encodeLines(*patch.Ingredients)
		if err != nil {
			return err
		}
		add("ingredients", v)
	}
	if patch.Instructions != nil {
		v, err := encodeLines(*patch.Instructions)
		if err != nil {
			return err
		}
		add("instructions", v)
	}
	if patch.ImageRef != nil {
		// "" clears the image
		add("image_ref", sql.NullString{String: *patch.ImageRef, Valid: *patch.ImageRef != ""})
	}
	if patch.Rating != nil {
		add("rating", *patch.Rating)
	}
	if patch.Deletable != nil {
		add("deletable", *patch.Deletable)
	}
	add("updated_at", updatedAt)

	args = append(args, id)
	query := `UPDATE recipes SET ` + strings.Join(sets, ", ") + ` WHERE id=$` + strconv.Itoa(len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("patch recipe: %w", common.ErrorImageInUse)
		}
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

// Delete removes the recipe row. A missing id yields common.ErrorNotFound.
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *SQLRepository) CountByImageRef(ctx context.Context, ref string, excludeID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipes WHERE image_ref=$1 AND id<>$2`, ref, excludeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count image references: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) CountOwnedByImageRef(ctx context.Context, ref string, excludeID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipes WHERE image_ref=$1 AND id<>$2 AND deletable`, ref, excludeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count image owners: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (*models.Recipe, error) {
	var (
		recipe       models.Recipe
		ingredients  string
		instructions string
		imageRef     sql.NullString
	)
	if err := row.Scan(&recipe.ID, &recipe.Title, &ingredients, &instructions, &imageRef,
		&recipe.Rating, &recipe.Deletable, &recipe.CreatedAt, &recipe.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if recipe.Ingredients, err = decodeLines(ingredients); err != nil {
		return nil, fmt.Errorf("decode ingredients of %s: %w", recipe.ID, err)
	}
	if recipe.Instructions, err = decodeLines(instructions); err != nil {
		return nil, fmt.Errorf("decode instructions of %s: %w", recipe.ID, err)
	}
	if imageRef.Valid {
		ref := imageRef.String
		recipe.ImageRef = &ref
	}
	return &recipe, nil
}

func encodeLines(lines []string) (string, error) {
	if lines == nil {
		lines = []string{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("encode lines: %w", err)
	}
	return string(b), nil
}

func decodeLines(s string) ([]string, error) {
	lines := []string{}
	if s == "" {
		return lines, nil
	}
	if err := json.Unmarshal([]byte(s), &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// isUniqueViolation matches pgx's SQLSTATE 23505 and SQLite's constraint text.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
