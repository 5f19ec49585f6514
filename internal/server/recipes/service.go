// Package recipes implements the Recipe Store: CRUD over recipe records plus
// the image ownership rules tying records to blobs in object storage.
package recipes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/dbx"
	"github.com/dmitrijs2005/recipebox/internal/logging"
	sc "github.com/dmitrijs2005/recipebox/internal/server/config"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	reciperepo "github.com/dmitrijs2005/recipebox/internal/server/repositories/recipes"
	"github.com/dmitrijs2005/recipebox/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ImageManager is the part of images.Manager the store depends on.
type ImageManager interface {
	Attach(ctx context.Context, file *models.ImageFile) (string, bool, error)
	DeleteBlob(ctx context.Context, ref string) error
	IsPlaceholder(ref string) bool
}

type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	images      ImageManager
	permissive  bool
	logger      logging.Logger

	now   func() time.Time
	newID func() string
}

func NewService(db *sql.DB, m repomanager.RepositoryManager, images ImageManager, cfg *sc.Config, logger logging.Logger) *Service {
	return &Service{
		db:          db,
		repomanager: m,
		images:      images,
		permissive:  cfg.PermissiveValidation,
		logger:      logger.With("module", "recipes"),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.New().String() },
	}
}

// Create stores a new recipe. Deletable defaults to true and a missing or
// empty ImageRef means no image.
func (s *Service) Create(ctx context.Context, in models.NewRecipe) (*models.Recipe, error) {
	now := s.now()
	r := &models.Recipe{
		ID:           s.newID(),
		Title:        in.Title,
		Ingredients:  orEmpty(in.Ingredients),
		Instructions: orEmpty(in.Instructions),
		Rating:       in.Rating,
		Deletable:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.ImageRef != nil && *in.ImageRef != "" {
		ref := *in.ImageRef
		r.ImageRef = &ref
	}
	if in.Deletable != nil {
		r.Deletable = *in.Deletable
	}

	if !s.permissive {
		if err := validateRecipe(r); err != nil {
			return nil, err
		}
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Recipes(tx)
		if err := s.checkOwnership(ctx, repo, r); err != nil {
			return err
		}
		return repo.Insert(ctx, r)
	})
	if err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	s.logger.Info(ctx, "recipe created", "id", r.ID, "deletable", r.Deletable)
	return r, nil
}

// List returns every stored recipe.
func (s *Service) List(ctx context.Context) ([]*models.Recipe, error) {
	list, err := s.repomanager.Recipes(s.db).Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return list, nil
}

// GetByID returns the recipe with id. An empty id yields (nil, nil) without
// a lookup.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Recipe, error) {
	if id == "" {
		return nil, nil
	}
	r, err := s.repomanager.Recipes(s.db).Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get recipe %s: %w", id, err)
	}
	return r, nil
}

// Update applies patch to the recipe. When the image changes and the recipe
// owned the previous one, the previous blob is deleted once the record is
// committed. The new image is never deleted.
func (s *Service) Update(ctx context.Context, id string, patch models.RecipePatch) (*models.Recipe, error) {
	if id == "" {
		return nil, fmt.Errorf("update recipe: %w", common.ErrorNotFound)
	}
	if !s.permissive {
		if err := validatePatch(patch); err != nil {
			return nil, err
		}
	}

	var (
		updated *models.Recipe
		oldRef  string
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Recipes(tx)

		cur, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			updated = cur
			return nil
		}

		next := *cur
		patch.Apply(&next)

		refChanged := patch.ImageRef != nil && !sameRef(cur.ImageRef, next.ImageRef)
		if refChanged && patch.Deletable == nil {
			next.Deletable = next.ImageRef == nil || !s.images.IsPlaceholder(*next.ImageRef)
			patch.Deletable = &next.Deletable
		}

		if patch.ImageRef != nil || patch.Deletable != nil {
			if err := s.checkOwnership(ctx, repo, &next); err != nil {
				return err
			}
		}

		next.UpdatedAt = s.now()
		if err := repo.Patch(ctx, id, patch, next.UpdatedAt); err != nil {
			return err
		}
		if refChanged && cur.Deletable && cur.ImageRef != nil {
			oldRef = *cur.ImageRef
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update recipe %s: %w", id, err)
	}

	// the record no longer references oldRef, so a failure only orphans the blob
	if oldRef != "" {
		if err := s.images.DeleteBlob(ctx, oldRef); err != nil {
			s.logger.Error(ctx, "orphaned previous image", "id", id, "ref", oldRef, "error", err)
		}
	}

	s.logger.Info(ctx, "recipe updated", "id", id)
	return updated, nil
}

// Delete removes the recipe and, when it owns its image, the image blob.
// If the blob cannot be removed the record is kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete recipe: %w", common.ErrorNotFound)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Recipes(tx)

		cur, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if cur.Deletable && cur.ImageRef != nil {
			if err := s.images.DeleteBlob(ctx, *cur.ImageRef); err != nil {
				return fmt.Errorf("delete image: %w", err)
			}
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete recipe %s: %w", id, err)
	}

	s.logger.Info(ctx, "recipe deleted", "id", id)
	return nil
}

// Submit is the one-request form flow: the image (or the shared placeholder)
// is stored first, then the record. An owned upload is removed again when the
// record cannot be created.
func (s *Service) Submit(ctx context.Context, in models.NewRecipe, file *models.ImageFile) (*models.Recipe, error) {
	if !s.permissive {
		if err := validateNew(in); err != nil {
			return nil, err
		}
	}

	ref, deletable, err := s.images.Attach(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("attach image: %w", err)
	}
	in.ImageRef = &ref
	in.Deletable = &deletable

	r, err := s.Create(ctx, in)
	if err != nil {
		if deletable {
			if delErr := s.images.DeleteBlob(ctx, ref); delErr != nil {
				s.logger.Error(ctx, "orphaned upload", "ref", ref, "error", delErr)
			}
		}
		return nil, err
	}
	return r, nil
}

// checkOwnership enforces that an owned image belongs to exactly one recipe
// and that the shared placeholder is never owned. A ref owned by another
// recipe cannot be referenced at all, shared or not.
func (s *Service) checkOwnership(ctx context.Context, repo reciperepo.Repository, r *models.Recipe) error {
	if r.ImageRef == nil {
		return nil
	}

	owners, err := repo.CountOwnedByImageRef(ctx, *r.ImageRef, r.ID)
	if err != nil {
		return err
	}
	if owners > 0 {
		return common.ErrorImageInUse
	}

	if !r.Deletable {
		return nil
	}
	if s.images.IsPlaceholder(*r.ImageRef) {
		return common.ErrorOwnership
	}

	n, err := repo.CountByImageRef(ctx, *r.ImageRef, r.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return common.ErrorImageInUse
	}
	return nil
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func orEmpty(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
