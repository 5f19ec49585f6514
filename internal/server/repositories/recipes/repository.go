package recipes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/server/models"
)

// Repository is the record boundary of the Recipe Store. Every method is a
// single-record operation; there are no batch writes.
type Repository interface {
	Insert(ctx context.Context, recipe *models.Recipe) error
	Get(ctx context.Context, id string) (*models.Recipe, error)
	Query(ctx context.Context) ([]*models.Recipe, error)
	Patch(ctx context.Context, id string, patch models.RecipePatch, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	// CountByImageRef counts recipes other than excludeID that reference ref.
	CountByImageRef(ctx context.Context, ref string, excludeID string) (int, error)
	// CountOwnedByImageRef counts recipes other than excludeID that own ref
	// (deletable = true).
	CountOwnedByImageRef(ctx context.Context, ref string, excludeID string) (int, error)
}
