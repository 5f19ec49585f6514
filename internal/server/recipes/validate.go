package recipes

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
)

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required: %w", common.ErrorValidation)
	}
	return nil
}

func validateRating(rating int) error {
	if rating < common.MinRating || rating > common.MaxRating {
		return fmt.Errorf("rating %d out of range %d..%d: %w", rating, common.MinRating, common.MaxRating, common.ErrorValidation)
	}
	return nil
}

func validateRecipe(r *models.Recipe) error {
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	return validateRating(r.Rating)
}

func validateNew(in models.NewRecipe) error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	return validateRating(in.Rating)
}

// validatePatch checks only the fields the patch carries.
func validatePatch(p models.RecipePatch) error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Rating != nil {
		return validateRating(*p.Rating)
	}
	return nil
}
