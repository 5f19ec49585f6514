package recipes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
)

const (
	ingredientSeparator  = ","
	instructionSeparator = ";"
)

// ParseForm turns the raw text fields of the add-recipe form into a NewRecipe.
// Ingredients are comma separated and instructions semicolon separated; blank
// items are dropped.
func ParseForm(title, ingredients, instructions, rating string) (models.NewRecipe, error) {
	n, err := strconv.Atoi(strings.TrimSpace(rating))
	if err != nil {
		return models.NewRecipe{}, fmt.Errorf("rating %q: %w", rating, common.ErrorValidation)
	}

	return models.NewRecipe{
		Title:        strings.TrimSpace(title),
		Ingredients:  splitItems(ingredients, ingredientSeparator),
		Instructions: splitItems(instructions, instructionSeparator),
		Rating:       n,
	}, nil
}

func splitItems(s, sep string) []string {
	items := []string{}
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
