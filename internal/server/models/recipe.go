// Package models defines server-side data models persisted in the database.
package models

import "time"

// Recipe is a single catalog entry.
type Recipe struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Ingredients  []string  `json:"ingredients"`
	Instructions []string  `json:"instructions"`
	// ImageRef is the storage key of the recipe image; nil means no image.
	ImageRef *string `json:"imageRef"`
	Rating   int     `json:"rating"`
	// Deletable is true when the recipe exclusively owns ImageRef and may
	// delete the blob. It is false for the shared placeholder image.
	Deletable bool      `json:"deletable"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewRecipe carries the fields accepted on create. Deletable defaults to
// true and ImageRef to nil when omitted.
type NewRecipe struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	ImageRef     *string  `json:"imageRef,omitempty"`
	Rating       int      `json:"rating"`
	Deletable    *bool    `json:"deletable,omitempty"`
}

// RecipePatch is a partial update; nil fields are left untouched.
// An ImageRef of "" removes the image.
type RecipePatch struct {
	Title        *string   `json:"title,omitempty"`
	Ingredients  *[]string `json:"ingredients,omitempty"`
	Instructions *[]string `json:"instructions,omitempty"`
	ImageRef     *string   `json:"imageRef,omitempty"`
	Rating       *int      `json:"rating,omitempty"`
	Deletable    *bool     `json:"deletable,omitempty"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (p RecipePatch) IsEmpty() bool {
	return p.Title == nil && p.Ingredients == nil && p.Instructions == nil &&
		p.ImageRef == nil && p.Rating == nil && p.Deletable == nil
}

// Apply copies the present patch fields onto r.
func (p RecipePatch) Apply(r *Recipe) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Ingredients != nil {
		r.Ingredients = *p.Ingredients
	}
	if p.Instructions != nil {
		r.Instructions = *p.Instructions
	}
	if p.ImageRef != nil {
		if *p.ImageRef == "" {
			r.ImageRef = nil
		} else {
			ref := *p.ImageRef
			r.ImageRef = &ref
		}
	}
	if p.Rating != nil {
		r.Rating = *p.Rating
	}
	if p.Deletable != nil {
		r.Deletable = *p.Deletable
	}
}
