package common

const (
	// MinRating and MaxRating bound Recipe.Rating.
	MinRating = 1
	MaxRating = 5

	// SkipImageRef is the display-side sentinel meaning "do not fetch".
	SkipImageRef = "skip"

	// StorageKeyPrefix is the top-level folder for all recipe images in the bucket.
	StorageKeyPrefix = "recipes"
)
