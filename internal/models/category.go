package models

import "time"

// Category is a user-defined label. Names are not required to be unique.
type Category struct {
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"date" bson:"date"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type CategoryList struct {
	Categories []Category `json:"categories"`
}

var defaultCategoryNames = []string{
	"Food",
	"Transport",
	"Housing",
	"Utilities",
	"Health",
	"Entertainment",
	"Shopping",
	"Other",
}

// DefaultCategories returns the set seeded into every new user.
func DefaultCategories(now time.Time) []Category {
	categories := make([]Category, 0, len(defaultCategoryNames))
	for _, name := range defaultCategoryNames {
		categories = append(categories, Category{Name: name, CreatedAt: now})
	}
	return categories
}
