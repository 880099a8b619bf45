package models

type SuggestCategoryRequest struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type CategorySuggestion struct {
	Category string `json:"category"`
}
