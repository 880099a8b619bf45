package models

import "time"

// Expense is a single transaction embedded in its owner's user document.
// The ID is unique within the owner's expense list only.
type Expense struct {
	ID          string    `json:"_id" bson:"_id"`
	Amount      float64   `json:"amount" bson:"amount"`
	Category    string    `json:"category" bson:"category"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Date        time.Time `json:"date" bson:"date"`
}

type AddExpenseRequest struct {
	ID          string   `json:"_id,omitempty"`
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Date        string   `json:"date,omitempty"`
}

type DeleteExpenseRequest struct {
	ID string `json:"_id"`
}

type ExpenseList struct {
	Expenses []Expense `json:"expenses"`
}
