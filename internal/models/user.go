package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the identity root. Expenses and categories live inside the user
// document and are never shared between users.
type User struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Username      string             `json:"username,omitempty" bson:"username,omitempty"`
	Email         string             `json:"email,omitempty" bson:"email,omitempty"`
	DisplayName   string             `json:"display_name,omitempty" bson:"display_name,omitempty"`
	Password      string             `json:"-" bson:"password"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	RevokedTokens []string           `json:"-" bson:"revoked_tokens"`
	Categories    []Category         `json:"categories" bson:"categories"`
	Expenses      []Expense          `json:"-" bson:"expenses"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type AvailabilityRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AvailabilityResponse struct {
	Exist bool `json:"exist"`
}
