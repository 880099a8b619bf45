package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OTP is a single-use code mailed to a user. The code itself never leaves
// the server in a response.
type OTP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	OTPCode   string             `bson:"otp_code" json:"-"`
	Purpose   string             `bson:"purpose" json:"purpose"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expires_at"`
	IsUsed    bool               `bson:"is_used" json:"is_used"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Redeemable reports whether the code can still be used at now.
func (o *OTP) Redeemable(now time.Time) bool {
	return !o.IsUsed && o.ExpiresAt.After(now)
}
