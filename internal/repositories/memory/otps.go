package memory

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendwise/internal/models"
	"spendwise/internal/repositories"
)

type otpRepository struct {
	s *Store
}

func (r *otpRepository) Create(ctx context.Context, otp *models.OTP) (*models.OTP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	otp.ID = primitive.NewObjectID()
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}
	stored := *otp
	r.s.otps[stored.ID] = &stored
	return otp, nil
}

func (r *otpRepository) FindValid(ctx context.Context, userID primitive.ObjectID, code, purpose string, now time.Time) (*models.OTP, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, otp := range r.s.otps {
		if otp.UserID == userID && otp.OTPCode == code && otp.Purpose == purpose && otp.Redeemable(now) {
			found := *otp
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *otpRepository) MarkAsUsed(ctx context.Context, otpID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	otp, ok := r.s.otps[otpID]
	if !ok || otp.IsUsed {
		return repositories.ErrNotFound
	}
	otp.IsUsed = true
	return nil
}

func (r *otpRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	for id, otp := range r.s.otps {
		if otp.ExpiresAt.Before(now) {
			delete(r.s.otps, id)
			deleted++
		}
	}
	return deleted, nil
}
