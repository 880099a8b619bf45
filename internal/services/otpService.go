package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"spendwise/internal/apperror"
	"spendwise/internal/models"
	"spendwise/internal/repositories"
	"spendwise/internal/utils"
)

const (
	OTPExpirationMinutes    = 10
	OTPLength               = 6
	OTPPurposeResetPassword = "reset_password"
)

type OTPService interface {
	// RequestPasswordReset mails a one-time code when the email belongs to an
	// account. Unknown emails succeed silently.
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type otpService struct {
	userRepo     repositories.UserRepository
	otpRepo      repositories.OTPRepository
	emailService EmailService
	now          func() time.Time
}

func NewOTPService(userRepo repositories.UserRepository, otpRepo repositories.OTPRepository, emailService EmailService) OTPService {
	return &otpService{userRepo: userRepo, otpRepo: otpRepo, emailService: emailService, now: time.Now}
}

func (s *otpService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperror.NewValidationError("email is required", nil)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Warn().Str("email", email).Msg("Password reset requested for unknown email")
			return nil
		}
		return apperror.NewDatabaseError("failed to look up user", err)
	}

	otpCode, err := utils.GenerateSecureOTP(OTPLength)
	if err != nil {
		return apperror.NewInternalError("failed to generate otp", err)
	}

	now := s.now().UTC()
	otp := &models.OTP{
		UserID:    user.ID,
		OTPCode:   otpCode,
		Purpose:   OTPPurposeResetPassword,
		ExpiresAt: now.Add(OTPExpirationMinutes * time.Minute),
		CreatedAt: now,
	}
	if _, err := s.otpRepo.Create(ctx, otp); err != nil {
		return apperror.NewDatabaseError("failed to store otp", err)
	}

	subject := "Your Password Reset OTP"
	body := fmt.Sprintf("Your OTP for password reset is: %s. It expires in %d minutes.", otpCode, OTPExpirationMinutes)
	if err := s.emailService.SendEmail(email, subject, body); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("Failed to send password reset email")
		return err
	}

	log.Info().Str("user_id", user.ID.Hex()).Msg("Password reset OTP sent")
	return nil
}

func (s *otpService) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.OTP == "" || req.NewPassword == "" {
		return apperror.NewValidationError("email, otp and new_password are required", nil)
	}

	invalid := apperror.NewValidationError("invalid or expired OTP", nil)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return invalid
		}
		return apperror.NewDatabaseError("failed to look up user", err)
	}

	otp, err := s.otpRepo.FindValid(ctx, user.ID, req.OTP, OTPPurposeResetPassword, s.now().UTC())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Warn().Str("user_id", user.ID.Hex()).Msg("Invalid or expired OTP presented")
			return invalid
		}
		return apperror.NewDatabaseError("failed to verify otp", err)
	}

	// Claiming the code first means a concurrent second redemption fails.
	if err := s.otpRepo.MarkAsUsed(ctx, otp.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return invalid
		}
		return apperror.NewDatabaseError("failed to redeem otp", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return apperror.NewInternalError("failed to hash password", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return storeError(err, "failed to update password")
	}

	log.Info().Str("user_id", user.ID.Hex()).Msg("Password reset successfully")
	return nil
}

func (s *otpService) PurgeExpired(ctx context.Context) (int64, error) {
	deleted, err := s.otpRepo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to purge expired otps", err)
	}
	if deleted > 0 {
		log.Debug().Int64("deleted", deleted).Msg("Purged expired OTPs")
	}
	return deleted, nil
}
