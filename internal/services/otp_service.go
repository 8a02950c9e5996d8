package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/task-tracker/internal/metrics"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/security"
	"github.com/yukikurage/task-tracker/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired OTP")
	ErrNoSession           = errors.New("no pending OTP session")
	ErrMailDelivery        = errors.New("failed to deliver OTP email")
)

// OTPService issues and verifies one-time passwords.
type OTPService struct {
	otpRepo repository.OTPRepository
	mailer  Mailer
	ttl     time.Duration
	now     func() time.Time
}

// NewOTPService creates a new OTPService. Codes expire ttl after issuance.
func NewOTPService(otpRepo repository.OTPRepository, mailer Mailer, ttl time.Duration) *OTPService {
	return &OTPService{
		otpRepo: otpRepo,
		mailer:  mailer,
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// IssueOTP replaces any code held by email with a fresh one and mails it.
func (s *OTPService) IssueOTP(ctx context.Context, email string) error {
	code, err := utils.GenerateOTPCode()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}

	hash, err := security.HashCode(code)
	if err != nil {
		return fmt.Errorf("failed to hash OTP: %w", err)
	}

	now := s.now()
	otp := &models.OTPCode{
		Email:     email,
		CodeHash:  hash,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.otpRepo.Replace(ctx, otp); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, email, code); err != nil {
		metrics.OTPEmailsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		zap.L().Error("Failed to send OTP email", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}
	metrics.OTPEmailsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	return nil
}

// VerifyOTP checks code against the one issued to pendingEmail and
// consumes it on success.
func (s *OTPService) VerifyOTP(ctx context.Context, pendingEmail, code string) (err error) {
	if pendingEmail == "" {
		return ErrNoSession
	}
	defer func() {
		metrics.OTPVerificationsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	otp, err := s.otpRepo.FindByEmail(ctx, pendingEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidOrExpiredOTP
		}
		return fmt.Errorf("failed to find OTP: %w", err)
	}

	if otp.Expired(s.now()) {
		return ErrInvalidOrExpiredOTP
	}

	ok, err := security.CodeMatches(otp.CodeHash, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("failed to compare OTP: %w", err)
	}
	if !ok {
		return ErrInvalidOrExpiredOTP
	}

	if err := s.otpRepo.Delete(ctx, otp.ID); err != nil {
		return fmt.Errorf("failed to consume OTP: %w", err)
	}

	return nil
}

// CleanupExpired deletes every code past its expiry.
func (s *OTPService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.otpRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired OTPs: %w", err)
	}
	return n, nil
}

// StartCleanup periodically removes expired codes until ctx is done. A
// non-positive interval disables the sweeper.
func (s *OTPService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	zap.L().Debug("OTP cleanup attached", zap.Duration("tick_every", interval))

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.CleanupExpired(ctx)
				if err != nil {
					zap.L().Error("Failed to cleanup expired OTPs", zap.Error(err))
					continue
				}
				if n > 0 {
					zap.L().Debug("Cleaned up expired OTPs", zap.Int64("count", n))
				}
			}
		}
	}()
}
