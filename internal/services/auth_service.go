package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/task-tracker/internal/metrics"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/security"
	"gorm.io/gorm"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid email or password format")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService handles registration and password login. Both end with an
// OTP being issued; the session only becomes authenticated after
// OTPService.VerifyOTP succeeds.
type AuthService struct {
	userRepo   repository.UserRepository
	otpService *OTPService
	hasher     *security.PasswordHasher
	validate   *validator.Validate
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, otpService *OTPService, hasher *security.PasswordHasher) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		otpService: otpService,
		hasher:     hasher,
		validate:   validator.New(),
	}
}

// Register creates a user and sends the first OTP. The user is kept even
// when the email cannot be delivered; logging in again re-issues the code.
func (s *AuthService) Register(ctx context.Context, email, password string) (user *models.User, err error) {
	defer func() {
		metrics.RegistrationsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidInput
	}
	if password == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user = &models.User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.otpService.IssueOTP(ctx, user.Email); err != nil {
		return nil, err
	}

	return user, nil
}

// Login checks the password and sends an OTP. Nothing is issued when the
// credentials do not match.
func (s *AuthService) Login(ctx context.Context, email, password string) (user *models.User, err error) {
	defer func() {
		metrics.LoginsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	user, err = s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := s.otpService.IssueOTP(ctx, user.Email); err != nil {
		return nil, err
	}

	return user, nil
}

// ResendOTP issues a new code for an email that already passed the
// password check.
func (s *AuthService) ResendOTP(ctx context.Context, pendingEmail string) error {
	if pendingEmail == "" {
		return ErrNoSession
	}
	return s.otpService.IssueOTP(ctx, pendingEmail)
}

// VerifyOTP completes the login of pendingEmail.
func (s *AuthService) VerifyOTP(ctx context.Context, pendingEmail, code string) error {
	return s.otpService.VerifyOTP(ctx, pendingEmail, code)
}

// GetUserByEmail resolves the user behind an authenticated session.
func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}
