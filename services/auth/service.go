package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrPasswordHashingFailed = errors.New("failed to hash password")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailTaken            = errors.New("email is already registered")
	ErrEmailAlreadyVerified  = errors.New("email is already verified")
)

// PasswordPolicyError describes why a password was rejected.
type PasswordPolicyError struct {
	Reason string
}

func (e *PasswordPolicyError) Error() string {
	return e.Reason
}

type Service struct {
	config *config.AuthConfig
	db     *gorm.DB
	logger *logging.Service

	// compared against when the account does not exist so that sign-in takes
	// the same time either way
	dummyHash []byte
}

func NewService(cfg *config.AuthConfig, db *gorm.DB, logger *logging.Service) *Service {
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	dummy, _ := bcrypt.GenerateFromPassword([]byte("barae-dummy-password"), cfg.BcryptCost)

	return &Service{
		config:    cfg,
		db:        db,
		logger:    logger,
		dummyHash: dummy,
	}
}

// NormalizeEmail is the canonical form used for lookups and identifiers.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) ValidatePassword(password string) error {
	if len(password) < s.config.MinPasswordLength {
		s.logger.Debug("password rejected: too short", zap.Int("length", len(password)))
		return &PasswordPolicyError{Reason: fmt.Sprintf("password must be at least %d characters", s.config.MinPasswordLength)}
	}
	if s.config.MaxPasswordLength > 0 && len(password) > s.config.MaxPasswordLength {
		return &PasswordPolicyError{Reason: fmt.Sprintf("password must be at most %d characters", s.config.MaxPasswordLength)}
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	var missing []string
	if s.config.RequireUpper && !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if s.config.RequireLower && !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if s.config.RequireNumber && !hasNumber {
		missing = append(missing, "one number")
	}
	if s.config.RequireSpecial && !hasSpecial {
		missing = append(missing, "one special character")
	}

	if len(missing) > 0 {
		s.logger.Debug("password rejected: missing requirements", zap.Strings("missing_requirements", missing))
		return &PasswordPolicyError{Reason: fmt.Sprintf("password must contain at least %s", strings.Join(missing, ", "))}
	}

	return nil
}

func (s *Service) HashPassword(password string) (string, error) {
	if err := s.ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		s.logger.Error("password hashing failed", zap.Error(err))
		return "", ErrPasswordHashingFailed
	}
	return string(hash), nil
}

func (s *Service) VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Service) CreateUser(ctx context.Context, name, email, password string) (*User, error) {
	email = NormalizeEmail(email)

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	if _, err := s.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user := &User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, "email = ?", NormalizeEmail(email))
}

func (s *Service) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *Service) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// MarkEmailVerified flags the account with the given address as verified.
func (s *Service) MarkEmailVerified(ctx context.Context, email string) (*User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.EmailVerified {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Update("email_verified", true).Error; err != nil {
		return nil, fmt.Errorf("failed to mark email as verified: %w", err)
	}
	user.EmailVerified = true

	s.logger.Info("email verified", zap.String("user_id", user.ID))
	return user, nil
}

func (s *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("password_hash", hash)
	if result.Error != nil {
		return fmt.Errorf("failed to update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.logger.Info("password updated", zap.String("user_id", userID))
	return nil
}

// Authenticate returns the user when email and password match.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := s.VerifyPassword(user.PasswordHash, password); err != nil {
		s.logger.Warn("sign-in failed: wrong password", zap.String("user_id", user.ID))
		return nil, err
	}
	return user, nil
}

func (s *Service) UpdateName(ctx context.Context, userID, name string) (*User, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if err := s.db.WithContext(ctx).Model(user).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	user.Name = name

	s.logger.Info("user updated", zap.String("user_id", user.ID))
	return user, nil
}

// DeleteUser removes the account together with its tracked sessions and any
// outstanding verification records. Session data held by the session store is
// the caller's to revoke.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_sessions WHERE user_id = ?", user.ID).Error; err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
		if err := tx.Exec("DELETE FROM verifications WHERE email = ?", user.Email).Error; err != nil {
			return fmt.Errorf("failed to delete verifications: %w", err)
		}
		result := tx.Delete(&User{}, "id = ?", user.ID)
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("user deleted", zap.String("user_id", user.ID))
	return nil
}
