package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("verification record not found")
	ErrExpired        = errors.New("verification record has expired")
	ErrInvalidPurpose = errors.New("invalid verification purpose")
)

// ApplyFunc performs the state change a successful verification unlocks.
type ApplyFunc func(ctx context.Context, record *Record) error

type Service struct {
	store  Store
	config *config.AuthConfig
	logger *logging.Service
	now    func() time.Time
}

func NewService(store Store, cfg *config.AuthConfig, logger *logging.Service) *Service {
	return &Service{
		store:  store,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) TTL(purpose Purpose) (time.Duration, error) {
	switch purpose {
	case PurposeVerifyEmail:
		return s.config.EmailVerificationExpiry, nil
	case PurposeResetPassword:
		return s.config.PasswordResetExpiry, nil
	case PurposeEmailVerification, PurposeSignIn, PurposeForgetPassword:
		return s.config.OTPExpiry, nil
	default:
		return 0, ErrInvalidPurpose
	}
}

// Issue mints a new secret for identifier, superseding any earlier record
// of the same purpose under that identifier.
func (s *Service) Issue(ctx context.Context, identifier string, purpose Purpose) (*Record, error) {
	return s.issue(ctx, purpose, identifier, "")
}

func (s *Service) IssueOTP(ctx context.Context, purpose Purpose, email string) (*Record, error) {
	if !purpose.IsOTP() {
		return nil, ErrInvalidPurpose
	}
	return s.issue(ctx, purpose, Identifier(purpose, email), email)
}

func (s *Service) IssueLink(ctx context.Context, purpose Purpose, email string) (*Record, error) {
	if !purpose.IsLink() {
		return nil, ErrInvalidPurpose
	}
	return s.issue(ctx, purpose, Identifier(purpose, email), email)
}

func (s *Service) issue(ctx context.Context, purpose Purpose, identifier, email string) (*Record, error) {
	ttl, err := s.TTL(purpose)
	if err != nil {
		return nil, err
	}

	value, err := s.generateValue(purpose)
	if err != nil {
		return nil, err
	}

	removed, err := s.store.DeleteByIdentifier(ctx, purpose, identifier)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &Record{
		Purpose:    purpose,
		Identifier: identifier,
		Email:      email,
		Value:      value,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Debug("verification issued",
		zap.String("purpose", string(purpose)),
		zap.Int64("superseded", removed),
		zap.Time("expires_at", record.ExpiresAt))
	return record, nil
}

// Verify accepts exactly one attempt against a live record. Link purposes
// look the record up by value, OTP purposes by identifier. On success the
// record is claimed before apply runs, so a replay yields ErrNotFound.
func (s *Service) Verify(ctx context.Context, purpose Purpose, identifier, value string, apply ApplyFunc) (*Record, error) {
	var (
		record *Record
		err    error
	)

	switch {
	case purpose.IsLink():
		record, err = s.lookupLink(ctx, purpose, value)
	case purpose.IsOTP():
		record, err = s.lookupOTP(ctx, purpose, identifier, value)
	default:
		return nil, ErrInvalidPurpose
	}
	if err != nil {
		return nil, err
	}

	claimed, err := s.store.Delete(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// another request consumed it first
		return nil, ErrNotFound
	}

	if apply != nil {
		if err := apply(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to apply verification: %w", err)
		}
	}

	s.logger.Info("verification consumed", zap.String("purpose", string(purpose)))
	return record, nil
}

func (s *Service) VerifyOTP(ctx context.Context, purpose Purpose, email, code string, apply ApplyFunc) (*Record, error) {
	if !purpose.IsOTP() {
		return nil, ErrInvalidPurpose
	}
	return s.Verify(ctx, purpose, Identifier(purpose, email), code, apply)
}

func (s *Service) VerifyLink(ctx context.Context, purpose Purpose, token string, apply ApplyFunc) (*Record, error) {
	if !purpose.IsLink() {
		return nil, ErrInvalidPurpose
	}
	return s.Verify(ctx, purpose, "", token, apply)
}

// CheckOTP validates a code without consuming it.
func (s *Service) CheckOTP(ctx context.Context, purpose Purpose, email, code string) error {
	if !purpose.IsOTP() {
		return ErrInvalidPurpose
	}
	_, err := s.lookupOTP(ctx, purpose, Identifier(purpose, email), code)
	return err
}

// LastIssued reports when the newest record of purpose for identifier was
// written.
func (s *Service) LastIssued(ctx context.Context, purpose Purpose, identifier string) (time.Time, bool, error) {
	record, err := s.store.FindLatest(ctx, purpose, identifier)
	if err != nil {
		return time.Time{}, false, err
	}
	if record == nil {
		return time.Time{}, false, nil
	}
	return record.UpdatedAt, true, nil
}

func (s *Service) lookupLink(ctx context.Context, purpose Purpose, token string) (*Record, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	record, err := s.store.FindByValue(ctx, token)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}

	// a token minted for another purpose is left untouched
	if record.Purpose != purpose {
		s.logger.Warn("verification token presented for wrong purpose", zap.String("purpose", string(purpose)))
		return nil, ErrNotFound
	}

	return s.checkExpiry(ctx, record)
}

func (s *Service) lookupOTP(ctx context.Context, purpose Purpose, identifier, code string) (*Record, error) {
	record, err := s.store.FindLatest(ctx, purpose, identifier)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}

	if _, err := s.checkExpiry(ctx, record); err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(record.Value), []byte(strings.TrimSpace(code))) != 1 {
		return nil, ErrNotFound
	}
	return record, nil
}

func (s *Service) checkExpiry(ctx context.Context, record *Record) (*Record, error) {
	if !record.IsExpired(s.now()) {
		return record, nil
	}

	if _, err := s.store.Delete(ctx, record.ID); err != nil {
		s.logger.Error("failed to prune expired verification", zap.Error(err))
	}
	return nil, ErrExpired
}

func (s *Service) generateValue(purpose Purpose) (string, error) {
	if purpose.IsOTP() {
		return generateOTP(s.config.OTPLength)
	}
	return generateToken(s.config.TokenBytes)
}

func generateToken(n int) (string, error) {
	if n < 16 {
		n = 16
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func generateOTP(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	ten := big.NewInt(10)
	code := make([]byte, digits)
	for i := range code {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		code[i] = byte('0' + d.Int64())
	}
	return string(code), nil
}
