package testutils

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockMailer records outbound account mail.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerificationLink(ctx context.Context, email, link string) error {
	args := m.Called(ctx, email, link)
	return args.Error(0)
}

func (m *MockMailer) SendPasswordResetLink(ctx context.Context, email, link string) error {
	args := m.Called(ctx, email, link)
	return args.Error(0)
}

func (m *MockMailer) SendOTP(ctx context.Context, email, purpose, code string) error {
	args := m.Called(ctx, email, purpose, code)
	return args.Error(0)
}
