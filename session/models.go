package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSession is the server-side record of a signed-in browser, keyed by the
// scs session token.
type UserSession struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"userId" gorm:"not null;index;size:36"`
	Token     string    `json:"-" gorm:"uniqueIndex;size:255;not null"`
	IPAddress string    `json:"ipAddress" gorm:"size:45"`
	UserAgent string    `json:"userAgent" gorm:"size:500"`
	Browser   string    `json:"browser" gorm:"size:100"`
	OS        string    `json:"os" gorm:"size:100"`
	Device    string    `json:"device" gorm:"size:100"`
	Current   bool      `json:"current" gorm:"-"`
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

func (s *UserSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SessionService tracks signed-in sessions so they can be listed and revoked.
type SessionService interface {
	TrackSession(ctx context.Context, userID, token, ipAddress, userAgent string, expiresAt time.Time) error

	UpdateLastUsed(ctx context.Context, token string) error

	GetSession(ctx context.Context, token string) (*UserSession, error)

	GetUserSessions(ctx context.Context, userID, currentToken string) ([]UserSession, error)

	RevokeSession(ctx context.Context, userID, sessionID string) error

	RevokeAllOtherSessions(ctx context.Context, userID, currentToken string) error

	CleanupExpiredSessions(ctx context.Context) (int64, error)

	RemoveSessionByToken(ctx context.Context, token string) error
}
