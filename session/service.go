package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/mileusna/useragent"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

type sessionService struct {
	db     *gorm.DB
	store  scs.Store
	logger *logging.Service
	now    func() time.Time
}

// NewSessionService tracks sessions in db. Revoking a session also deletes
// its data from store so the cookie stops working.
func NewSessionService(db *gorm.DB, store scs.Store, logger *logging.Service) SessionService {
	return &sessionService{
		db:     db,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *sessionService) TrackSession(ctx context.Context, userID, token, ipAddress, userAgent string, expiresAt time.Time) error {
	info := ParseUserAgent(userAgent)
	now := s.now()

	session := UserSession{
		UserID:    userID,
		Token:     token,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Browser:   info.Browser,
		OS:        info.OS,
		Device:    info.Device,
		CreatedAt: now,
		LastUsed:  now,
		ExpiresAt: expiresAt,
	}

	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return fmt.Errorf("failed to track session: %w", err)
	}
	return nil
}

func (s *sessionService) UpdateLastUsed(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Model(&UserSession{}).
		Where("token = ?", token).
		Update("last_used", s.now()).Error
}

func (s *sessionService) GetSession(ctx context.Context, token string) (*UserSession, error) {
	var session UserSession
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *sessionService) GetUserSessions(ctx context.Context, userID, currentToken string) ([]UserSession, error) {
	var sessions []UserSession

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, s.now()).
		Order("last_used DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	for i := range sessions {
		sessions[i].Current = sessions[i].Token == currentToken
	}
	return sessions, nil
}

func (s *sessionService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	var session UserSession
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}

	if err := s.deleteData(session.Token); err != nil {
		return err
	}

	s.logger.Info("session revoked", zap.String("user_id", userID), zap.String("session_id", sessionID))
	return s.db.WithContext(ctx).Delete(&session).Error
}

func (s *sessionService) RevokeAllOtherSessions(ctx context.Context, userID, currentToken string) error {
	var sessions []UserSession
	err := s.db.WithContext(ctx).Where("user_id = ? AND token != ?", userID, currentToken).Find(&sessions).Error
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}

	for _, session := range sessions {
		if err := s.deleteData(session.Token); err != nil {
			return err
		}
	}

	s.logger.Info("other sessions revoked", zap.String("user_id", userID), zap.Int("count", len(sessions)))
	return s.db.WithContext(ctx).Where("user_id = ? AND token != ?", userID, currentToken).Delete(&UserSession{}).Error
}

func (s *sessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&UserSession{})
	return result.RowsAffected, result.Error
}

func (s *sessionService) RemoveSessionByToken(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&UserSession{}).Error
}

func (s *sessionService) deleteData(token string) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Delete(token); err != nil {
		return fmt.Errorf("failed to delete session data: %w", err)
	}
	return nil
}

type DeviceInfo struct {
	Browser string
	OS      string
	Device  string
}

func ParseUserAgent(userAgentString string) DeviceInfo {
	if userAgentString == "" {
		return DeviceInfo{Browser: "Unknown Browser", OS: "Unknown OS", Device: "Unknown Device"}
	}

	ua := useragent.Parse(userAgentString)

	browser := "Unknown Browser"
	if ua.Name != "" {
		browser = ua.Name
		if ua.Version != "" {
			browser += " " + ua.Version
		}
	}

	os := "Unknown OS"
	if ua.OS != "" {
		os = ua.OS
		if ua.OSVersion != "" {
			os += " " + ua.OSVersion
		}
	}

	var device string
	switch {
	case ua.Device != "":
		device = ua.Device
	case ua.Bot:
		device = "Bot"
	case ua.Mobile:
		device = "Mobile Device"
	case ua.Tablet:
		device = "Tablet"
	default:
		device = "Desktop Computer"
	}

	return DeviceInfo{Browser: browser, OS: os, Device: device}
}
