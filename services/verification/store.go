package verification

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Store interface {
	Create(ctx context.Context, record *Record) error
	FindByValue(ctx context.Context, value string) (*Record, error)
	FindLatest(ctx context.Context, purpose Purpose, identifier string) (*Record, error)
	// Delete removes one record and reports whether this call removed it.
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByIdentifier(ctx context.Context, purpose Purpose, identifier string) (int64, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, record *Record) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create verification record: %w", err)
	}
	return nil
}

// FindByValue returns nil, nil when no record carries the value.
func (s *GormStore) FindByValue(ctx context.Context, value string) (*Record, error) {
	return first(s.db.WithContext(ctx).Where("value = ?", value))
}

// FindLatest returns nil, nil when the identifier has no record of purpose.
func (s *GormStore) FindLatest(ctx context.Context, purpose Purpose, identifier string) (*Record, error) {
	return first(s.db.WithContext(ctx).
		Where("purpose = ? AND identifier = ?", purpose, identifier).
		Order("updated_at DESC").
		Order("created_at DESC"))
}

func first(q *gorm.DB) (*Record, error) {
	var record Record
	if err := q.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load verification record: %w", err)
	}
	return &record, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Record{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete verification record: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *GormStore) DeleteByIdentifier(ctx context.Context, purpose Purpose, identifier string) (int64, error) {
	result := s.db.WithContext(ctx).Where("purpose = ? AND identifier = ?", purpose, identifier).Delete(&Record{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete verification records: %w", result.Error)
	}
	return result.RowsAffected, nil
}
