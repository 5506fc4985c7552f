package verification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record is a single-use secret bound to an identifier.
type Record struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Purpose    Purpose   `json:"purpose" gorm:"index:idx_verifications_purpose_identifier,priority:1;size:32;not null"`
	Identifier string    `json:"identifier" gorm:"index:idx_verifications_purpose_identifier,priority:2;size:320;not null"`
	Email      string    `json:"email" gorm:"index;size:320;not null"`
	Value      string    `json:"-" gorm:"index;size:255;not null"`
	ExpiresAt  time.Time `json:"expiresAt" gorm:"not null"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Record) TableName() string {
	return "verifications"
}

func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *Record) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
