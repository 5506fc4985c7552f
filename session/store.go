package session

import (
	"errors"

	"github.com/alexedwards/scs/gormstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"gorm.io/gorm"
)

func NewMemoryStore() scs.Store {
	return memstore.New()
}

// NewDatabaseStore keeps session data in the "sessions" table.
func NewDatabaseStore(db *gorm.DB) (scs.Store, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	return gormstore.NewWithCleanupInterval(db, 0)
}
