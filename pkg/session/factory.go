package session

import (
	"github.com/go-go-golems/palaver/pkg/settings"
	"github.com/pkg/errors"
)

// NewStoreFromSettings opens the backend selected by s.StoreBackend.
func NewStoreFromSettings(s *settings.Settings) (Store, error) {
	switch s.StoreBackend {
	case settings.StoreBackendYAML, "":
		return NewYAMLFileStore(s.SessionsDir)
	case settings.StoreBackendSQLite:
		return NewSQLiteStore(s.SQLitePath)
	default:
		return nil, errors.Errorf("unknown store backend %q", s.StoreBackend)
	}
}

func NewMigratorFromSettings(s *settings.Settings, store Store) *Migrator {
	return NewMigrator(s.LegacyCachePath, s.ScratchSession, store)
}
