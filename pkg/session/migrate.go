package session

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type MigrationStatus int

const (
	// MigrationNotNeeded means no legacy cache file was found.
	MigrationNotNeeded MigrationStatus = iota
	// MigrationDone means the legacy cache was copied into a session and removed.
	MigrationDone
)

// Migrator moves the single-slot cache written by pre-session versions into a
// named session. The legacy file is removed after a successful copy, so a
// second run is a no-op instead of re-importing stale data.
type Migrator struct {
	LegacyPath  string
	ScratchName string
	Store       Store
}

func NewMigrator(legacyPath, scratchName string, store Store) *Migrator {
	return &Migrator{
		LegacyPath:  legacyPath,
		ScratchName: scratchName,
		Store:       store,
	}
}

func (m *Migrator) LegacyExists() bool {
	if m.LegacyPath == "" {
		return false
	}
	info, err := os.Stat(m.LegacyPath)
	return err == nil && info.Mode().IsRegular()
}

// Migrate copies the legacy cache into target. It refuses the scratch session,
// because every sessionless query overwrites it, and it refuses an empty target.
func (m *Migrator) Migrate(ctx context.Context, target string) (MigrationStatus, error) {
	if !m.LegacyExists() {
		return MigrationNotNeeded, nil
	}

	log.Debug().Str("path", m.LegacyPath).Str("target", target).Msg("legacy cache file detected")

	switch target {
	case m.ScratchName:
		return MigrationNotNeeded, errors.Wrapf(ErrScratchMigrationTarget,
			"'%s' is special, sessionless queries will overwrite it", m.ScratchName)
	case "":
		return MigrationNotNeeded, errors.Wrapf(ErrMigrationTargetRequired,
			"specify a session to migrate into, or remove the legacy cache file at %s", m.LegacyPath)
	}

	b, err := os.ReadFile(m.LegacyPath)
	if err != nil {
		return MigrationNotNeeded, errors.Wrap(err, "could not read legacy cache")
	}
	conv, err := DecodeJSONConversation(b)
	if err != nil {
		return MigrationNotNeeded, errors.Wrapf(err, "could not decode legacy cache %s", m.LegacyPath)
	}
	if err := m.Store.Save(ctx, conv, target); err != nil {
		return MigrationNotNeeded, errors.Wrapf(err, "could not migrate legacy cache to session %s", target)
	}
	if err := os.Remove(m.LegacyPath); err != nil {
		return MigrationDone, errors.Wrapf(err,
			"migrated legacy cache to session %s but could not remove %s", target, m.LegacyPath)
	}

	log.Info().Str("session", target).Int("messages", len(conv)).Msg("migrated legacy cache")
	return MigrationDone, nil
}
