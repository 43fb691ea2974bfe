package store

import (
	"context"
	"fmt"

	"github.com/chatvault/chatvault/internal/config"
	"github.com/chatvault/chatvault/internal/logger"
)

// Storages groups the client-side repositories into a single value that can
// be passed around the vault and service layers.
type Storages struct {
	// Keys holds the vault parameter singleton and the wrapped CEK records.
	Keys KeyRecordRepository

	// Conversations holds conversations and their encrypted messages.
	Conversations ConversationRepository
}

// NewStorages initialises the storage layer using the supplied configuration
// and logger. With an empty or ":memory:" DSN it returns map-backed
// repositories; otherwise it:
//  1. Opens an SQLite connection to the file path in cfg.DSN, creating the
//     database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs a [Storages] value wired to fresh repositories.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.Storage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	if cfg.DSN == "" || cfg.DSN == ":memory:" {
		keys := NewMemoryKeyRecordRepository()
		return &Storages{
			Keys:          keys,
			Conversations: NewMemoryConversationRepository(keys),
		}, nil
	}

	db, err := NewConnectSQLite(context.Background(), cfg.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		Keys:          NewKeyRecordRepository(db, logger),
		Conversations: NewConversationRepository(db, logger),
	}, nil
}
