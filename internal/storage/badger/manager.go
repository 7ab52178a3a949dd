package badger

import (
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/common"
	"github.com/ternarybob/stocklens/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// Manager owns the badgerhold store that holds the session snapshot and the
// seeded API keys, and the key/value view over it.
type Manager struct {
	store  *badgerhold.Store
	kv     *KVStorage
	logger arbor.ILogger
}

// NewManager opens the store at config.Path, wiping it first when
// reset_on_startup is set.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("storage.badger.path must not be empty")
	}

	if config.ResetOnStartup {
		logger.Debug().Str("path", config.Path).Msg("Discarding stored session (reset_on_startup)")
		if err := os.RemoveAll(config.Path); err != nil {
			logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to remove store directory")
		}
	}

	if err := os.MkdirAll(config.Path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", config.Path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil
	// The snapshot is written once per analysis or toggle; flush it before returning
	options.SyncWrites = true

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("Key/value store opened")

	return &Manager{
		store:  store,
		kv:     NewKVStorage(store, logger),
		logger: logger,
	}, nil
}

// KeyValueStore returns the durable key/value store
func (m *Manager) KeyValueStore() interfaces.KeyValueStore {
	return m.kv
}

// Close flushes and closes the store
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}
