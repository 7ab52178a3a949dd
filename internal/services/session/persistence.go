package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/interfaces"
	"github.com/ternarybob/stocklens/internal/models"
)

// strategySectionIndex is where the Chinese analysis must carry its strategy
// for a snapshot to be accepted.
const strategySectionIndex = 5

// Persistence reads and writes the session snapshot under a single key.
type Persistence struct {
	store  interfaces.KeyValueStore
	key    string
	logger arbor.ILogger
}

// NewPersistence creates a persistence adapter over store
func NewPersistence(store interfaces.KeyValueStore, key string, logger arbor.ILogger) *Persistence {
	return &Persistence{
		store:  store,
		key:    key,
		logger: logger,
	}
}

// Save writes the complete snapshot in one Set, stamping the current schema version.
func (p *Persistence) Save(ctx context.Context, snapshot models.SessionSnapshot) error {
	snapshot.SchemaVersion = models.SnapshotSchemaVersion

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}

	if err := p.store.Set(ctx, p.key, string(data)); err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}

	p.logger.Debug().
		Str("key", p.key).
		Str("ticker", snapshot.Ticker).
		Int("bytes", len(data)).
		Msg("Session snapshot saved")

	return nil
}

// Load returns the persisted snapshot, or nil when none is stored.
// A snapshot that cannot be read, parsed or fails the schema guard is removed
// from the store and reported as *models.IncompatibleSchemaError.
func (p *Persistence) Load(ctx context.Context) (*models.SessionSnapshot, error) {
	raw, err := p.store.Get(ctx, p.key)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, p.discard(ctx, "read failed", err)
	}

	var snapshot models.SessionSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, p.discard(ctx, "parse failed", err)
	}

	if reason := checkSnapshot(&snapshot); reason != "" {
		return nil, p.discard(ctx, reason, nil)
	}

	return &snapshot, nil
}

// Delete removes the persisted snapshot
func (p *Persistence) Delete(ctx context.Context) error {
	if err := p.store.Remove(ctx, p.key); err != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}

func (p *Persistence) discard(ctx context.Context, reason string, cause error) error {
	if err := p.store.Remove(ctx, p.key); err != nil {
		p.logger.Warn().Err(err).Str("key", p.key).Msg("Failed to remove incompatible session snapshot")
	}
	return &models.IncompatibleSchemaError{Reason: reason, Err: cause}
}

// checkSnapshot returns why a snapshot is unusable, or "" when it is accepted.
func checkSnapshot(s *models.SessionSnapshot) string {
	if s.SchemaVersion != models.SnapshotSchemaVersion {
		return fmt.Sprintf("schema version %d, want %d", s.SchemaVersion, models.SnapshotSchemaVersion)
	}

	zh := s.CachedAnalyses[models.LanguageChinese]
	if len(zh) <= strategySectionIndex || zh[strategySectionIndex].Strategy == nil {
		return "chinese analysis has no strategy on its sixth section"
	}

	for lang := range s.CachedAnalyses {
		if !lang.IsValid() {
			return fmt.Sprintf("unknown cached language %q", lang)
		}
	}

	if !s.AnalysisLanguage.IsValid() {
		return fmt.Sprintf("unknown analysis language %q", s.AnalysisLanguage)
	}

	if err := s.SessionInputs.Validate(); err != nil {
		return "invalid inputs: " + err.Error()
	}

	return ""
}
