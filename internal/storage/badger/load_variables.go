package badger

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// VariableFile represents one variable in a TOML file
// Format:
// [gemini_api_key]
// value = "some-value"
type VariableFile struct {
	Value       string `toml:"value"`
	Description string `toml:"description"`
}

// LoadVariablesFromFile seeds the key/value store from a variables TOML file.
// A missing file is not an error. Returns the number of variables stored.
func (m *Manager) LoadVariablesFromFile(ctx context.Context, filePath string) (int, error) {
	if filePath == "" {
		return 0, nil
	}

	content, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		m.logger.Debug().Str("file", filePath).Msg("Variables file not found, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var variables map[string]VariableFile
	if err := toml.Unmarshal(content, &variables); err != nil {
		m.logger.Warn().Err(err).Str("file", filePath).Msg("Failed to parse variables file")
		return 0, err
	}

	fileName := filepath.Base(filePath)
	loaded := 0
	for key, variable := range variables {
		if variable.Value == "" {
			m.logger.Warn().Str("file", fileName).Str("key", key).Msg("Skipping variable with empty value")
			continue
		}

		if err := m.kv.Set(ctx, key, variable.Value); err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("Failed to store variable")
			continue
		}
		loaded++
	}

	m.logger.Debug().Str("file", fileName).Int("loaded", loaded).Msg("Finished loading variables")
	return loaded, nil
}
