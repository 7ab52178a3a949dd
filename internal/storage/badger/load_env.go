package badger

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// LoadEnvFile seeds the key/value store from a .env file. Keys are stored
// lower-cased, so GEMINI_API_KEY becomes gemini_api_key. A missing file is not
// an error. Returns the number of variables stored.
//
// Format supported:
//   - KEY=value
//   - KEY="value" or KEY='value' (quotes stripped)
//   - export KEY=value
//   - # comments and empty lines are ignored
func (m *Manager) LoadEnvFile(ctx context.Context, filePath string) (int, error) {
	if filePath == "" {
		return 0, nil
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		m.logger.Debug().Str("file", filePath).Msg(".env file does not exist, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer file.Close()

	loaded := 0
	lineNum := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNum++
		key, value, ok := parseEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if key == "" || value == "" {
			m.logger.Warn().
				Str("file", filePath).
				Int("line", lineNum).
				Msg("Skipping .env line without key or value")
			continue
		}

		if err := m.kv.Set(ctx, key, value); err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("Failed to store .env variable")
			continue
		}
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return loaded, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	m.logger.Debug().Str("file", filePath).Int("loaded", loaded).Msg("Finished loading .env file")
	return loaded, nil
}

// parseEnvLine returns ok=false for blank and comment lines
func parseEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", true
	}

	key = strings.ToLower(strings.TrimSpace(k))
	value = strings.TrimSpace(v)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return key, value, true
}
