package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestReplaceKeyReferences(t *testing.T) {
	logger := arbor.NewNoOpLogger()
	kvMap := map[string]string{
		"gemini_api_key": "sk-12345",
		"key1":           "val1",
		"key2":           "val2",
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "{gemini_api_key}", "sk-12345"},
		{"multiple", "a={key1}, b={key2}", "a=val1, b=val2"},
		{"missing key left unchanged", "{missing-key}", "{missing-key}"},
		{"invalid syntax left unchanged", "{invalid key}", "{invalid key}"},
		{"empty", "", ""},
		{"no references", "static-value", "static-value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ReplaceKeyReferences(tt.input, kvMap, logger))
		})
	}
}

func TestReplaceInStruct_Config(t *testing.T) {
	logger := arbor.NewNoOpLogger()
	kvMap := map[string]string{
		"gemini_api_key": "sk-gemini",
		"ticker":         "AAPL",
		"event":          "price_stale",
	}

	config := NewDefaultConfig()
	config.Gemini.APIKey = "{gemini_api_key}"
	config.Session.DefaultTicker = "{ticker}"
	config.WebSocket.AllowedEvents = []string{"{event}", "session_updated"}
	config.WebSocket.ThrottleIntervals = map[string]string{"x": "{missing}"}

	require.NoError(t, ReplaceInStruct(config, kvMap, logger))

	assert.Equal(t, "sk-gemini", config.Gemini.APIKey)
	assert.Equal(t, "AAPL", config.Session.DefaultTicker)
	assert.Equal(t, []string{"price_stale", "session_updated"}, config.WebSocket.AllowedEvents)
	assert.Equal(t, "{missing}", config.WebSocket.ThrottleIntervals["x"])
}

func TestReplaceInStruct_RequiresStructPointer(t *testing.T) {
	logger := arbor.NewNoOpLogger()

	err := ReplaceInStruct(Config{}, nil, logger)
	assert.Error(t, err)

	s := "not a struct"
	err = ReplaceInStruct(&s, nil, logger)
	assert.Error(t, err)
}
