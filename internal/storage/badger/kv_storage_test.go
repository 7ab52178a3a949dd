package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/common"
	"github.com/ternarybob/stocklens/internal/interfaces"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	config := &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")}
	manager, err := NewManager(arbor.NewNoOpLogger(), config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	return manager
}

func TestKVStorage_SetGetRemove(t *testing.T) {
	kv := newTestManager(t).KeyValueStore()
	ctx := context.Background()

	_, err := kv.Get(ctx, "aiStockAnalyzerCache")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "aiStockAnalyzerCache", `{"ticker":"NVDA"}`))

	value, err := kv.Get(ctx, "aiStockAnalyzerCache")
	require.NoError(t, err)
	assert.Equal(t, `{"ticker":"NVDA"}`, value)

	// Overwrite replaces the whole value
	require.NoError(t, kv.Set(ctx, "aiStockAnalyzerCache", `{"ticker":"AAPL"}`))
	value, err = kv.Get(ctx, "aiStockAnalyzerCache")
	require.NoError(t, err)
	assert.Equal(t, `{"ticker":"AAPL"}`, value)

	require.NoError(t, kv.Remove(ctx, "aiStockAnalyzerCache"))
	_, err = kv.Get(ctx, "aiStockAnalyzerCache")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	// Removing an absent key is not an error
	assert.NoError(t, kv.Remove(ctx, "aiStockAnalyzerCache"))
}

func TestKVStorage_CaseInsensitiveKeys(t *testing.T) {
	kv := newTestManager(t).KeyValueStore()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "  Gemini_API_Key ", "sk-1"))

	value, err := kv.Get(ctx, "gemini_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-1", value)
}

func TestKVStorage_List(t *testing.T) {
	kv := newTestManager(t).KeyValueStore()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "a", "1"))
	require.NoError(t, kv.Set(ctx, "b", "2"))

	pairs, err := kv.List(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	got := map[string]string{}
	for _, p := range pairs {
		got[p.Key] = p.Value
	}
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, got)
}

func TestManager_LoadVariablesFromFile(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "variables.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[gemini_api_key]
value = "sk-gemini"
description = "Gemini key"

[empty_key]
value = ""
`), 0644))

	loaded, err := manager.LoadVariablesFromFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)

	value, err := manager.KeyValueStore().Get(ctx, "gemini_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-gemini", value)

	_, err = manager.KeyValueStore().Get(ctx, "empty_key")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	loaded, err = manager.LoadVariablesFromFile(ctx, filepath.Join(t.TempDir(), "missing.toml"))
	assert.NoError(t, err)
	assert.Equal(t, 0, loaded)
}

func TestLoadEnvFile(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), ".env")
	content := "# provider keys\n" +
		"GEMINI_API_KEY=\"gm-123\"\n" +
		"export ANTHROPIC_API_KEY='sk-ant'\n" +
		"\n" +
		"EMPTY=\n" +
		"not a pair\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loaded, err := manager.LoadEnvFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	value, err := manager.KeyValueStore().Get(ctx, "gemini_api_key")
	require.NoError(t, err)
	assert.Equal(t, "gm-123", value)

	value, err = manager.KeyValueStore().Get(ctx, "anthropic_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant", value)

	_, err = manager.KeyValueStore().Get(ctx, "empty")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestLoadEnvFile_Missing(t *testing.T) {
	manager := newTestManager(t)

	loaded, err := manager.LoadEnvFile(context.Background(), filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Zero(t, loaded)
}

func TestNewManager_ReopenKeepsValues(t *testing.T) {
	config := &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")}
	ctx := context.Background()

	manager, err := NewManager(arbor.NewNoOpLogger(), config)
	require.NoError(t, err)
	require.NoError(t, manager.KeyValueStore().Set(ctx, "aiStockAnalyzerCache", `{"schemaVersion":2}`))
	require.NoError(t, manager.Close())

	manager, err = NewManager(arbor.NewNoOpLogger(), config)
	require.NoError(t, err)
	value, err := manager.KeyValueStore().Get(ctx, "aiStockAnalyzerCache")
	require.NoError(t, err)
	assert.Equal(t, `{"schemaVersion":2}`, value)
	require.NoError(t, manager.Close())

	config.ResetOnStartup = true
	manager, err = NewManager(arbor.NewNoOpLogger(), config)
	require.NoError(t, err)
	defer manager.Close()
	_, err = manager.KeyValueStore().Get(ctx, "aiStockAnalyzerCache")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestNewManager_EmptyPath(t *testing.T) {
	_, err := NewManager(arbor.NewNoOpLogger(), &common.BadgerConfig{})
	assert.Error(t, err)
}
