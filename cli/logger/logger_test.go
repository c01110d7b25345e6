package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.log")
	logger := New(&Options{Level: "warn", File: path, Format: "json"})

	logger.Info("dropped")
	logger.Warn("kept", "phone", "5551234")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"phone":"5551234"`)
}

func TestNew_InvalidOptionsFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.log")
	options := &Options{Level: "verbose", File: path, Format: "xml"}
	New(options).Error("after fallback")

	assert.Empty(t, options.Level)
	assert.Equal(t, "text", options.Format)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "could not parse logger format")
	assert.Contains(t, string(data), "could not parse logger level")
	assert.Contains(t, string(data), "after fallback")
}

func openDescriptors(t *testing.T, path string) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("no /proc/self/fd:", err)
	}
	n := 0
	for _, e := range entries {
		if target, err := os.Readlink(filepath.Join("/proc/self/fd", e.Name())); err == nil && target == path {
			n++
		}
	}
	return n
}

func TestNew_FormatFallBackOpensFileOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.log")
	New(&Options{File: path, Format: "xml"}).Info("once")
	assert.Equal(t, 1, openDescriptors(t, path))

	_, ok := handler("yaml")
	assert.False(t, ok)
}

func TestNew_DevNull(t *testing.T) {
	logger := New(&Options{File: os.DevNull})
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}

func TestNew_Level(t *testing.T) {
	for option, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		leveler, ok := level(option)
		require.True(t, ok, option)
		assert.Equal(t, want, leveler.Level(), option)
	}
	_, ok := level("trace")
	assert.False(t, ok)
}
