package bplog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesDefaultLevelWhenUnset(t *testing.T) {
	cfg := DefaultConfig()
	l, err := New(cfg, t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, l.base)
}

func TestTraceTickWritesCSVRow(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Trace.Enabled = true
	cfg.Trace.FilenameExtension = ".csv"

	l, err := New(cfg, dir)
	require.NoError(t, err)
	require.NoError(t, l.TraceTick(uuid.New(), 1, 150, 2.0, 10, 140))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, "powerbalancer.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "agent_id")
	assert.Contains(t, string(data), "150.0000")
}

func TestTraceTickNoopWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	l, err := New(cfg, t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, l.TraceTick(uuid.New(), 0, 0, 0, 0, 0))
}
