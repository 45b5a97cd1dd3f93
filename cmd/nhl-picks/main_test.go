package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, ok, err := parseDate("date", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, d.IsZero())

	d, ok, err = parseDate("date", "2024-10-15")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC), d)

	_, _, err = parseDate("start", "10/15/2024")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--start")
}

func TestOutputDirCheck(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, outputDirCheck{dir: dir}.Check(context.Background()))
	assert.Error(t, outputDirCheck{dir: filepath.Join(dir, "missing")}.Check(context.Background()))

	file := filepath.Join(dir, "picks.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))
	assert.Error(t, outputDirCheck{dir: file}.Check(context.Background()))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run-daily", "backtest", "schedule", "version"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}
