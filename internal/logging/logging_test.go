package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_StderrOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup := Setup(Config{Verbosity: 1, Stderr: &buf})
	defer cleanup()

	logger.Info("listening")
	logger.Verbose("hidden at level 1")

	assert.Equal(t, "[INF] listening\n", buf.String())
}

func TestSetup_FileTee(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "tcptap.log")

	logger, cleanup := Setup(Config{Verbosity: 2, File: path, Stderr: &buf})
	logger.With("abcd1234").Verbose("upstream connected")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "[VRB] [abcd1234] upstream connected")
	assert.Contains(t, buf.String(), "[VRB] [abcd1234] upstream connected")
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}

func TestSetup_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	var buf bytes.Buffer
	logger, cleanup := Setup(Config{Verbosity: 1, File: filepath.Join(blocker, "sub", "x.log"), Stderr: &buf})
	defer cleanup()

	assert.Contains(t, buf.String(), "log file disabled")
	logger.Info("still works")
	assert.Contains(t, buf.String(), "still works")
}
