package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Level: "warn", Format: "text"}))
	SetOutput(&buf)
	t.Cleanup(func() { SetLevel("INFO"); SetOutput(os.Stdout) })

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN] shown 2")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Level: "debug", Format: "json"}))
	SetOutput(&buf)
	t.Cleanup(func() {
		_ = Configure(Config{Level: "INFO", Format: "text"})
		SetOutput(os.Stdout)
	})

	Debug("file %s created", "notes")

	var line map[string]string
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "DEBUG", line["level"])
	assert.Equal(t, "file notes created", line["msg"])
	assert.NotEmpty(t, line["time"])
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keepfs.log")
	require.NoError(t, Configure(Config{Level: "INFO", Output: path}))
	t.Cleanup(func() { _ = Configure(Config{Level: "INFO"}) })

	Error("disk %s", "full")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "[ERROR] disk full"))
}

func TestUnknownFormat(t *testing.T) {
	assert.Error(t, Configure(Config{Format: "xml"}))
}
