package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadManifestMissingPathReturnsEmpty(t *testing.T) {
	m, err := LoadManifest("")
	require.NoError(t, err)
	assert.Empty(t, m.Services)
	assert.Empty(t, m.Routes)
}

func TestLoadManifestParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	content := `
services:
  - name: billing
    location: http://localhost:9100
    public: true
routes:
  - service: billing
    path: /api/billing
    dataType: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Services, 1)
	assert.Equal(t, "billing", m.Services[0].Name)
	assert.True(t, m.Services[0].Public)
	require.Len(t, m.Routes, 1)
	assert.Equal(t, "/api/billing", m.Routes[0].Path)
}

func TestLoadManifestMissingFileErrors(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadManifestInvalidYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services: [this is not valid"), 0644))

	_, err := LoadManifest(path)
	assert.Error(t, err)
}

func TestManifestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n  - name: a\n    location: http://localhost:1\n"), 0644))

	w, err := NewManifestWatcher(path, discardLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Start() }()

	select {
	case m := <-w.Updates():
		require.Len(t, m.Services, 1)
		assert.Equal(t, "a", m.Services[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial manifest load")
	}

	require.NoError(t, os.WriteFile(path, []byte("services:\n  - name: a\n    location: http://localhost:1\n  - name: b\n    location: http://localhost:2\n"), 0644))

	select {
	case m := <-w.Updates():
		assert.Len(t, m.Services, 2)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload after write")
	}
}

func TestNewManifestWatcherEmptyPathNeverFires(t *testing.T) {
	w, err := NewManifestWatcher("", discardLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Start() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start with empty path should return promptly")
	}
}
