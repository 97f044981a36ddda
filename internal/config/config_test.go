package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6540, cfg.Server.Port)
	assert.Equal(t, 5.0, cfg.Sessions.SaveInterval)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
library:
  path: /srv/courses
sessions:
  capacity: 10
  idle_timeout: 5m
  picture_in_picture: false
logging:
  level: debug
  pretty: false
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "/srv/courses", cfg.Library.Path)
	assert.Equal(t, 10, cfg.Sessions.Capacity)
	assert.Equal(t, 5*time.Minute, cfg.Sessions.IdleTimeout)
	assert.False(t, cfg.Sessions.PictureInPicture)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
