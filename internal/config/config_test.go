package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "http://localhost:5173", cfg.AppOrigin)
	assert.Equal(t, "/api/join/", cfg.JoinPathPrefix)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, "calshare.changes", cfg.NATS.Subject)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calshare.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
app_origin: "https://cal.example.com/"
timezone: "Asia/Seoul"
logging:
  level: debug
  format: json
nats:
  enabled: true
  url: "nats://broker:4222"
`), 0o600))

	t.Setenv("CALSHARE_LISTEN", ":9100")
	t.Setenv("CALSHARE_NATS_SUBJECT", "team.changes")

	fs := Flags()
	require.NoError(t, fs.Parse([]string{"--config", path, "--log-level", "warn"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, ":9100", cfg.Listen, "env beats file")
	assert.Equal(t, "https://cal.example.com", cfg.AppOrigin)
	assert.Equal(t, "Asia/Seoul", cfg.Location.String())
	assert.Equal(t, "warn", cfg.Logging.Level, "flag beats file")
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "team.changes", cfg.NATS.Subject)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"relative origin", map[string]string{"CALSHARE_APP_ORIGIN": "localhost"}},
		{"join prefix", map[string]string{"CALSHARE_JOIN_PATH_PREFIX": "join"}},
		{"timezone", map[string]string{"CALSHARE_TIMEZONE": "Mars/Olympus"}},
		{"log level", map[string]string{"CALSHARE_LOGGING_LEVEL": "loud"}},
		{"nats without subject", map[string]string{"CALSHARE_NATS_ENABLED": "true", "CALSHARE_NATS_SUBJECT": " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	fs := Flags()
	require.NoError(t, fs.Parse([]string{"-c", filepath.Join(t.TempDir(), "nope.yaml")}))
	_, err := Load(fs)
	assert.Error(t, err)
}

func TestJoinPrefixGetsTrailingSlash(t *testing.T) {
	t.Setenv("CALSHARE_JOIN_PATH_PREFIX", "/join")
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "/join/", cfg.JoinPathPrefix)
}
