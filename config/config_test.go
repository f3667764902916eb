package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	require.NoError(t, RegisterFlags(cmd))
	require.NoError(t, cmd.ParseFlags(args))
	return LoadConfig(cmd)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CARRIERWATCHER_DATA_DIR", "")
	t.Setenv("AZURE_CLIENT_ID", "")
	t.Setenv("IMAP_PASS", "")

	cfg, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, SourceGraph, cfg.Source)
	assert.Equal(t, 30, cfg.FetchLimit)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "INBOX", cfg.IMAPFolder)
	assert.True(t, cfg.UseTLS)
	assert.False(t, cfg.DryRun)
}

func TestLoadConfig_EnvFallbacks(t *testing.T) {
	t.Setenv("CARRIERWATCHER_DATA_DIR", "/srv/cw")
	t.Setenv("AZURE_CLIENT_ID", "client-from-env")
	t.Setenv("IMAP_PASS", "secret")

	cfg, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/srv/cw"), cfg.DataDir)
	assert.Equal(t, "client-from-env", cfg.ClientID)
	assert.Equal(t, "secret", cfg.IMAPPass)

	cfg, err = parse(t, "--client-id", "flag-wins", "--data-dir", "elsewhere")
	require.NoError(t, err)
	assert.Equal(t, "flag-wins", cfg.ClientID)
	assert.Equal(t, "elsewhere", cfg.DataDir)
}

func TestLoadConfig_Normalizes(t *testing.T) {
	cfg, err := parse(t, "--source", " IMAP ", "--log-level", "WARNING")
	require.NoError(t, err)
	assert.Equal(t, SourceIMAP, cfg.Source)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"source", []string{"--source", "pop3"}},
		{"limit", []string{"--fetch-limit", "0"}},
		{"timeout", []string{"--fetch-timeout", "0s"}},
		{"port", []string{"--imap-port", "70000"}},
		{"log level", []string{"--log-level", "trace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	const key = "CARRIERWATCHER_TEST_ENV_KEY"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-file", os.Getenv(key))

	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}
