package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LINKEDIN_EMAIL", "someone@example.com")
	t.Setenv("LINKEDIN_PASSWORD", "hunter2")
	t.Setenv("SERPAPI_KEY", "serp-key")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestParseDefaultDocument(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Parse([]byte(defaultDocument))
	require.NoError(t, err)

	assert.Equal(t, "someone@example.com", cfg.LinkedIn.Email)
	assert.Equal(t, "hunter2", cfg.LinkedIn.Password)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "gpt-4", cfg.OpenAI.Model)
	assert.False(t, cfg.Browser.Headless)

	assert.Equal(t, 15*time.Second, cfg.LoginTimeout())
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout())
	assert.Equal(t, 2*time.Second, cfg.SettleDelay())
	assert.Equal(t, time.Second, cfg.PreConnectDelay())
	assert.Equal(t, 5*time.Second, cfg.NoteTimeout())
	assert.Equal(t, 50*time.Second, cfg.SendTimeout())
	assert.Equal(t, 50*time.Millisecond, cfg.SlowMotion())
	assert.Equal(t, time.Hour, cfg.CacheTTL())
}

func TestParseMissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantErr string
	}{
		{name: "email", unset: "LINKEDIN_EMAIL", wantErr: "LinkedIn email is required"},
		{name: "password", unset: "LINKEDIN_PASSWORD", wantErr: "LinkedIn password is required"},
		{name: "serpapi", unset: "SERPAPI_KEY", wantErr: "SerpAPI key is required"},
		{name: "openai", unset: "OPENAI_API_KEY", wantErr: "OpenAI API key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Parse([]byte(defaultDocument))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	setRequiredEnv(t)

	t.Run("log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")
		_, err := Parse([]byte(defaultDocument))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("timeouts", func(t *testing.T) {
		doc := `
linkedin: {email: a@b.c, password: p}
search: {api_key: k, max_results: 3}
openai: {api_key: k, max_tokens: 10}
server: {addr: ":1", max_concurrent_sessions: 1}
workflow: {login_timeout_seconds: 0, navigation_timeout_seconds: 1, note_timeout_seconds: 1, send_timeout_seconds: 1}
logging: {level: info}
`
		_, err := Parse([]byte(doc))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workflow timeouts must be positive")
	})
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CONNECT_TEST_SET", "value")

	assert.Equal(t, "a: value", expandEnvVars("a: ${CONNECT_TEST_SET}"))
	assert.Equal(t, "a: fallback", expandEnvVars("a: ${CONNECT_TEST_UNSET:fallback}"))
	assert.Equal(t, "a: ", expandEnvVars("a: ${CONNECT_TEST_UNSET}"))
	assert.Equal(t, "addr: :9000", expandEnvVars("addr: ${CONNECT_TEST_UNSET::9000}"))
}

func TestLoadFallsBackToDefaultDocument(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Search.MaxResults)
}

func TestLoadReadsConfigFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
linkedin: {email: "${LINKEDIN_EMAIL}", password: "${LINKEDIN_PASSWORD}"}
search: {api_key: "${SERPAPI_KEY}", max_results: 5}
openai: {api_key: "${OPENAI_API_KEY}", max_tokens: 50}
server: {addr: ":7000", max_concurrent_sessions: 4}
workflow: {login_timeout_seconds: 1, navigation_timeout_seconds: 1, note_timeout_seconds: 1, send_timeout_seconds: 1}
logging: {level: debug}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Server.MaxConcurrentSessions)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
