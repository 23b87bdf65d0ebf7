package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendConfigFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEYS", "k1, k2,,k3")
	t.Setenv("OPENAI_API_KEY", "ignored")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9999/v1")
	t.Setenv("OPENAI_TIMEOUT", "12")
	t.Setenv("OPENAI_MODEL", "gpt-4.1")

	cfg := BackendConfigFromEnv(BackendOpenAI)
	assert.Equal(t, BackendOpenAI, cfg.Backend)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.APIKeys)
	assert.Equal(t, "http://localhost:9999/v1", cfg.BaseURL)
	assert.Equal(t, 12*time.Second, cfg.Timeout)
	assert.Equal(t, "gpt-4.1", cfg.Model)
}

func TestBackendConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("XAI_API_KEYS", "")
	t.Setenv("XAI_API_KEY", "xai-key")
	t.Setenv("XAI_BASE_URL", "")
	t.Setenv("XAI_TIMEOUT", "not-a-number")

	cfg := BackendConfigFromEnv(BackendGrok)
	assert.Equal(t, []string{"xai-key"}, cfg.APIKeys)
	assert.Equal(t, DefaultGrokBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultStreamTimeout, cfg.Timeout)
}

func TestBackendConfigWithDefaults(t *testing.T) {
	t.Parallel()

	cfg := BackendConfig{Backend: BackendAnthropic}.WithDefaults()
	assert.Equal(t, DefaultAnthropicBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultStreamTimeout, cfg.Timeout)

	custom := BackendConfig{Backend: BackendAnthropic, BaseURL: "http://proxy", Timeout: time.Second}.WithDefaults()
	assert.Equal(t, "http://proxy", custom.BaseURL)
	assert.Equal(t, time.Second, custom.Timeout)
}

func TestParseBackend(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"openai", "OpenAI", " gemini ", "xai", "claude", "dashscope", "mock"} {
		b, err := ParseBackend(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, b)
	}

	b, _ := ParseBackend("xai")
	assert.Equal(t, BackendGrok, b)

	_, err := ParseBackend("cohere")
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}
