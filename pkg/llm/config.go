// Backend configuration and environment loading
package llm

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
	DefaultAnthropicBaseURL  = "https://api.anthropic.com/v1"
	DefaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultDeepSeekBaseURL   = "https://api.deepseek.com"
	DefaultGrokBaseURL       = "https://api.x.ai/v1"
	DefaultQwenBaseURL       = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

const DefaultStreamTimeout = 5 * time.Minute

// BackendConfig holds what an opener needs to reach one backend
type BackendConfig struct {
	Backend Backend           `mapstructure:"backend" json:"backend" yaml:"backend"`
	Model   string            `mapstructure:"model" json:"model" yaml:"model"`
	APIKeys []string          `mapstructure:"api_keys" json:"api_keys,omitempty" yaml:"api_keys,omitempty"`
	BaseURL string            `mapstructure:"base_url" json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Timeout time.Duration     `mapstructure:"timeout" json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Extra   map[string]string `mapstructure:"extra" json:"extra,omitempty" yaml:"extra,omitempty"` // Backend-specific settings
}

// envSpec names the environment variables of one backend
type envSpec struct {
	keys    []string
	baseURL string
	model   string
	timeout string
	defURL  string
}

var backendEnv = map[Backend]envSpec{
	BackendOpenAI:     {keys: []string{"OPENAI_API_KEYS", "OPENAI_API_KEY"}, baseURL: "OPENAI_BASE_URL", model: "OPENAI_MODEL", timeout: "OPENAI_TIMEOUT", defURL: DefaultOpenAIBaseURL},
	BackendImage:      {keys: []string{"OPENAI_API_KEYS", "OPENAI_API_KEY"}, baseURL: "OPENAI_BASE_URL", model: "IMAGE_MODEL", timeout: "IMAGE_TIMEOUT", defURL: DefaultOpenAIBaseURL},
	BackendAnthropic:  {keys: []string{"ANTHROPIC_API_KEYS", "ANTHROPIC_API_KEY"}, baseURL: "ANTHROPIC_BASE_URL", model: "ANTHROPIC_MODEL", timeout: "ANTHROPIC_TIMEOUT", defURL: DefaultAnthropicBaseURL},
	BackendGemini:     {keys: []string{"GEMINI_API_KEYS", "GEMINI_API_KEY"}, baseURL: "GEMINI_BASE_URL", model: "GEMINI_MODEL", timeout: "GEMINI_TIMEOUT", defURL: DefaultGeminiBaseURL},
	BackendDeepSeek:   {keys: []string{"DEEPSEEK_API_KEYS", "DEEPSEEK_API_KEY"}, baseURL: "DEEPSEEK_BASE_URL", model: "DEEPSEEK_MODEL", timeout: "DEEPSEEK_TIMEOUT", defURL: DefaultDeepSeekBaseURL},
	BackendGrok:       {keys: []string{"XAI_API_KEYS", "XAI_API_KEY"}, baseURL: "XAI_BASE_URL", model: "XAI_MODEL", timeout: "XAI_TIMEOUT", defURL: DefaultGrokBaseURL},
	BackendQwen:       {keys: []string{"DASHSCOPE_API_KEYS", "DASHSCOPE_API_KEY"}, baseURL: "DASHSCOPE_BASE_URL", model: "QWEN_MODEL", timeout: "DASHSCOPE_TIMEOUT", defURL: DefaultQwenBaseURL},
	BackendOpenRouter: {keys: []string{"OPENROUTER_API_KEYS", "OPENROUTER_API_KEY"}, baseURL: "OPENROUTER_BASE_URL", model: "OPENROUTER_MODEL", timeout: "OPENROUTER_TIMEOUT", defURL: DefaultOpenRouterBaseURL},
	BackendBedrock:    {model: "BEDROCK_MODEL", timeout: "BEDROCK_TIMEOUT"},
}

// parseTimeoutFromEnv parses timeout seconds from an environment variable with fallback to default
func parseTimeoutFromEnv(envVar string, defaultTimeout time.Duration) time.Duration {
	if envVar == "" {
		return defaultTimeout
	}
	if timeoutStr := os.Getenv(envVar); timeoutStr != "" {
		if timeoutSecs, err := strconv.Atoi(timeoutStr); err == nil && timeoutSecs > 0 {
			return time.Duration(timeoutSecs) * time.Second
		}
	}
	return defaultTimeout
}

// splitKeys splits a comma-separated key list, dropping blanks
func splitKeys(v string) []string {
	var keys []string
	for _, k := range strings.Split(v, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// BackendConfigFromEnv builds the configuration of a backend from its environment variables.
// Key variables accept comma-separated lists so the resilience layer can rotate keys.
func BackendConfigFromEnv(backend Backend) BackendConfig {
	spec := backendEnv[backend]
	cfg := BackendConfig{
		Backend: backend,
		BaseURL: spec.defURL,
		Timeout: parseTimeoutFromEnv(spec.timeout, DefaultStreamTimeout),
	}

	for _, name := range spec.keys {
		if keys := splitKeys(os.Getenv(name)); len(keys) > 0 {
			cfg.APIKeys = keys
			break
		}
	}
	if spec.baseURL != "" {
		if baseURL := os.Getenv(spec.baseURL); baseURL != "" {
			cfg.BaseURL = baseURL
		}
	}
	if spec.model != "" {
		cfg.Model = os.Getenv(spec.model)
	}
	if backend == BackendBedrock {
		if region := os.Getenv("AWS_REGION"); region != "" {
			cfg.Extra = map[string]string{"region": region}
		}
	}
	return cfg
}

// WithDefaults fills the base URL and timeout of a configuration
func (c BackendConfig) WithDefaults() BackendConfig {
	if c.BaseURL == "" {
		c.BaseURL = backendEnv[c.Backend].defURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultStreamTimeout
	}
	return c
}
