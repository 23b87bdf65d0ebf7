// Backend identifiers
package llm

import (
	"fmt"
	"strings"
)

// Backend identifies an upstream model provider. The set is closed; parsers and
// openers are resolved from it once, at request setup.
type Backend string

const (
	BackendOpenAI     Backend = "openai"
	BackendAnthropic  Backend = "anthropic"
	BackendGemini     Backend = "gemini"
	BackendDeepSeek   Backend = "deepseek"
	BackendGrok       Backend = "grok"
	BackendQwen       Backend = "qwen"
	BackendImage      Backend = "image"
	BackendOpenRouter Backend = "openrouter"
	BackendBedrock    Backend = "bedrock"
	BackendMock       Backend = "mock"
)

// Backends lists every known backend
func Backends() []Backend {
	return []Backend{
		BackendOpenAI, BackendAnthropic, BackendGemini, BackendDeepSeek, BackendGrok,
		BackendQwen, BackendImage, BackendOpenRouter, BackendBedrock, BackendMock,
	}
}

// ParseBackend resolves a configured backend name
func ParseBackend(name string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(name)))
	switch b {
	case "xai":
		return BackendGrok, nil
	case "claude":
		return BackendAnthropic, nil
	case "dashscope":
		return BackendQwen, nil
	}
	for _, known := range Backends() {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, name)
}

func (b Backend) String() string {
	return string(b)
}
