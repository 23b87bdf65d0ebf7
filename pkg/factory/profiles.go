package factory

import (
	"regexp"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// modelCapabilities defines the capabilities for a model pattern
type modelCapabilities struct {
	pattern          *regexp.Regexp
	maxTokens        int
	supportsTools    bool
	supportsThinking bool
}

// modelCapabilitiesList defines capabilities per backend.
// Models are matched in order, first match wins.
var modelCapabilitiesList = map[llm.Backend][]modelCapabilities{
	llm.BackendOpenAI: {
		{pattern: regexp.MustCompile(`^(o1|o3|o4|gpt-5)`), maxTokens: 200000, supportsTools: true, supportsThinking: true},
		{pattern: regexp.MustCompile(`^gpt-4\.1`), maxTokens: 1047576, supportsTools: true},
		{pattern: regexp.MustCompile(`^gpt-4o`), maxTokens: 128000, supportsTools: true},
	},
	llm.BackendAnthropic: {
		{pattern: regexp.MustCompile(`claude-(opus|sonnet)-4|claude-3-7`), maxTokens: 200000, supportsTools: true, supportsThinking: true},
		{pattern: regexp.MustCompile(`claude-3`), maxTokens: 200000, supportsTools: true},
	},
	llm.BackendBedrock: {
		{pattern: regexp.MustCompile(`anthropic\.claude-(opus|sonnet)-4|anthropic\.claude-3-7`), maxTokens: 200000, supportsTools: true, supportsThinking: true},
		{pattern: regexp.MustCompile(`anthropic\.claude`), maxTokens: 200000, supportsTools: true},
	},
	llm.BackendGemini: {
		{pattern: regexp.MustCompile(`gemini-2\.5`), maxTokens: 1048576, supportsTools: true, supportsThinking: true},
		{pattern: regexp.MustCompile(`gemini-1\.5-pro`), maxTokens: 2000000, supportsTools: true},
		{pattern: regexp.MustCompile(`gemini-`), maxTokens: 1000000, supportsTools: true},
	},
	llm.BackendDeepSeek: {
		{pattern: regexp.MustCompile(`deepseek-reasoner`), maxTokens: 65536, supportsTools: true, supportsThinking: true},
		{pattern: regexp.MustCompile(`deepseek-chat`), maxTokens: 65536, supportsTools: true},
	},
	llm.BackendGrok: {
		{pattern: regexp.MustCompile(`grok-(3-mini|4)`), maxTokens: 256000, supportsTools: true, supportsThinking: true},
	},
	llm.BackendQwen: {
		{pattern: regexp.MustCompile(`qwq|qwen3`), maxTokens: 131072, supportsTools: true, supportsThinking: true},
	},
}

// backendDefaults are the capabilities of models no pattern matches
var backendDefaults = map[llm.Backend]modelCapabilities{
	llm.BackendOpenAI:     {maxTokens: 128000, supportsTools: true},
	llm.BackendAnthropic:  {maxTokens: 200000, supportsTools: true},
	llm.BackendBedrock:    {maxTokens: 200000, supportsTools: true},
	llm.BackendGemini:     {maxTokens: 1000000, supportsTools: true},
	llm.BackendDeepSeek:   {maxTokens: 65536, supportsTools: true},
	llm.BackendGrok:       {maxTokens: 131072, supportsTools: true},
	llm.BackendQwen:       {maxTokens: 131072, supportsTools: true},
	llm.BackendOpenRouter: {maxTokens: 128000, supportsTools: true},
	llm.BackendImage:      {},
	llm.BackendMock:       {maxTokens: 8192, supportsTools: true, supportsThinking: true},
}

// DefaultProfile returns the built-in capability profile of a model
func DefaultProfile(backend llm.Backend, model string) llm.ModelInfo {
	caps := backendDefaults[backend]
	for _, modelCaps := range modelCapabilitiesList[backend] {
		if modelCaps.pattern.MatchString(model) {
			caps = modelCaps
			break
		}
	}

	return llm.ModelInfo{
		Name:              model,
		Backend:           backend,
		MaxTokens:         caps.maxTokens,
		SupportsTools:     caps.supportsTools,
		SupportsThinking:  caps.supportsThinking,
		SupportsStreaming: backend != llm.BackendImage,
	}
}
