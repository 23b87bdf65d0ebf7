// Model information and capabilities
package llm

// ModelInfo is the capability profile of a backend model
type ModelInfo struct {
	Name              string  `json:"name" yaml:"name"`
	Backend           Backend `json:"backend" yaml:"backend"`
	MaxTokens         int     `json:"max_tokens" yaml:"max_tokens"`
	SupportsTools     bool    `json:"supports_tools" yaml:"supports_tools"`
	SupportsThinking  bool    `json:"supports_thinking" yaml:"supports_thinking"`
	SupportsStreaming bool    `json:"supports_streaming" yaml:"supports_streaming"`
}
