// Core payload and usage types
package llm

// Payload is the opaque outbound request body produced by a payload builder.
// The engine never inspects it; stream openers send it as-is.
type Payload struct {
	Body        []byte            `json:"body"`
	ContentType string            `json:"content_type,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`

	// Path overrides the opener's default endpoint path when set
	Path string `json:"path,omitempty"`
}

// Usage represents accumulated token usage
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add folds the token counts carried by a chunk into the usage totals
func (u *Usage) Add(c Chunk) {
	if c.InputTokens != nil {
		u.InputTokens += *c.InputTokens
	}
	if c.OutputTokens != nil {
		u.OutputTokens += *c.OutputTokens
	}
}

// Total returns input plus output tokens
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}
