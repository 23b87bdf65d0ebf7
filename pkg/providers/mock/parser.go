package mock

import (
	"encoding/json"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// Parser decodes mock wire events
type Parser struct{}

// NewParser creates a mock event parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes one mock event
func (p *Parser) Parse(raw []byte) llm.Chunk {
	return llm.GuardParse(nil, llm.BackendMock, raw, func(b []byte) llm.Chunk {
		var c llm.Chunk
		if err := json.Unmarshal(b, &c); err != nil {
			return llm.ParseErrorChunk("mock: " + err.Error())
		}
		c.FinishReason = llm.NormalizeFinishReason(string(c.FinishReason))
		return c
	})
}
