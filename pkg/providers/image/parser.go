package image

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/providers/compat"
)

var altEscaper = strings.NewReplacer("[", "(", "]", ")", "\n", " ", "\r", " ")

// Parser decodes image-generation response bodies
type Parser struct {
	logger *zap.Logger
	store  ImageStore
}

// Option configures a Parser
type Option func(*Parser)

// WithLogger sets the logger used for parse diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithStore sets where base64 images are persisted
func WithStore(store ImageStore) Option {
	return func(p *Parser) {
		if store != nil {
			p.store = store
		}
	}
}

// NewParser creates an image response parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: zap.NewNop(), store: DefaultFileStore()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse converts a complete response body into one terminal chunk
func (p *Parser) Parse(raw []byte) llm.Chunk {
	return llm.GuardParse(p.logger, llm.BackendImage, raw, p.parse)
}

func (p *Parser) parse(raw []byte) llm.Chunk {
	if !gjson.ValidBytes(raw) {
		return llm.ParseErrorChunk("image: invalid JSON body")
	}
	if chunk, ok := compat.ErrorChunk(llm.BackendImage, raw); ok {
		return chunk
	}

	images := gjson.GetBytes(raw, "images")
	if !images.IsArray() {
		images = gjson.GetBytes(raw, "data")
	}

	var md strings.Builder
	images.ForEach(func(_, img gjson.Result) bool {
		url := p.imageURL(img)
		if url == "" {
			return true
		}
		alt := altEscaper.Replace(img.Get("revised_prompt").String())
		if alt == "" {
			alt = "image"
		}
		if md.Len() > 0 {
			md.WriteString("\n\n")
		}
		fmt.Fprintf(&md, "![%s](%s)", alt, url)
		return true
	})

	if md.Len() == 0 {
		return llm.BackendErrorChunk(llm.FinishReasonError, "image: response contained no image data")
	}

	chunk := llm.Chunk{TextDelta: md.String(), FinishReason: llm.FinishReasonStop}
	usage := gjson.GetBytes(raw, "usage")
	if in := usage.Get("input_tokens"); in.Exists() {
		chunk.InputTokens = llm.Tokens(int(in.Int()))
	}
	if out := usage.Get("output_tokens"); out.Exists() {
		chunk.OutputTokens = llm.Tokens(int(out.Int()))
	}
	return chunk
}

func (p *Parser) imageURL(img gjson.Result) string {
	if url := img.Get("url").String(); url != "" {
		return url
	}
	b64 := img.Get("b64_json").String()
	if b64 == "" {
		return ""
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		p.logger.Warn("skipping undecodable base64 image", zap.Error(err))
		return ""
	}
	url, err := p.store.Save(data)
	if err != nil {
		p.logger.Error("failed to persist image", zap.Error(err))
		return ""
	}
	return url
}
