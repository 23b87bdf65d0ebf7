package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// GuardParse runs parse over raw and converts a panic raised inside a decoder into
// an error-parsing chunk, so one malformed event never aborts a healthy stream
func GuardParse(logger *zap.Logger, backend Backend, raw []byte, parse func([]byte) Chunk) (chunk Chunk) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Warn("parser panicked on raw event",
					zap.String("backend", backend.String()),
					zap.Any("panic", r),
					zap.Int("raw_len", len(raw)))
			}
			chunk = ParseErrorChunk(fmt.Sprintf("%s: undecodable event: %v", backend, r))
		}
	}()
	return parse(raw)
}

// GuardParseAll is GuardParse for parsers producing several chunks per event
func GuardParseAll(logger *zap.Logger, backend Backend, raw []byte, parse func([]byte) []Chunk) (chunks []Chunk) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Warn("parser panicked on raw event",
					zap.String("backend", backend.String()),
					zap.Any("panic", r),
					zap.Int("raw_len", len(raw)))
			}
			chunks = []Chunk{ParseErrorChunk(fmt.Sprintf("%s: undecodable event: %v", backend, r))}
		}
	}()
	return parse(raw)
}
