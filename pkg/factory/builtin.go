package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/providers/anthropic"
	"github.com/inercia/go-llm-stream/pkg/providers/bedrock"
	"github.com/inercia/go-llm-stream/pkg/providers/deepseek"
	"github.com/inercia/go-llm-stream/pkg/providers/gemini"
	"github.com/inercia/go-llm-stream/pkg/providers/grok"
	"github.com/inercia/go-llm-stream/pkg/providers/image"
	"github.com/inercia/go-llm-stream/pkg/providers/mock"
	"github.com/inercia/go-llm-stream/pkg/providers/openai"
	"github.com/inercia/go-llm-stream/pkg/providers/openrouter"
	"github.com/inercia/go-llm-stream/pkg/providers/qwen"
	"github.com/inercia/go-llm-stream/pkg/transport"
)

// httpOpener is the opener of every backend reached over plain HTTP
func httpOpener(_ context.Context, cfg llm.BackendConfig, logger *zap.Logger) (llm.StreamOpener, error) {
	return transport.NewHTTPOpener(cfg, transport.WithLogger(logger)), nil
}

func init() {
	Register(llm.BackendOpenAI, Entry{
		Parser: func(logger *zap.Logger) llm.Parser { return openai.NewParser(openai.WithLogger(logger)) },
		Opener: httpOpener,
	})

	Register(llm.BackendAnthropic, Entry{
		Parser: func(logger *zap.Logger) llm.Parser { return anthropic.NewParser(anthropic.WithLogger(logger)) },
		Opener: httpOpener,
	})

	Register(llm.BackendGemini, Entry{
		Parser: func(logger *zap.Logger) llm.Parser { return gemini.NewParser(gemini.WithLogger(logger)) },
		Opener: httpOpener,
	})

	Register(llm.BackendDeepSeek, Entry{
		Parser: func(logger *zap.Logger) llm.Parser { return deepseek.NewParser(deepseek.WithLogger(logger)) },
		Opener: httpOpener,
	})

	Register(llm.BackendGrok, Entry{
		Parser: func(logger *zap.Logger) llm.Parser { return grok.NewParser(grok.WithLogger(logger)) },
		Opener: httpOpener,
	})

	Register(llm.BackendQwen, Entry{
		Parser: func(logger *zap.Logger) llm.Parser { return qwen.NewParser(qwen.WithLogger(logger)) },
		Opener: httpOpener,
	})

	Register(llm.BackendOpenRouter, Entry{
		Parser: func(logger *zap.Logger) llm.Parser { return openrouter.NewParser(openrouter.WithLogger(logger)) },
		Opener: httpOpener,
	})

	Register(llm.BackendImage, Entry{
		Parser: func(logger *zap.Logger) llm.Parser { return image.NewParser(image.WithLogger(logger)) },
		Opener: httpOpener,
	})

	// Bedrock hosts Anthropic models and streams Anthropic events
	Register(llm.BackendBedrock, Entry{
		Parser: func(logger *zap.Logger) llm.Parser {
			return anthropic.NewParser(anthropic.WithLogger(logger), anthropic.WithBackend(llm.BackendBedrock))
		},
		Opener: func(ctx context.Context, cfg llm.BackendConfig, logger *zap.Logger) (llm.StreamOpener, error) {
			return bedrock.NewOpener(ctx, cfg, bedrock.WithLogger(logger))
		},
	})

	Register(llm.BackendMock, Entry{
		Parser: func(*zap.Logger) llm.Parser { return mock.NewParser() },
		Opener: func(context.Context, llm.BackendConfig, *zap.Logger) (llm.StreamOpener, error) {
			return mock.NewSource(), nil
		},
	})
}
