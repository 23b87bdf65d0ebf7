// Package factory resolves a backend selection into the parser, stream opener and
// capability profile used for a conversation request.
//
// Backends are registered once, at init time, in a closed table keyed by llm.Backend.
// Resolution happens once per request; nothing downstream inspects backend types.
//
// Example usage:
//
//	import (
//	    "github.com/inercia/go-llm-stream/pkg/factory"
//	    "github.com/inercia/go-llm-stream/pkg/llm"
//	)
//
//	f := factory.New(factory.WithLogger(logger))
//	resolved, err := f.Resolve(ctx, llm.BackendConfigFromEnv(llm.BackendAnthropic))
//	if err != nil {
//	    return err
//	}
//	stream, err := resolved.Opener.Open(ctx, payload, apiKey)
package factory
