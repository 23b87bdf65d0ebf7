// Package openai decodes OpenAI Responses API stream events into llm.Chunk values.
//
// The Responses API emits typed SSE events ("response.output_text.delta",
// "response.function_call_arguments.delta", "response.completed", ...). Each
// event is inspected with gjson rather than unmarshalled into a full struct, so
// new event types added upstream degrade to empty chunks instead of errors.
//
// Usage:
//
//	p := openai.NewParser(openai.WithLogger(logger))
//	chunk := p.Parse(rawEvent)
package openai
