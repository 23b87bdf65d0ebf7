// Package anthropic decodes Anthropic Messages API stream events into llm.Chunk values.
//
// Events are unmarshalled into the SDK's MessageStreamEventUnion and dispatched on
// their concrete variant. The same parser serves Anthropic models hosted on AWS
// Bedrock, whose payload chunks carry identical event bodies.
package anthropic
