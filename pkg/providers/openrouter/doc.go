// Package openrouter decodes OpenRouter stream chunks into llm.Chunk values.
// OpenRouter relays many upstream models behind the chat-completions dialect and
// streams reasoning as delta.reasoning.
package openrouter
