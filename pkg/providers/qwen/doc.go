// Package qwen decodes Qwen (DashScope compatible mode) stream chunks into llm.Chunk values.
//
// DashScope's compatible endpoint speaks the OpenAI chat-completions dialect, so
// chunks are decoded with the go-openai stream types. Thinking models stream
// reasoning as delta.reasoning_content.
package qwen
