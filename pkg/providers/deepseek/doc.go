// Package deepseek decodes DeepSeek chat-completions stream chunks into llm.Chunk values.
//
// Choices and deltas are decoded with the deepseek-go stream types. Reasoning
// models stream their chain of thought as delta.reasoning_content, which is
// surfaced as thinking. Usage arrives on the final chunk.
package deepseek
