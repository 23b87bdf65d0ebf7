// Package grok decodes xAI Grok stream chunks into llm.Chunk values.
//
// xAI reports reasoning tokens apart from completion tokens, so the output
// token count of a chunk is completion_tokens plus reasoning_tokens.
package grok
