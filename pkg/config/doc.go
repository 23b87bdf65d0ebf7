// Package config loads the engine configuration.
//
// Values come, in increasing precedence, from built-in defaults, an optional
// configuration file, a .env file and LLMSTREAM_-prefixed environment
// variables. Nested keys map to variables with dots replaced by underscores:
//
//	LLMSTREAM_BACKEND_MODEL=gpt-4o
//	LLMSTREAM_RETRY_MAX_RETRIES=5
//	LLMSTREAM_BACKEND_API_KEYS=sk-one,sk-two
//
// API keys not configured this way fall back to the backend's own variables
// (OPENAI_API_KEYS, ANTHROPIC_API_KEY, ...).
//
// The package also carries the capability profiles of known models, embedded
// as YAML and overridable from a file.
package config
