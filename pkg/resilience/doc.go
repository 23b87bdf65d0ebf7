// Package resilience retries whole conversation attempts and manages the health
// of provider API keys.
//
// Handler.Execute runs an attempt with a key acquired from a KeyPool. Transient
// failures are retried with exponential backoff; when the backend reports the key
// as rate limited the key is put on cooldown and the next attempt runs with a
// different one. Streams are never resumed: every retry redoes the attempt from
// its first turn. Cancellation is never retried.
//
// The handler is the only component writing key health. MemoryKeyPool keeps the
// cooldowns in process; RedisKeyPool shares them between processes.
package resilience
