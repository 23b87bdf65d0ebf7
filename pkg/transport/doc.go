// Package transport opens backend streams over HTTP.
//
// HTTPOpener posts an opaque llm.Payload to a backend endpoint and exposes the
// response as an llm.EventStream: server-sent events yield one raw event per
// "data:" block, single-body responses (image generation) yield the whole body
// once. Non-2xx responses are decoded into *llm.Error with Retry-After honored.
package transport
