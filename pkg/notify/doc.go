// Package notify batches the text and thinking deltas of a streaming message
// before they are pushed to the outbound pub/sub sink.
//
// A Batcher flushes on the first of: the batch reaching MaxItems, MaxDelay
// elapsed since the last flush, or IdleTimeout elapsed since the last item. A
// deadline timer armed by the first item of an empty batch keeps any item from
// waiting more than MaxDelay. The first text delta of a turn is pushed at once.
//
// Flushes coalesce consecutive items of the same kind and preserve arrival order
// within and across batches.
package notify
