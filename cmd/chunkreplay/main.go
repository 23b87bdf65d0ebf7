// Command chunkreplay replays a captured raw backend stream through the
// backend's parser and tool-call aggregator, printing every normalized chunk
// and a summary of the turn.
//
//	chunkreplay --backend anthropic capture.sse
//	chunkreplay --backend gemini --format jsonl --output summary events.jsonl
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
