// Command rerank runs one rerank request offline against a JSONL corpus and
// prints the response as JSON.
//
// Usage:
//
//	go run ./cmd/rerank --corpus corpus.jsonl --q "solar panels" --rtype ax -p ax.seed=7
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
