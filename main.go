// The main package for the catalog-ingest executable.
package main

import (
	"github.com/jibbs-ai/catalog-ingest/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
