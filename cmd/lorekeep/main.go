// Lorekeep is a hybrid search engine for personal knowledge vaults,
// exposed to AI assistants over the Model Context Protocol.
package main

import (
	"os"

	"github.com/lorekeep/lorekeep/cmd/lorekeep/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
