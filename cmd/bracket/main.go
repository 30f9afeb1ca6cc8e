package main

import (
	"os"

	"github.com/wonhee/bracket/cmd/bracket/commands"
)

// main is the entry point for the bracket CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
