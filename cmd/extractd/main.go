package main

import (
	"os"

	"github.com/parchment-labs/extractd/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
