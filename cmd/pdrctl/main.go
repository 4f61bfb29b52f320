package main

import (
	"os"

	"github.com/marmos91/pdrhub/cmd/pdrctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
