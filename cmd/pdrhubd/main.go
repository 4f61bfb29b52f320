package main

import (
	"os"

	"github.com/marmos91/pdrhub/cmd/pdrhubd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
