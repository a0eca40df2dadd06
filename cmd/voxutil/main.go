package main

import (
	"os"

	"voxutil/cmd/voxutil/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
