package main

import (
	"os"

	"github.com/bianoble/kunai/cmd/kunai/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
