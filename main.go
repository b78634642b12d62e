package main

import (
	"os"

	"github.com/Pavansyamala/agenticAItutor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
