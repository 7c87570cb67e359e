package main

import (
	"fmt"
	"os"

	"github.com/hara-ai/hara/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
