package main

import (
	"os"

	"github.com/anhkiet307/swapstation/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
