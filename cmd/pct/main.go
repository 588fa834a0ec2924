package main

import (
	"fmt"
	"os"

	"github.com/scbrown/pct/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pct: %v\n", err)
		os.Exit(1)
	}
}
