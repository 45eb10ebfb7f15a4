package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/testgenius/testgenius/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
