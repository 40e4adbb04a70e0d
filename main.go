package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sadopc/studytime/internal/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return cli.Execute(context.Background(), os.Args[1:])
}
