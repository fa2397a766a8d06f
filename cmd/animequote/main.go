package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/animequote/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
