package main

import (
	"context"
	"os"

	"membuddy/internal/cli"
)

func main() {
	if err := cli.RootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
