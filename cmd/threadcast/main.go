package main

import (
	"context"
	"os"

	"github.com/threadcast/threadcast/cmd/threadcast/cmd"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cmd.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
