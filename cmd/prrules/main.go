package main

import (
	"context"
	"os"

	"github.com/liamcoop/prrules/internal/cli"
)

func main() {
	// cobra has already printed the error
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
