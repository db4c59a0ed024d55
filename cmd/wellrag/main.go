package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cloo-solutions/wellrag/internal/cli"
	"github.com/cloo-solutions/wellrag/internal/cli/app"
)

var version = "dev"

func main() {
	rootCmd := app.NewRootCmd(version)

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
