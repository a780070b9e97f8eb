// cmd/taskboard/main.go
//
// This is the entry point for the taskboard CLI.
// Running `taskboard` with no arguments opens the board in the terminal UI;
// the subcommands work on the same project store from scripts.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kingrea/taskboard/cmd/taskboard/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
