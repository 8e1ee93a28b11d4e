package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "resolver",
		Short:         "Resolve Project Gutenberg books to download URLs on a mirror",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newIndexCommand(),
		newResolveCommand(),
		newServeCommand(),
		newTranslateCommand(),
	)
	return root
}
