// Command streamctl is the operator tool for the streaming gateway.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Version:       version,
		Use:           "streamctl",
		Short:         "Operator tool for the streamgate media gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newEncodeCmd(), newDecodeCmd(), newSessionCmd(), newStatsCmd())
	return root
}

// envString registers a string flag whose default comes from an environment variable.
func envString(fs *pflag.FlagSet, name, env, usage string) {
	fs.String(name, os.Getenv(env), fmt.Sprintf("%s (env: %s)", usage, env))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
