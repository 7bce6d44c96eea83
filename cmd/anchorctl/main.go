// Command anchorctl drives a vcanchor deployment from the terminal: issue
// credentials, work the anchor queue, hand out claim tickets and run
// verification sessions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vcanchor/pkg/client"
)

const programName = "anchorctl"

var globalFlags = struct {
	apiURL  string
	token   string
	timeout time.Duration
	json    bool
}{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           programName,
		Short:         "Operate the vcanchor credential anchoring service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&globalFlags.apiURL, "api-url", envOr("VCANCHOR_API_URL", "http://localhost:8080"), "vcanchor API base URL")
	root.PersistentFlags().StringVar(&globalFlags.token, "token", os.Getenv("VCANCHOR_TOKEN"), "operator bearer token (see tokengen)")
	root.PersistentFlags().DurationVar(&globalFlags.timeout, "timeout", 30*time.Second, "per-request timeout")
	root.PersistentFlags().BoolVar(&globalFlags.json, "json", false, "print raw JSON responses")

	root.AddCommand(
		issueCommand(),
		showCommand(),
		revokeCommand(),
		enqueueCommand(),
		queueCommand(),
		approveCommand(),
		runSingleCommand(),
		mintCommand(),
		batchesCommand(),
		proofCommand(),
		claimCommand(),
		framesCommand(),
		redeemCommand(),
		verifyCommand(),
		presentCommand(),
	)
	return root
}

func newClient() *client.Client {
	return client.New(globalFlags.apiURL, client.WithToken(globalFlags.token), client.WithUserAgent("anchorctl"))
}

// requestContext bounds one API call; long-running flows such as verify use
// the command context directly.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), globalFlags.timeout)
}

// render prints v as indented JSON when --json is set and via human otherwise.
func render(w io.Writer, v any, human func(io.Writer)) error {
	if globalFlags.json || human == nil {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(w)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
