// Command assistantctl talks to a running assistant gateway.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	server string
	output string
	apiKey string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "assistantctl",
		Short: "Command line client for the assistant gateway",
		Long: `assistantctl sends chat turns and CRM lookups to the assistant gateway.

Commands:
  chat    Send a chat message and stream the answer
  crm     Ask the CRM assistant a question
  health  Probe a CRM endpoint
  agents  List configured agents
  watch   Follow a conversation over the websocket endpoint`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.server, "server", "s", envOr("ASSISTANT_SERVER", "http://localhost:3000"), "Gateway base URL")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format (text, json)")
	cmd.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("WS_API_KEY"), "API key for the websocket endpoint")

	cmd.AddCommand(
		newChatCmd(opts),
		newCRMCmd(opts),
		newHealthCmd(opts),
		newAgentsCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
