package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
	"github.com/emrenamli69/regnum-presentation/internal/sse"
)

func newChatCmd(root *rootOptions) *cobra.Command {
	var (
		input    domain.SendMessageInput
		blocking bool
	)
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a chat message and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Query = strings.Join(args, " ")
			input.ResponseMode = domain.ResponseModeStreaming
			if blocking {
				input.ResponseMode = domain.ResponseModeBlocking
			}

			resp, err := newAPIClient(root.server).post(cmd.Context(), "/api/chat", input)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if blocking {
				var res map[string]any
				if err := decode(resp, &res); err != nil {
					return err
				}
				if root.output == "json" {
					return printJSON(out, res)
				}
				fmt.Fprintln(out, res["answer"])
				fmt.Fprintf(cmd.ErrOrStderr(), "conversation: %v\n", res["conversation_id"])
				return nil
			}
			defer resp.Body.Close()

			var (
				streamErr      error
				conversationID string
			)
			term := sse.Consume(cmd.Context(), resp.Body, func(event domain.StreamEvent) error {
				if event.ConversationID != "" {
					conversationID = event.ConversationID
				}
				if root.output == "json" {
					return printJSON(out, event)
				}
				switch {
				case event.IsFragment():
					fmt.Fprint(out, event.Answer)
				case event.Kind == domain.EventKindMessageReplace:
					fmt.Fprintf(out, "\n%s", event.Answer)
				}
				return nil
			}, func(err error) {
				streamErr = err
			})
			if root.output != "json" {
				fmt.Fprintln(out)
			}
			if term == sse.Failed {
				return streamErr
			}
			if conversationID != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "conversation: %s\n", conversationID)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input.AgentID, "agent", "a", "", "Agent id (default: first chat agent)")
	cmd.Flags().StringVarP(&input.ConversationID, "conversation", "c", "", "Continue an existing conversation")
	cmd.Flags().StringVarP(&input.User, "user", "u", "", "End user identifier")
	cmd.Flags().BoolVar(&blocking, "blocking", false, "Wait for the full answer instead of streaming")
	return cmd
}
