package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
	"github.com/emrenamli69/regnum-presentation/internal/transport/ws"
)

// watchFrame covers every server frame the watcher prints.
type watchFrame struct {
	ws.BaseFrame
	Event   domain.StreamEvent `json:"event"`
	Code    string             `json:"code,omitempty"`
	Message string             `json:"message,omitempty"`
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <conversation_id>",
		Short: "Follow a conversation over the websocket endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := websocketURL(root.server, root.apiKey)
			if err != nil {
				return err
			}
			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), addr, nil)
			if err != nil {
				return fmt.Errorf("dial: %w", err)
			}
			defer conn.Close()

			go func() {
				<-cmd.Context().Done()
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				conn.Close()
			}()

			sub := ws.ChatSubscribeFrame{BaseFrame: ws.BaseFrame{
				Type:           ws.TypeChatSubscribe,
				Ts:             time.Now().UnixMilli(),
				ConversationID: args[0],
			}}
			if err := conn.WriteJSON(sub); err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}

			out := cmd.OutOrStdout()
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					if websocket.IsCloseError(err, websocket.CloseNormalClosure) || cmd.Context().Err() != nil {
						return nil
					}
					return fmt.Errorf("read: %w", err)
				}
				if root.output == "json" {
					fmt.Fprintln(out, string(data))
					continue
				}
				var f watchFrame
				if err := json.Unmarshal(data, &f); err != nil {
					continue
				}
				switch f.Type {
				case ws.TypeChatSubscribed:
					fmt.Fprintf(cmd.ErrOrStderr(), "watching %s\n", f.ConversationID)
				case ws.TypeChatEvent:
					if f.Event.IsFragment() {
						fmt.Fprint(out, f.Event.Answer)
					}
				case ws.TypeChatDone:
					fmt.Fprintln(out)
				case ws.TypeChatError:
					fmt.Fprintf(cmd.ErrOrStderr(), "\nerror [%s]: %s\n", f.Code, f.Message)
				}
			}
		},
	}
}

// websocketURL maps the gateway base URL to its websocket endpoint.
func websocketURL(server, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(server, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws/chat"
	if apiKey != "" {
		q := u.Query()
		q.Set("api_key", apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
