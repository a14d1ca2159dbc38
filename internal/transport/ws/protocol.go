package ws

import "github.com/emrenamli69/regnum-presentation/internal/domain"

// Frame types from client to server
const (
	TypeChatSend      = "chat.send"
	TypeChatSubscribe = "chat.subscribe"
)

// Frame types from server to client
const (
	TypeChatSubscribed = "chat.subscribed"
	TypeChatEvent      = "chat.event"
	TypeChatDone       = "chat.done"
	TypeChatError      = "chat.error"
)

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeUnauthorized   = "unauthorized"
	ErrorCodeTurnFailed     = "turn_failed"
)

// BaseFrame contains common fields for all frames.
type BaseFrame struct {
	Type           string `json:"type"`
	Ts             int64  `json:"ts"`
	RequestID      string `json:"request_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatSendFrame starts a chat turn. The turn always streams.
type ChatSendFrame struct {
	BaseFrame
	Message domain.SendMessageInput `json:"message"`
}

// ChatSubscribeFrame binds the connection to a conversation so it receives
// the events of turns started elsewhere.
type ChatSubscribeFrame struct {
	BaseFrame
}

// ChatEventFrame carries one stream event.
type ChatEventFrame struct {
	BaseFrame
	Event domain.StreamEvent `json:"event"`
}

// ChatDoneFrame is sent when a turn completes.
type ChatDoneFrame struct {
	BaseFrame
	MessageID string `json:"message_id"`
	Answer    string `json:"answer"`
}

// ErrorFrame reports a failure.
type ErrorFrame struct {
	BaseFrame
	Code    string `json:"code"`
	Message string `json:"message"`
}
