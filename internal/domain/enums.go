// Package domain defines the core domain models for the assistant gateway.
package domain

// EventKind identifies the type of a stream event sent by the chat upstream.
type EventKind string

const (
	EventKindMessage        EventKind = "message"
	EventKindAgentMessage   EventKind = "agent_message"
	EventKindMessageEnd     EventKind = "message_end"
	EventKindMessageReplace EventKind = "message_replace"
	EventKindMessageFile    EventKind = "message_file"
	EventKindAgentThought   EventKind = "agent_thought"
	EventKindError          EventKind = "error"
	EventKindPing           EventKind = "ping"
)

// FailureKind classifies the final failure of a resilient request.
type FailureKind string

const (
	FailureNetwork   FailureKind = "network"
	FailureTimeout   FailureKind = "timeout"
	FailureHTTPError FailureKind = "http_error"
)

// AgentKind selects which upstream an agent talks to.
type AgentKind string

const (
	AgentKindChat AgentKind = "chat"
	AgentKindCRM  AgentKind = "crm"
)

// MessageRole is the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ResponseMode selects streaming or blocking chat responses.
type ResponseMode string

const (
	ResponseModeStreaming ResponseMode = "streaming"
	ResponseModeBlocking  ResponseMode = "blocking"
)

// CheckStatus is the status of a single health check.
type CheckStatus string

const (
	CheckUnknown CheckStatus = "unknown"
	CheckOK      CheckStatus = "ok"
	CheckInfo    CheckStatus = "info"
	CheckWarning CheckStatus = "warning"
	CheckError   CheckStatus = "error"
)
