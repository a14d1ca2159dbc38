package domain

import "time"

// DefaultConversationTitle is the title of a conversation before its first
// user message.
const DefaultConversationTitle = "New Chat"

const maxTitleLength = 50

// Conversation is a persisted chat history.
type Conversation struct {
	ID      string `json:"id"`
	AgentID string `json:"agent_id"`
	Title   string `json:"title"`
	// UpstreamID is the conversation id assigned by the chat upstream. It is
	// sent back on later turns so the upstream keeps its own context.
	UpstreamID string    `json:"upstream_conversation_id,omitempty"`
	Messages   []Message `json:"messages,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Message is one turn of a conversation.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Role           MessageRole      `json:"role"`
	Content        string           `json:"content"`
	Metadata       *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// TitleFromQuery derives a conversation title from the first user message.
func TitleFromQuery(query string) string {
	runes := []rune(query)
	if len(runes) <= maxTitleLength {
		return query
	}
	return string(runes[:maxTitleLength]) + "..."
}
