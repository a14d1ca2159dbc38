package domain

// StreamEvent is one unit of progress from the remote chat API.
type StreamEvent struct {
	Kind           EventKind        `json:"event"`
	MessageID      string           `json:"message_id,omitempty"`
	ConversationID string           `json:"conversation_id,omitempty"`
	TaskID         string           `json:"task_id,omitempty"`
	Answer         string           `json:"answer,omitempty"`
	CreatedAt      int64            `json:"created_at,omitempty"`
	Metadata       *MessageMetadata `json:"metadata,omitempty"`

	// Error fields, set only when Kind is EventKindError.
	ErrorMessage string `json:"message,omitempty"`
	ErrorCode    string `json:"code,omitempty"`
	Status       int    `json:"status,omitempty"`
}

// IsFragment reports whether the event carries a piece of the assistant reply.
func (e StreamEvent) IsFragment() bool {
	return e.Kind == EventKindMessage || e.Kind == EventKindAgentMessage
}

// MessageMetadata is the usage and citation payload attached to message_end.
type MessageMetadata struct {
	Usage              *Usage              `json:"usage,omitempty"`
	RetrieverResources []RetrieverResource `json:"retriever_resources,omitempty"`
}

// Usage represents token usage and pricing reported by the upstream.
type Usage struct {
	PromptTokens        int     `json:"prompt_tokens"`
	PromptUnitPrice     string  `json:"prompt_unit_price,omitempty"`
	PromptPriceUnit     string  `json:"prompt_price_unit,omitempty"`
	PromptPrice         string  `json:"prompt_price,omitempty"`
	CompletionTokens    int     `json:"completion_tokens"`
	CompletionUnitPrice string  `json:"completion_unit_price,omitempty"`
	CompletionPriceUnit string  `json:"completion_price_unit,omitempty"`
	CompletionPrice     string  `json:"completion_price,omitempty"`
	TotalTokens         int     `json:"total_tokens"`
	TotalPrice          string  `json:"total_price,omitempty"`
	Currency            string  `json:"currency,omitempty"`
	Latency             float64 `json:"latency,omitempty"`
}

// RetrieverResource is a knowledge-base citation.
type RetrieverResource struct {
	Position     int     `json:"position"`
	DatasetID    string  `json:"dataset_id"`
	DatasetName  string  `json:"dataset_name"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	SegmentID    string  `json:"segment_id"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

// ChatCompletionResponse is the blocking-mode reply of the chat API.
type ChatCompletionResponse struct {
	Event          string           `json:"event"`
	TaskID         string           `json:"task_id"`
	ID             string           `json:"id"`
	MessageID      string           `json:"message_id"`
	ConversationID string           `json:"conversation_id"`
	Mode           string           `json:"mode"`
	Answer         string           `json:"answer"`
	Metadata       *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt      int64            `json:"created_at"`
}

// FileInput is a file attached to a chat request.
type FileInput struct {
	Type           string `json:"type"`
	TransferMethod string `json:"transfer_method"`
	URL            string `json:"url,omitempty"`
	UploadFileID   string `json:"upload_file_id,omitempty"`
}

// ChatRequest is the body sent to the chat API.
type ChatRequest struct {
	Query            string         `json:"query"`
	Inputs           map[string]any `json:"inputs"`
	ResponseMode     ResponseMode   `json:"response_mode,omitempty"`
	User             string         `json:"user"`
	ConversationID   string         `json:"conversation_id,omitempty"`
	Files            []FileInput    `json:"files,omitempty"`
	AutoGenerateName bool           `json:"auto_generate_name,omitempty"`
}
