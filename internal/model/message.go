package model

// GenerateRequest carries the inbound message a reply is drafted for.
type GenerateRequest struct {
	ThreadID  string `json:"threadId"`
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Tone      Tone   `json:"tone"`
}

// MessageData is a single message as read from the mail service.
type MessageData struct {
	ID       string `json:"messageId"`
	ThreadID string `json:"threadId"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// ThreadData is a conversation as read from the mail service.
type ThreadData struct {
	ID       string         `json:"threadId"`
	Messages []*MessageData `json:"messages"`
}

// OutgoingReply is the content sent or stored as a remote draft.
type OutgoingReply struct {
	To        string
	Subject   string
	Body      string
	ThreadID  string
	InReplyTo string
}
