package models

import "time"

type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageImage  MessageKind = "image"
	MessageFile   MessageKind = "file"
	MessageSystem MessageKind = "system"
)

type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

type Message struct {
	ID                string      `json:"id"`
	ConversationID    string      `json:"conversation_id"`
	SenderID          string      `json:"sender_id"`
	SenderDisplayName string      `json:"sender_display_name"`
	Body              string      `json:"body"`
	SentAt            time.Time   `json:"sent_at"`
	Kind              MessageKind `json:"kind"`
	Read              bool        `json:"read"`
	// Seq is the durable per-conversation sequence; zero while the message
	// only exists in the local working log.
	Seq         uint64       `json:"seq,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Sender identifies who is posting a message.
type Sender struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
