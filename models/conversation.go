package models

import "time"

// Role identifies the author of a message within a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Conversation is a stored conversation together with its encrypted
// messages. Temporary conversations are kept out of the listing index and
// out of exports; promotion to persistent is one-directional.
type Conversation struct {
	// ID is the client-generated UUID of the conversation.
	ID string `json:"id"`

	// Title is the plaintext display title. Titles are metadata, not
	// message content, and are stored unencrypted like the rest of the
	// listing index.
	Title string `json:"title"`

	// FolderID optionally places the conversation in a folder.
	FolderID *string `json:"folder_id,omitempty"`

	// IsTemporary marks a conversation excluded from the index and from
	// export. A temporary conversation can be promoted, never demoted.
	IsTemporary bool `json:"is_temporary"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages are the encrypted message rows, oldest first.
	Messages []Message `json:"messages,omitempty"`
}

// TableName returns the name of the database table
// associated with the Conversation model.
func (c Conversation) TableName() string {
	return "conversations"
}

// Message is one encrypted message at rest. The body is opaque until
// decrypted with the owning conversation's CEK; no other key can open it.
type Message struct {
	// ID is the client-generated UUID of the message.
	ID string `json:"id"`

	// ConversationID is the owning conversation.
	ConversationID string `json:"conversation_id"`

	// Role is the message author role. Stored in the clear: it is needed
	// for rendering corrupted entries whose body cannot be recovered.
	Role Role `json:"role"`

	// Body is the encrypted message content.
	Body CipherBlob `json:"body"`

	// Timestamp is when the message was saved.
	Timestamp time.Time `json:"timestamp"`
}

// TableName returns the name of the database table
// associated with the Message model.
func (m Message) TableName() string {
	return "messages"
}

// ConversationSummary is a listing-index entry. Only persistent
// conversations ever appear in the index.
type ConversationSummary struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	FolderID     *string    `json:"folder_id,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
	MessageCount int        `json:"message_count"`
}

// MessageView is a read-side message: either the decrypted content or an
// explicit corrupted marker. Callers must branch on Corrupted; there is no
// error to swallow and no exception path for a bad row.
type MessageView struct {
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content is the decrypted plaintext. Empty when Corrupted is set.
	Content string `json:"content,omitempty"`

	// Corrupted reports that this message failed authentication on decrypt.
	// The row is preserved in storage for future repair tooling.
	Corrupted bool `json:"corrupted,omitempty"`

	// Reason is a short human-readable cause, e.g. "authentication failed".
	Reason string `json:"reason,omitempty"`
}

// ConversationView is a fully read conversation: every decryptable message
// plus explicit markers for the ones that were not, with a per-read count of
// the latter. A read never fails because one row is bad.
type ConversationView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	FolderID    *string   `json:"folder_id,omitempty"`
	IsTemporary bool      `json:"is_temporary"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Messages []MessageView `json:"messages"`

	// CorruptedCount is the number of messages in this view that could not
	// be decrypted.
	CorruptedCount int `json:"corrupted_count"`
}
