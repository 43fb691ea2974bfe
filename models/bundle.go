package models

import "time"

// Export bundle format identifiers. Importers must dispatch on both the
// format string and the version and reject anything they do not know,
// rather than assuming structure.
const (
	BundleFormatConversation = "chatvault/conversation"
	BundleFormatArchive      = "chatvault/archive"

	BundleVersion = 1
)

// BundleMessage is one exported message in the clear. Bundles are produced
// from an unlocked session and re-encrypted on import; they never carry key
// material, wrapped or otherwise.
type BundleMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationBundle is the self-describing export of one conversation.
type ConversationBundle struct {
	Version    int       `json:"version"`
	Format     string    `json:"format"`
	ExportedAt time.Time `json:"exported_at"`

	ID        string    `json:"id"`
	Title     string    `json:"title"`
	FolderID  *string   `json:"folder_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []BundleMessage `json:"messages"`
}

// ArchiveBundle combines per-conversation bundles into one export. Each
// element is itself a complete, self-describing ConversationBundle, so an
// archive can be reassembled from individually exported files.
type ArchiveBundle struct {
	Version    int       `json:"version"`
	Format     string    `json:"format"`
	ExportedAt time.Time `json:"exported_at"`

	Conversations []ConversationBundle `json:"conversations"`
}
