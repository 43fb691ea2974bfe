package store

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

import (
	"context"

	"github.com/chatvault/chatvault/models"
)

// KeyRecordRepository is durable associative storage for key material at
// rest: the vault parameter singleton and one wrapped CEK per conversation.
// It never holds an unwrapped key.
type KeyRecordRepository interface {
	// GetVaultParams returns the singleton, or ErrVaultParamsNotFound when
	// encryption has never been set up (or was reset).
	GetVaultParams(ctx context.Context) (models.VaultParams, error)

	// SaveVaultParams writes the singleton, replacing any previous row.
	SaveVaultParams(ctx context.Context, params models.VaultParams) error

	// DeleteVaultParams removes the singleton. Part of destructive reset.
	DeleteVaultParams(ctx context.Context) error

	// GetWrappedKey returns the wrapped CEK record for a conversation, or
	// ErrWrappedKeyNotFound when none exists yet.
	GetWrappedKey(ctx context.Context, conversationID string) (models.WrappedKey, error)

	// SaveWrappedKey writes (or replaces) a conversation's wrapped CEK.
	SaveWrappedKey(ctx context.Context, key models.WrappedKey) error

	// DeleteWrappedKey removes one conversation's wrapped CEK. Absent rows
	// are not an error.
	DeleteWrappedKey(ctx context.Context, conversationID string) error

	// DeleteAllWrappedKeys removes every wrapped CEK. Part of destructive
	// reset; after it, no previously stored ciphertext is recoverable.
	DeleteAllWrappedKeys(ctx context.Context) error
}

// ConversationRepository is durable storage for conversations and their
// encrypted messages.
type ConversationRepository interface {
	// SaveConversation inserts a new conversation row.
	SaveConversation(ctx context.Context, conv models.Conversation) error

	// GetConversation returns a conversation with all its messages, oldest
	// first, or ErrConversationNotFound.
	GetConversation(ctx context.Context, id string) (models.Conversation, error)

	// ListPersistent returns listing-index entries for every persistent
	// conversation, most recently updated first. Temporary conversations
	// never appear here.
	ListPersistent(ctx context.Context) ([]models.ConversationSummary, error)

	// AppendMessage appends one encrypted message and bumps the owning
	// conversation's updated_at to the message timestamp.
	AppendMessage(ctx context.Context, msg models.Message) error

	// MessagesAfter returns every message whose ID sorts after afterID,
	// in ID order, across all conversations. Message IDs are V7 UUIDs
	// assigned at insertion, so ID order is insertion order regardless of
	// the message timestamps (imported bundles keep their original ones).
	// An empty afterID selects everything. Used by the sync push job to
	// find records not yet uploaded.
	MessagesAfter(ctx context.Context, afterID string) ([]models.Message, error)

	// UpdateTitle renames a conversation. Returns false when the ID does
	// not exist; only infrastructure faults produce an error.
	UpdateTitle(ctx context.Context, id, title string) (bool, error)

	// UpdateFolder moves a conversation to a folder (nil clears it).
	// Returns false when the ID does not exist.
	UpdateFolder(ctx context.Context, id string, folderID *string) (bool, error)

	// SetPersistent promotes a temporary conversation into the index.
	// Promotion is one-directional; there is no demotion counterpart.
	// Returns false when the ID does not exist.
	SetPersistent(ctx context.Context, id string) (bool, error)

	// DeleteConversation removes the conversation, its messages and its
	// wrapped key in a single transaction. There is no intermediate state
	// where the key is gone but messages remain, or vice versa.
	DeleteConversation(ctx context.Context, id string) error

	// DeleteAllConversations removes every conversation, message and
	// wrapped key in a single transaction. Vault parameters are untouched.
	DeleteAllConversations(ctx context.Context) error
}
