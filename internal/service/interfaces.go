// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"time"

	"github.com/chatvault/chatvault/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// KeyVault is the slice of the vault the conversation store depends on.
// Satisfied by *vault.Vault.
type KeyVault interface {
	// MasterKey returns a copy of the resident user master key, or
	// vault.ErrVaultLocked.
	MasterKey() ([]byte, error)

	// ConversationKey returns the conversation's CEK from cache or by
	// unwrapping the stored record. A missing record is (nil, false, nil).
	ConversationKey(ctx context.Context, conversationID string) ([]byte, bool, error)

	// StoreConversationKey wraps cek under the current master key and
	// persists it.
	StoreConversationKey(ctx context.Context, conversationID string, cek []byte) error

	// DeleteConversationKey removes the wrapped record and evicts the
	// cache entry.
	DeleteConversationKey(ctx context.Context, conversationID string) error

	// Clear destructively resets the vault to uninitialized.
	Clear(ctx context.Context) error
}

// ConversationStore is the encrypted conversation CRUD surface consumed by
// the UI. Every content operation requires an unlocked vault; operations
// started while locked fail with vault.ErrVaultLocked rather than using a
// stale key.
type ConversationStore interface {
	// Init binds the store to a concrete unlocked session identity. It is
	// idempotent per identity: a repeated call for the same identity only
	// refreshes the listing, never duplicates the index. An overlapping
	// call fails with ErrInitializationInProgress.
	Init(ctx context.Context, identity string) error

	// CreateConversation allocates a new conversation. No CEK is created
	// yet; keys are allocated lazily on the first write.
	CreateConversation(ctx context.Context, title string, temporary bool) (models.Conversation, error)

	// SaveMessage encrypts content under the conversation's CEK, creating
	// the key first if this is the conversation's first write, and appends
	// the message.
	SaveMessage(ctx context.Context, conversationID string, role models.Role, content string) (models.Message, error)

	// GetConversation decrypts all messages of a conversation. A message
	// that fails authentication does not fail the read: it is returned as
	// a corrupted marker and counted, and the rest decrypts normally.
	GetConversation(ctx context.Context, id string) (models.ConversationView, error)

	// List returns the listing index: persistent conversations, most
	// recently updated first.
	List(ctx context.Context) ([]models.ConversationSummary, error)

	// DeleteConversation removes the conversation, its messages and its
	// wrapped key as one unit.
	DeleteConversation(ctx context.Context, id string) error

	// UpdateTitle renames a conversation. Returns false for an unknown ID
	// or an uninitialized store, reserving errors for real faults.
	UpdateTitle(ctx context.Context, id, title string) (bool, error)

	// MoveToFolder places the conversation in a folder; nil clears it.
	MoveToFolder(ctx context.Context, id string, folderID *string) (bool, error)

	// MakePersistent promotes a temporary conversation into the index.
	// There is no demotion.
	MakePersistent(ctx context.Context, id string) (bool, error)

	// ExportConversation builds the versioned plaintext bundle for one
	// persistent conversation. Corrupted messages are logged and skipped.
	ExportConversation(ctx context.Context, id string) (models.ConversationBundle, error)

	// ExportAll combines per-conversation bundles into one archive. A
	// single conversation's failure is logged and skipped, never aborting
	// the batch.
	ExportAll(ctx context.Context) (models.ArchiveBundle, error)

	// Import reads a serialized bundle, dispatching on its format and
	// version tags, and re-encrypts every message under freshly generated
	// local keys. Key material embedded in foreign bundles is never
	// trusted; bundles carry none.
	Import(ctx context.Context, raw []byte) ([]models.Conversation, error)

	// ClearAllConversations deletes every conversation and wrapped key but
	// leaves the vault initialized.
	ClearAllConversations(ctx context.Context) error

	// ClearAllData additionally resets the vault, for full start-over
	// recovery after irrecoverable corruption.
	ClearAllData(ctx context.Context) error

	// CorruptedCount returns how many undecryptable messages reads have
	// quarantined since the counter was last reset.
	CorruptedCount() int
}

// SyncService pushes encrypted records to the upstream sync collaborator.
type SyncService interface {
	// PushPending uploads every message saved since the last successful
	// push. The collaborator only ever sees ciphertext/nonce pairs.
	PushPending(ctx context.Context) error
}

// SyncJob is the background worker that periodically calls PushPending.
type SyncJob interface {
	// Start launches the background goroutine, pushing every interval
	// (default 5 minutes when interval is zero or negative). Any
	// previously running job is stopped first.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the goroutine to exit and blocks until it has.
	Stop()
}
