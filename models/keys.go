package models

import "time"

// VaultParams is the singleton record describing how the user master key is
// derived and verified. It is created once at setup and wholesale-replaced
// on reset. The master key itself is never part of this record; only a
// double-hashed verification value is persisted.
type VaultParams struct {
	// Salt is the random 16-byte KDF salt generated at setup.
	Salt []byte `json:"salt"`

	// Iterations is the PBKDF2 iteration count the salt was created for.
	// Stored alongside the salt so the count can be raised for new profiles
	// without breaking existing ones.
	Iterations int `json:"iterations"`

	// VerificationHash is hex(SHA-256(SHA-256(UMK))). It allows a password
	// check without ever persisting the key or even its direct fingerprint.
	VerificationHash string `json:"verification_hash"`

	// CreatedAt is when this parameter set was written.
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the name of the database table
// associated with the VaultParams model.
func (p VaultParams) TableName() string {
	return "vault_params"
}

// WrappedKey is a per-conversation content-encryption key at rest: the CEK
// encrypted (wrapped) under the current user master key. It is created
// lazily on the conversation's first write and deleted together with the
// conversation. After a vault reset every WrappedKey row is permanently
// unrecoverable.
type WrappedKey struct {
	// ConversationID identifies the conversation this key belongs to.
	ConversationID string `json:"conversation_id"`

	// WrappedKey is the AEAD ciphertext of the 32-byte CEK.
	WrappedKey []byte `json:"wrapped_key"`

	// Nonce is the nonce the CEK was wrapped under.
	Nonce []byte `json:"nonce"`

	// CreatedAt is when the key was first wrapped.
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the name of the database table
// associated with the WrappedKey model.
func (k WrappedKey) TableName() string {
	return "wrapped_keys"
}
