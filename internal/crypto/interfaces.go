package crypto

//go:generate mockgen -source=interfaces.go -destination=../mock/keychain_mock.go -package=mock

import "github.com/chatvault/chatvault/models"

// KeyChain owns all client-side cryptography of the zero-knowledge scheme.
// It knows nothing about the network, the database or conversations; its
// only job is to derive, protect and apply keys. All operations are pure
// given their random inputs and have no side effects beyond consuming
// randomness.
//
// Key hierarchy:
//
//	Salt     = GenerateSalt()                                (setup)
//	UMK      = DeriveKeyFromPassword(password, salt, iters)  (setup/unlock)
//	CEK      = GenerateConversationKey()                     (first write)
//	Wrapped  = WrapKey(CEK, UMK)                             (at rest)
//	Verifier = HashKey(UMK)                                  (stored hash of hash)
type KeyChain interface {
	// GenerateSalt returns a random 16-byte KDF salt. The salt is not a
	// secret; it is stored in the clear alongside the verification hash.
	GenerateSalt() ([]byte, error)

	// GenerateConversationKey returns a random 256-bit AEAD key. One such
	// key is created per conversation and never reused across
	// conversations, bounding the blast radius of a single leaked key.
	GenerateConversationKey() ([]byte, error)

	// DeriveKeyFromPassword derives a 256-bit key from the password and
	// salt via PBKDF2-HMAC-SHA256 with the given iteration count.
	// Identical inputs always yield bit-identical keys, so the root key
	// can be forgotten and rederived instead of stored.
	DeriveKeyFromPassword(password string, salt []byte, iterations int) []byte

	// Encrypt seals plaintext under key with AES-256-GCM. A fresh random
	// 96-bit nonce is generated on every call.
	Encrypt(plaintext, key []byte) (models.CipherBlob, error)

	// Decrypt opens blob with key. When the authentication tag does not
	// verify it fails with ErrAuthenticationFailure; that failure is
	// indistinguishable from corruption and must never be silently
	// retried.
	Decrypt(blob models.CipherBlob, key []byte) ([]byte, error)

	// WrapKey encrypts key material under a wrapping key so a CEK is
	// stored at rest only in encrypted form.
	WrapKey(key, wrappingKey []byte) (models.CipherBlob, error)

	// UnwrapKey reverses WrapKey. Fails with ErrAuthenticationFailure
	// when the wrapping key is wrong or the record is corrupted.
	UnwrapKey(wrapped models.CipherBlob, wrappingKey []byte) ([]byte, error)

	// HashKey returns a one-way fingerprint of key: hex of a double
	// SHA-256. Used to verify a password without persisting or
	// transmitting the key itself.
	HashKey(key []byte) string

	// VerifyKeyHash reports in constant time whether key matches a
	// fingerprint previously produced by HashKey.
	VerifyKeyHash(key []byte, hash string) bool

	// DeriveProfileKey derives a key from an account identifier alone via
	// iterated SHA-256. This is a deliberately weaker convenience mode:
	// an identifier known to the backend is not a secret, so keys derived
	// this way protect only against passive storage compromise. The vault
	// never uses it; callers must opt in explicitly.
	DeriveProfileKey(profileID string) []byte
}
