// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/chatvault/chatvault/models"
)

const (
	saltLen  = 16
	keyLen   = 32 // 256 bits
	nonceLen = 12 // 96 bits, standard GCM nonce

	// DefaultIterations is the PBKDF2-HMAC-SHA256 iteration count used for
	// new profiles. Stored in VaultParams so it can be raised later without
	// breaking existing profiles.
	DefaultIterations = 100_000

	// profileKeyRounds is the SHA-256 iteration count of the legacy
	// identifier-derived mode.
	profileKeyRounds = 4096
)

// keyChain is the private implementation of [KeyChain].
type keyChain struct{}

// NewKeyChain constructs the production [KeyChain] backed by the OS CSPRNG,
// AES-256-GCM and PBKDF2-HMAC-SHA256.
func NewKeyChain() KeyChain {
	return &keyChain{}
}

// GenerateSalt implements [KeyChain]. It reads 16 random bytes from the OS
// CSPRNG. Returns an error if the random read fails.
func (k *keyChain) GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// GenerateConversationKey implements [KeyChain]. It reads 32 random bytes
// from the OS CSPRNG. Returns an error if the random read fails.
func (k *keyChain) GenerateConversationKey() ([]byte, error) {
	cek := make([]byte, keyLen)
	if _, err := io.ReadFull(rand.Reader, cek); err != nil {
		return nil, err
	}
	return cek, nil
}

// DeriveKeyFromPassword implements [KeyChain]. The result exists only in
// client memory and is never transmitted or persisted.
func (k *keyChain) DeriveKeyFromPassword(password string, salt []byte, iterations int) []byte {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)
}

// Encrypt implements [KeyChain]. Ciphertext and nonce are kept as separate
// fields rather than concatenated: the sync collaborator exchanges exactly
// this pair.
func (k *keyChain) Encrypt(plaintext, key []byte) (models.CipherBlob, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return models.CipherBlob{}, err
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return models.CipherBlob{}, fmt.Errorf("generate nonce: %w", err)
	}

	return models.CipherBlob{
		Ciphertext: gcm.Seal(nil, nonce, plaintext, nil),
		Nonce:      nonce,
	}, nil
}

// Decrypt implements [KeyChain]. A tag mismatch surfaces as
// [ErrAuthenticationFailure]; any flipped bit in ciphertext or nonce lands
// there.
func (k *keyChain) Decrypt(blob models.CipherBlob, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(blob.Nonce) != nonceLen {
		return nil, fmt.Errorf("%w: bad nonce length %d", ErrAuthenticationFailure, len(blob.Nonce))
	}

	plaintext, err := gcm.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailure, err)
	}
	return plaintext, nil
}

// WrapKey implements [KeyChain]. Wrapping is Encrypt applied to key
// material.
func (k *keyChain) WrapKey(key, wrappingKey []byte) (models.CipherBlob, error) {
	if len(key) != keyLen {
		return models.CipherBlob{}, fmt.Errorf("invalid key length: %d", len(key))
	}
	return k.Encrypt(key, wrappingKey)
}

// UnwrapKey implements [KeyChain].
func (k *keyChain) UnwrapKey(wrapped models.CipherBlob, wrappingKey []byte) ([]byte, error) {
	key, err := k.Decrypt(wrapped, wrappingKey)
	if err != nil {
		return nil, err
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("%w: unwrapped key has length %d", ErrAuthenticationFailure, len(key))
	}
	return key, nil
}

// HashKey implements [KeyChain]. The double hash means the stored verifier
// is a fingerprint of a fingerprint; not even the direct SHA-256 of the key
// ever reaches storage.
func (k *keyChain) HashKey(key []byte) string {
	first := sha256.Sum256(key)
	second := sha256.Sum256(first[:])
	return hex.EncodeToString(second[:])
}

// VerifyKeyHash implements [KeyChain].
func (k *keyChain) VerifyKeyHash(key []byte, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(k.HashKey(key)), []byte(hash)) == 1
}

// DeriveProfileKey implements [KeyChain]. Iterated SHA-256 over the bare
// identifier. Weak mode: see the interface doc.
func (k *keyChain) DeriveProfileKey(profileID string) []byte {
	sum := sha256.Sum256([]byte("chatvault/profile:" + profileID))
	buf := sum[:]
	for i := 0; i < profileKeyRounds; i++ {
		tmp := sha256.Sum256(buf)
		buf = tmp[:]
	}
	out := make([]byte, keyLen)
	copy(out, buf)
	return out
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keyLen {
		return nil, fmt.Errorf("invalid key length: %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
