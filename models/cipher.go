package models

// CipherBlob is the unit of encrypted payload exchanged with storage and the
// sync collaborator: an AES-256-GCM ciphertext together with the random
// 96-bit nonce it was sealed under. The pair is opaque everywhere outside
// the crypto package; nothing above it ever sees plaintext without a key.
type CipherBlob struct {
	// Ciphertext is the AEAD output including the authentication tag.
	Ciphertext []byte `json:"ciphertext"`

	// Nonce is the 12-byte value generated fresh for this blob. A nonce is
	// never reused under the same key; a new one is drawn on every seal.
	Nonce []byte `json:"nonce"`
}
