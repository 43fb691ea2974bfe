package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateSalt_LengthAndRandomness(t *testing.T) {
	kc := NewKeyChain()

	s1, err := kc.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt error: %v", err)
	}
	s2, err := kc.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt error: %v", err)
	}

	if len(s1) != 16 {
		t.Fatalf("salt length = %d, want 16", len(s1))
	}
	if bytes.Equal(s1, s2) {
		t.Fatalf("expected salts to differ, but they are equal")
	}
}

func TestGenerateConversationKey_LengthAndRandomness(t *testing.T) {
	kc := NewKeyChain()

	k1, err := kc.GenerateConversationKey()
	if err != nil {
		t.Fatalf("GenerateConversationKey error: %v", err)
	}
	k2, err := kc.GenerateConversationKey()
	if err != nil {
		t.Fatalf("GenerateConversationKey error: %v", err)
	}

	if len(k1) != 32 {
		t.Fatalf("key length = %d, want 32", len(k1))
	}
	if len(k2) != 32 {
		t.Fatalf("key length = %d, want 32", len(k2))
	}
	if bytes.Equal(k1, k2) {
		t.Fatalf("expected keys to differ, but they are equal")
	}
}

func TestDeriveKeyFromPassword_DeterministicForSameInputs(t *testing.T) {
	kc := NewKeyChain()

	password := "correct horse battery staple"
	salt := bytes.Repeat([]byte{0xAB}, 16)

	k1 := kc.DeriveKeyFromPassword(password, salt, 1000)
	k2 := kc.DeriveKeyFromPassword(password, salt, 1000)

	if len(k1) != 32 {
		t.Fatalf("derived key length = %d, want 32", len(k1))
	}
	if !bytes.Equal(k1, k2) {
		t.Fatalf("expected derived keys to match for same password+salt")
	}
	if kc.HashKey(k1) != kc.HashKey(k2) {
		t.Fatalf("expected identical fingerprints for identical inputs")
	}
}

func TestDeriveKeyFromPassword_DifferentSaltProducesDifferentKey(t *testing.T) {
	kc := NewKeyChain()

	password := "same password"
	salt1 := bytes.Repeat([]byte{0x01}, 16)
	salt2 := bytes.Repeat([]byte{0x02}, 16)

	k1 := kc.DeriveKeyFromPassword(password, salt1, 1000)
	k2 := kc.DeriveKeyFromPassword(password, salt2, 1000)

	if bytes.Equal(k1, k2) {
		t.Fatalf("expected different keys for different salts")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	kc := NewKeyChain()

	key, err := kc.GenerateConversationKey()
	if err != nil {
		t.Fatalf("GenerateConversationKey error: %v", err)
	}

	plaintexts := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("Where should I go in April?"),
		bytes.Repeat([]byte{0x00}, 4096),
	}

	for _, pt := range plaintexts {
		blob, err := kc.Encrypt(pt, key)
		if err != nil {
			t.Fatalf("Encrypt error: %v", err)
		}
		if len(blob.Nonce) != 12 {
			t.Fatalf("nonce length = %d, want 12", len(blob.Nonce))
		}

		got, err := kc.Decrypt(blob, key)
		if err != nil {
			t.Fatalf("Decrypt error: %v", err)
		}
		if !bytes.Equal(got, pt) {
			t.Fatalf("round trip mismatch: got %q want %q", got, pt)
		}
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	kc := NewKeyChain()

	key, _ := kc.GenerateConversationKey()
	b1, err := kc.Encrypt([]byte("same plaintext"), key)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	b2, err := kc.Encrypt([]byte("same plaintext"), key)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	if bytes.Equal(b1.Nonce, b2.Nonce) {
		t.Fatalf("expected fresh nonce per call, got a repeat")
	}
	if bytes.Equal(b1.Ciphertext, b2.Ciphertext) {
		t.Fatalf("expected distinct ciphertexts for distinct nonces")
	}
}

func TestDecrypt_BitFlipFailsAuthentication(t *testing.T) {
	kc := NewKeyChain()

	key, _ := kc.GenerateConversationKey()
	blob, err := kc.Encrypt([]byte("integrity matters"), key)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	// flip every single bit of the ciphertext, one at a time
	for i := range blob.Ciphertext {
		for bit := 0; bit < 8; bit++ {
			tampered := blob
			tampered.Ciphertext = bytes.Clone(blob.Ciphertext)
			tampered.Ciphertext[i] ^= 1 << bit

			if _, err := kc.Decrypt(tampered, key); !errors.Is(err, ErrAuthenticationFailure) {
				t.Fatalf("ciphertext bit flip at byte %d bit %d: err = %v, want ErrAuthenticationFailure", i, bit, err)
			}
		}
	}

	// and of the nonce
	for i := range blob.Nonce {
		tampered := blob
		tampered.Nonce = bytes.Clone(blob.Nonce)
		tampered.Nonce[i] ^= 0x01

		if _, err := kc.Decrypt(tampered, key); !errors.Is(err, ErrAuthenticationFailure) {
			t.Fatalf("nonce flip at byte %d: err = %v, want ErrAuthenticationFailure", i, err)
		}
	}
}

func TestDecrypt_WrongKeyFailsAuthentication(t *testing.T) {
	kc := NewKeyChain()

	keyA, _ := kc.GenerateConversationKey()
	keyB, _ := kc.GenerateConversationKey()

	blob, err := kc.Encrypt([]byte("sealed under A"), keyA)
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	if _, err := kc.Decrypt(blob, keyB); !errors.Is(err, ErrAuthenticationFailure) {
		t.Fatalf("decrypt under wrong key: err = %v, want ErrAuthenticationFailure", err)
	}
}

func TestWrapUnwrapKey_RoundTrip(t *testing.T) {
	kc := NewKeyChain()

	cek, _ := kc.GenerateConversationKey()
	umk := kc.DeriveKeyFromPassword("Tr0ub4dor&3", bytes.Repeat([]byte{0x07}, 16), 1000)

	wrapped, err := kc.WrapKey(cek, umk)
	if err != nil {
		t.Fatalf("WrapKey error: %v", err)
	}
	if bytes.Contains(wrapped.Ciphertext, cek) {
		t.Fatalf("wrapped blob contains the raw CEK")
	}

	got, err := kc.UnwrapKey(wrapped, umk)
	if err != nil {
		t.Fatalf("UnwrapKey error: %v", err)
	}
	if !bytes.Equal(got, cek) {
		t.Fatalf("unwrap mismatch")
	}
}

func TestUnwrapKey_WrongWrappingKeyFails(t *testing.T) {
	kc := NewKeyChain()

	cek, _ := kc.GenerateConversationKey()
	umkOld := kc.DeriveKeyFromPassword("old password", bytes.Repeat([]byte{0x01}, 16), 1000)
	umkNew := kc.DeriveKeyFromPassword("new password", bytes.Repeat([]byte{0x02}, 16), 1000)

	wrapped, err := kc.WrapKey(cek, umkOld)
	if err != nil {
		t.Fatalf("WrapKey error: %v", err)
	}

	if _, err := kc.UnwrapKey(wrapped, umkNew); !errors.Is(err, ErrAuthenticationFailure) {
		t.Fatalf("unwrap under new UMK: err = %v, want ErrAuthenticationFailure", err)
	}
}

func TestHashKey_DeterministicAndVerifiable(t *testing.T) {
	kc := NewKeyChain()

	key := bytes.Repeat([]byte{0x11}, 32)

	h1 := kc.HashKey(key)
	h2 := kc.HashKey(key)
	if h1 != h2 {
		t.Fatalf("expected HashKey to be deterministic")
	}
	if len(h1) != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", len(h1))
	}

	if !kc.VerifyKeyHash(key, h1) {
		t.Fatalf("VerifyKeyHash rejected the matching key")
	}

	other := bytes.Repeat([]byte{0x22}, 32)
	if kc.VerifyKeyHash(other, h1) {
		t.Fatalf("VerifyKeyHash accepted a non-matching key")
	}
}

func TestDeriveProfileKey_DeterministicPerIdentifier(t *testing.T) {
	kc := NewKeyChain()

	k1 := kc.DeriveProfileKey("profile-42")
	k2 := kc.DeriveProfileKey("profile-42")
	k3 := kc.DeriveProfileKey("profile-43")

	if len(k1) != 32 {
		t.Fatalf("profile key length = %d, want 32", len(k1))
	}
	if !bytes.Equal(k1, k2) {
		t.Fatalf("expected identical keys for identical identifiers")
	}
	if bytes.Equal(k1, k3) {
		t.Fatalf("expected different keys for different identifiers")
	}
}
