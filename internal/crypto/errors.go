package crypto

import "errors"

// ErrAuthenticationFailure is returned when an AEAD open fails its integrity
// check: wrong key, or tampered/corrupted ciphertext or nonce. The two
// causes cannot be told apart. Callers must surface or quarantine it, never
// retry it automatically.
var ErrAuthenticationFailure = errors.New("authentication failure")
