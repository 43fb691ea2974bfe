package vault

import "errors"

// Sentinel errors returned by vault operations. Callers should use
// [errors.Is] to match against these values; the UI renders each as a
// distinct, recoverable state.
var (
	// ErrVaultLocked is returned when an operation needs the resident
	// master key and there is none. Recoverable by prompting for unlock.
	ErrVaultLocked = errors.New("vault is locked")

	// ErrAlreadyInitialized is returned when Setup is called on a vault
	// that already has parameters. A caller logic error; it must be
	// surfaced, not swallowed. Reset first.
	ErrAlreadyInitialized = errors.New("vault already initialized")

	// ErrNotInitialized is returned when Unlock is called before any
	// Setup, i.e. there are no stored parameters to verify against.
	ErrNotInitialized = errors.New("vault not initialized")
)
