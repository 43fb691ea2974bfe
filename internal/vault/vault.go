// SPDX-License-Identifier: Apache-2.0

// Package vault owns the lifecycle of the password-derived user master key
// (UMK) and the per-conversation content-encryption keys (CEKs): setup,
// unlock, lock, auto-lock on idle, key caching, and destructive reset.
//
// The master key is never persisted; storage holds only the KDF parameters
// plus a double-hashed verification value, and one wrapped CEK row per
// conversation. Everything resident in memory is destroyed on lock, idle
// timeout, or process end.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chatvault/chatvault/internal/crypto"
	"github.com/chatvault/chatvault/internal/logger"
	"github.com/chatvault/chatvault/internal/store"
	"github.com/chatvault/chatvault/models"
)

// DefaultAutoLockTimeout is applied until SetAutoLockTimeout overrides it.
const DefaultAutoLockTimeout = 15 * time.Minute

// State is the externally visible vault state. The UI renders each value as
// a distinct screen.
type State int

const (
	StateUninitialized State = iota
	StateLocked
	StateUnlocked
)

// String implements fmt.Stringer for log fields.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Vault is the stateful key manager. It holds exactly one mutable UMK slot
// and one CEK cache; a single mutex serializes every transition, so the last
// completed unlock deterministically owns the cache.
type Vault struct {
	keys     store.KeyRecordRepository
	keychain crypto.KeyChain
	clock    Clock
	logger   *logger.Logger

	// kdfIterations is used for new profiles only; existing profiles keep
	// the count recorded in their stored parameters.
	kdfIterations int

	mu        sync.Mutex
	umk       []byte // nil when locked
	cache     map[string][]byte
	timeout   time.Duration
	timer     Timer
	lastTouch time.Time
}

// New constructs a locked Vault with its storage, crypto and timer
// dependencies injected. Pass [NewRealClock] outside tests.
func New(keys store.KeyRecordRepository, keychain crypto.KeyChain, clock Clock, log *logger.Logger) *Vault {
	return &Vault{
		keys:          keys,
		keychain:      keychain,
		clock:         clock,
		logger:        log,
		kdfIterations: crypto.DefaultIterations,
		cache:         make(map[string][]byte),
		timeout:       DefaultAutoLockTimeout,
	}
}

// SetKDFIterations overrides the PBKDF2 iteration count used by future
// Setup calls.
func (v *Vault) SetKDFIterations(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n > 0 {
		v.kdfIterations = n
	}
}

// IsInitialized reports whether vault parameters exist in durable storage.
func (v *Vault) IsInitialized(ctx context.Context) (bool, error) {
	_, err := v.keys.GetVaultParams(ctx)
	if err != nil {
		if errors.Is(err, store.ErrVaultParamsNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read vault params: %w", err)
	}
	return true, nil
}

// State returns the current externally visible state.
func (v *Vault) State(ctx context.Context) (State, error) {
	v.mu.Lock()
	unlocked := v.umk != nil
	v.mu.Unlock()

	if unlocked {
		return StateUnlocked, nil
	}

	initialized, err := v.IsInitialized(ctx)
	if err != nil {
		return StateLocked, err
	}
	if !initialized {
		return StateUninitialized, nil
	}
	return StateLocked, nil
}

// Setup initializes encryption for a fresh profile: generates a salt,
// derives the master key from password, persists the verification hash, and
// leaves the vault unlocked with the idle timer running.
//
// Valid only when no parameters exist; fails with ErrAlreadyInitialized
// otherwise. Reset with Clear first.
func (v *Vault) Setup(ctx context.Context, password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := v.keys.GetVaultParams(ctx); err == nil {
		return ErrAlreadyInitialized
	} else if !errors.Is(err, store.ErrVaultParamsNotFound) {
		return fmt.Errorf("read vault params: %w", err)
	}

	salt, err := v.keychain.GenerateSalt()
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	umk := v.keychain.DeriveKeyFromPassword(password, salt, v.kdfIterations)

	params := models.VaultParams{
		Salt:             salt,
		Iterations:       v.kdfIterations,
		VerificationHash: v.keychain.HashKey(umk),
		CreatedAt:        time.Now(),
	}
	if err := v.keys.SaveVaultParams(ctx, params); err != nil {
		return fmt.Errorf("persist vault params: %w", err)
	}

	v.adoptLocked(umk)
	v.logger.Info().Str("func", "Vault.Setup").Msg("vault initialized and unlocked")
	return nil
}

// Unlock rederives a candidate master key from the stored salt and
// iteration count and compares its fingerprint to the stored verification
// hash. A match caches the key and starts the idle timer.
//
// A wrong password is (false, nil), not an error: the caller shows a plain
// retry prompt without conflating it with infrastructure failures. No
// attempt counting happens at this layer.
func (v *Vault) Unlock(ctx context.Context, password string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	params, err := v.keys.GetVaultParams(ctx)
	if err != nil {
		if errors.Is(err, store.ErrVaultParamsNotFound) {
			return false, ErrNotInitialized
		}
		return false, fmt.Errorf("read vault params: %w", err)
	}

	candidate := v.keychain.DeriveKeyFromPassword(password, params.Salt, params.Iterations)
	if !v.keychain.VerifyKeyHash(candidate, params.VerificationHash) {
		zero(candidate)
		return false, nil
	}

	v.adoptLocked(candidate)
	v.logger.Info().Str("func", "Vault.Unlock").Msg("vault unlocked")
	return true, nil
}

// adoptLocked installs umk as the resident master key, resets the CEK cache
// and (re)schedules the idle timer. Caller holds v.mu.
func (v *Vault) adoptLocked(umk []byte) {
	zero(v.umk)
	v.umk = umk
	v.cache = make(map[string][]byte)
	v.touchLocked()
}

// Lock unconditionally discards the resident master key and the entire key
// cache. Idempotent; locking a locked vault is a no-op.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lockLocked()
}

func (v *Vault) lockLocked() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	if v.umk == nil {
		return
	}
	zero(v.umk)
	v.umk = nil
	for id, key := range v.cache {
		zero(key)
		delete(v.cache, id)
	}
	v.logger.Info().Str("func", "Vault.Lock").Msg("vault locked")
}

// MasterKey returns a copy of the resident master key, or ErrVaultLocked.
// Every successful call counts as activity and resets the idle timer, so
// expiry is activity-based rather than a fixed schedule. The returned copy
// stays valid for an operation already in flight even if the vault locks
// underneath it.
func (v *Vault) MasterKey() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.umk == nil {
		return nil, ErrVaultLocked
	}

	v.touchLocked()
	out := make([]byte, len(v.umk))
	copy(out, v.umk)
	return out, nil
}

// ConversationKey returns the CEK for a conversation: from the in-memory
// cache when present, otherwise by loading the wrapped record and unwrapping
// it under the resident master key. A missing record is (nil, false, nil) —
// "not found", not an error — so the caller decides whether to create one.
//
// Fails with ErrVaultLocked when no master key is resident, and with
// crypto.ErrAuthenticationFailure when the record cannot be unwrapped (e.g.
// it predates a password reset).
func (v *Vault) ConversationKey(ctx context.Context, conversationID string) ([]byte, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.umk == nil {
		return nil, false, ErrVaultLocked
	}
	v.touchLocked()

	if cek, ok := v.cache[conversationID]; ok {
		out := make([]byte, len(cek))
		copy(out, cek)
		return out, true, nil
	}

	record, err := v.keys.GetWrappedKey(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrWrappedKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load wrapped key: %w", err)
	}

	cek, err := v.keychain.UnwrapKey(models.CipherBlob{
		Ciphertext: record.WrappedKey,
		Nonce:      record.Nonce,
	}, v.umk)
	if err != nil {
		return nil, false, fmt.Errorf("unwrap conversation key: %w", err)
	}

	v.cache[conversationID] = cek
	out := make([]byte, len(cek))
	copy(out, cek)
	return out, true, nil
}

// StoreConversationKey wraps cek under the resident master key, persists the
// wrapped record and caches the plaintext key for the session.
func (v *Vault) StoreConversationKey(ctx context.Context, conversationID string, cek []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.umk == nil {
		return ErrVaultLocked
	}
	v.touchLocked()

	wrapped, err := v.keychain.WrapKey(cek, v.umk)
	if err != nil {
		return fmt.Errorf("wrap conversation key: %w", err)
	}

	record := models.WrappedKey{
		ConversationID: conversationID,
		WrappedKey:     wrapped.Ciphertext,
		Nonce:          wrapped.Nonce,
		CreatedAt:      time.Now(),
	}
	if err := v.keys.SaveWrappedKey(ctx, record); err != nil {
		return fmt.Errorf("persist wrapped key: %w", err)
	}

	kept := make([]byte, len(cek))
	copy(kept, cek)
	v.cache[conversationID] = kept
	return nil
}

// DeleteConversationKey removes a conversation's key from the cache and its
// wrapped record from storage. Used when the owning conversation is deleted
// outside the repository transaction path.
func (v *Vault) DeleteConversationKey(ctx context.Context, conversationID string) error {
	v.mu.Lock()
	if key, ok := v.cache[conversationID]; ok {
		zero(key)
		delete(v.cache, conversationID)
	}
	v.mu.Unlock()

	if err := v.keys.DeleteWrappedKey(ctx, conversationID); err != nil {
		return fmt.Errorf("delete wrapped key: %w", err)
	}
	return nil
}

// SetAutoLockTimeout changes the idle interval. Takes effect immediately:
// the running timer, if any, is rescheduled against the new value.
func (v *Vault) SetAutoLockTimeout(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if d <= 0 {
		d = DefaultAutoLockTimeout
	}
	v.timeout = d
	if v.umk != nil {
		v.touchLocked()
	}
}

// touchLocked records activity and reschedules the single idle timer.
// Caller holds v.mu.
func (v *Vault) touchLocked() {
	v.lastTouch = v.clock.Now()
	if v.timer != nil {
		v.timer.Reset(v.timeout)
		return
	}
	v.timer = v.clock.AfterFunc(v.timeout, v.autoLock)
}

// autoLock runs when the idle timer fires. A Reset issued after the timer
// already fired does not cancel the in-flight callback, so the deadline is
// re-checked against the last recorded activity; a raced touch reschedules
// instead of locking.
func (v *Vault) autoLock() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.umk == nil {
		return
	}
	if idle := v.clock.Now().Sub(v.lastTouch); idle < v.timeout {
		if v.timer != nil {
			v.timer.Reset(v.timeout - idle)
		}
		return
	}
	v.logger.Info().Str("func", "Vault.autoLock").Msg("idle timeout reached, locking vault")
	v.lockLocked()
}

// Clear is the destructive "forgot password" recovery path: it wipes the
// vault parameters and every wrapped key, returning the vault to
// Uninitialized. Every previously stored ciphertext becomes permanently
// unreadable; the conversation store treats those records as corrupted.
func (v *Vault) Clear(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.lockLocked()

	if err := v.keys.DeleteAllWrappedKeys(ctx); err != nil {
		return fmt.Errorf("delete wrapped keys: %w", err)
	}
	if err := v.keys.DeleteVaultParams(ctx); err != nil {
		return fmt.Errorf("delete vault params: %w", err)
	}

	v.logger.Warn().Str("func", "Vault.Clear").Msg("vault reset: all key material destroyed")
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
