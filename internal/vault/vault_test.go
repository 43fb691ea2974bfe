package vault

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/chatvault/internal/crypto"
	"github.com/chatvault/chatvault/internal/logger"
	"github.com/chatvault/chatvault/internal/store"
)

// testClock drives vault timers with virtual time so auto-lock tests never
// sleep.
type testClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*testTimer
}

type testTimer struct {
	clock    *testClock
	deadline time.Time
	f        func()
	stopped  bool
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &testTimer{clock: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves virtual time forward and fires every due, unstopped timer.
// Callbacks run outside the clock mutex, like real time.AfterFunc.
func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*testTimer
	for _, t := range c.timers {
		if !t.stopped && !t.deadline.After(c.now) {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (t *testTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.stopped
	t.stopped = true
	return wasPending
}

func (t *testTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.stopped
	t.stopped = false
	t.deadline = t.clock.now.Add(d)
	return wasPending
}

func newTestVault(t *testing.T) (*Vault, *testClock, store.KeyRecordRepository) {
	t.Helper()
	keys := store.NewMemoryKeyRecordRepository()
	clock := newTestClock()
	v := New(keys, crypto.NewKeyChain(), clock, logger.Nop())
	v.SetKDFIterations(1000) // keep KDF cheap in tests
	return v, clock, keys
}

func TestVault_SetupUnlocksAndPersistsParams(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t)

	initialized, err := v.IsInitialized(ctx)
	require.NoError(t, err)
	assert.False(t, initialized)

	require.NoError(t, v.Setup(ctx, "Tr0ub4dor&3"))

	initialized, err = v.IsInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, initialized)

	key, err := v.MasterKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	state, err := v.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, state)
}

func TestVault_SetupTwiceFails(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t)

	require.NoError(t, v.Setup(ctx, "first"))
	err := v.Setup(ctx, "second")
	require.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestVault_UnlockBeforeSetupFails(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t)

	_, err := v.Unlock(ctx, "anything")
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestVault_WrongPasswordIsFailureNotError(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t)

	require.NoError(t, v.Setup(ctx, "right password"))
	v.Lock()

	ok, err := v.Unlock(ctx, "wrong password")
	require.NoError(t, err)
	assert.False(t, ok)

	// still locked afterwards
	_, err = v.MasterKey()
	require.ErrorIs(t, err, ErrVaultLocked)
}

func TestVault_UnlockRederivesSameKey(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t)
	kc := crypto.NewKeyChain()

	require.NoError(t, v.Setup(ctx, "Tr0ub4dor&3"))
	before, err := v.MasterKey()
	require.NoError(t, err)

	v.Lock()

	ok, err := v.Unlock(ctx, "Tr0ub4dor&3")
	require.NoError(t, err)
	require.True(t, ok)

	after, err := v.MasterKey()
	require.NoError(t, err)
	assert.Equal(t, kc.HashKey(before), kc.HashKey(after))
}

func TestVault_LockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t)

	require.NoError(t, v.Setup(ctx, "pw"))
	v.Lock()
	v.Lock()

	_, err := v.MasterKey()
	require.ErrorIs(t, err, ErrVaultLocked)
}

func TestVault_AutoLockFiresAfterIdleTimeout(t *testing.T) {
	ctx := context.Background()
	v, clock, _ := newTestVault(t)

	require.NoError(t, v.Setup(ctx, "pw"))
	v.SetAutoLockTimeout(10 * time.Minute)

	clock.Advance(10 * time.Minute)

	_, err := v.MasterKey()
	require.ErrorIs(t, err, ErrVaultLocked)
}

func TestVault_ActivityResetsIdleTimer(t *testing.T) {
	ctx := context.Background()
	v, clock, _ := newTestVault(t)

	require.NoError(t, v.Setup(ctx, "pw"))
	v.SetAutoLockTimeout(10 * time.Minute)

	// touch just before the deadline
	clock.Advance(9 * time.Minute)
	_, err := v.MasterKey()
	require.NoError(t, err)

	// original deadline passes without a lock
	clock.Advance(2 * time.Minute)
	_, err = v.MasterKey()
	require.NoError(t, err)

	// full idle interval after the last touch locks
	clock.Advance(10 * time.Minute)
	_, err = v.MasterKey()
	require.ErrorIs(t, err, ErrVaultLocked)
}

func TestVault_StaleTimerFireAfterTouchDoesNotLock(t *testing.T) {
	ctx := context.Background()
	v, clock, _ := newTestVault(t)

	require.NoError(t, v.Setup(ctx, "pw"))
	v.SetAutoLockTimeout(10 * time.Minute)

	clock.mu.Lock()
	require.Len(t, clock.timers, 1)
	fire := clock.timers[0].f
	clock.mu.Unlock()

	clock.Advance(9 * time.Minute)
	_, err := v.MasterKey()
	require.NoError(t, err)

	// A timer that expired before the touch's Reset landed still runs its
	// callback. The callback must notice the recent activity and reschedule
	// instead of locking.
	fire()
	_, err = v.MasterKey()
	require.NoError(t, err)

	// the rescheduled deadline still locks once truly idle
	clock.Advance(10 * time.Minute)
	_, err = v.MasterKey()
	require.ErrorIs(t, err, ErrVaultLocked)
}

func TestVault_ConversationKeyMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t)

	require.NoError(t, v.Setup(ctx, "pw"))

	key, found, err := v.ConversationKey(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, key)
}

func TestVault_StoreAndLoadConversationKey(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t)
	kc := crypto.NewKeyChain()

	require.NoError(t, v.Setup(ctx, "pw"))

	cek, err := kc.GenerateConversationKey()
	require.NoError(t, err)
	require.NoError(t, v.StoreConversationKey(ctx, "conv-1", cek))

	// cache hit
	got, found, err := v.ConversationKey(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, cek, got)

	// survive a lock/unlock cycle: unwrap from storage this time
	v.Lock()
	ok, err := v.Unlock(ctx, "pw")
	require.NoError(t, err)
	require.True(t, ok)

	got, found, err = v.ConversationKey(ctx, "conv-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, cek, got)
}

func TestVault_ConversationKeyWhileLockedFails(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t)

	require.NoError(t, v.Setup(ctx, "pw"))
	v.Lock()

	_, _, err := v.ConversationKey(ctx, "conv-1")
	require.ErrorIs(t, err, ErrVaultLocked)
}

func TestVault_ClearDestroysEverything(t *testing.T) {
	ctx := context.Background()
	v, _, keys := newTestVault(t)
	kc := crypto.NewKeyChain()

	require.NoError(t, v.Setup(ctx, "old password"))
	cek, err := kc.GenerateConversationKey()
	require.NoError(t, err)
	require.NoError(t, v.StoreConversationKey(ctx, "conv-1", cek))

	require.NoError(t, v.Clear(ctx))

	// back to uninitialized: the old password no longer unlocks anything
	_, err = v.Unlock(ctx, "old password")
	require.ErrorIs(t, err, ErrNotInitialized)

	state, err := v.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateUninitialized, state)

	// the wrapped record is gone with the reset
	_, err = keys.GetWrappedKey(ctx, "conv-1")
	require.ErrorIs(t, err, store.ErrWrappedKeyNotFound)
}

func TestVault_KeysWrappedByOldUMKAreUnreadableAfterReset(t *testing.T) {
	ctx := context.Background()
	v, _, keys := newTestVault(t)
	kc := crypto.NewKeyChain()

	require.NoError(t, v.Setup(ctx, "old password"))
	cek, err := kc.GenerateConversationKey()
	require.NoError(t, err)
	require.NoError(t, v.StoreConversationKey(ctx, "conv-1", cek))

	// keep a copy of the wrapped record, as a stale sync replica would
	stale, err := keys.GetWrappedKey(ctx, "conv-1")
	require.NoError(t, err)

	require.NoError(t, v.Clear(ctx))
	require.NoError(t, v.Setup(ctx, "new password"))

	// reinject the stale record and try to unwrap under the new UMK
	require.NoError(t, keys.SaveWrappedKey(ctx, stale))

	_, _, err = v.ConversationKey(ctx, "conv-1")
	require.ErrorIs(t, err, crypto.ErrAuthenticationFailure)
}

func TestVault_MasterKeyCopySurvivesLock(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestVault(t)
	kc := crypto.NewKeyChain()

	require.NoError(t, v.Setup(ctx, "pw"))
	key, err := v.MasterKey()
	require.NoError(t, err)

	// an operation already holding a key reference completes normally
	blob, err := kc.Encrypt([]byte("in flight"), key)
	require.NoError(t, err)

	v.Lock()

	plain, err := kc.Decrypt(blob, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("in flight"), plain)
}
