// Package authgate owns the state machine between a PIN and the
// in-memory master key: Locked, Unlocked, Lockout. Every unlock
// attempt passes through here before any key material is available.
package authgate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"pinvault/internal/vault/keyring"
)

// LockoutSchedule maps the failed-attempt count to the cooldown that
// follows it. Counts beyond the final entry clamp to it.
var LockoutSchedule = []time.Duration{
	0,
	30 * time.Second,
	600 * time.Second,
	3600 * time.Second,
	21600 * time.Second,
}

const (
	DefaultAutoLock = 120 * time.Second
	MinAutoLock     = time.Minute
	MaxAutoLock     = 60 * time.Minute
)

// Gate serializes all VaultMeta mutations behind one mutex: exactly
// one vault instance exists per process and UI-driven calls can
// interleave.
type Gate struct {
	mu    sync.Mutex
	meta  MetaStore
	log   *slog.Logger
	clock func() time.Time

	master   *keyring.KeyHandle
	deadline time.Time
	autoLock time.Duration
}

// Option adjusts gate construction.
type Option func(*Gate)

// WithClock injects a clock, used by tests to drive the wall-clock
// based lockout and auto-lock checks.
func WithClock(clock func() time.Time) Option {
	return func(g *Gate) { g.clock = clock }
}

func New(meta MetaStore, log *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		meta:     meta,
		log:      log.With("component", "authgate"),
		clock:    time.Now,
		autoLock: DefaultAutoLock,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Setup creates the vault: generates the master key, derives the PIN
// wrapping key over a fresh salt and persists the wrapped form. The
// gate comes up unlocked.
func (g *Gate) Setup(ctx context.Context, pin string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	existing, err := g.meta.LoadMeta(ctx)
	if err != nil {
		return fmt.Errorf("failed to load vault meta: %w", err)
	}
	if existing != nil {
		return ErrAlreadyConfigured
	}

	master, err := keyring.GenerateMasterKey()
	if err != nil {
		return err
	}
	salt, err := keyring.GenerateSalt()
	if err != nil {
		return err
	}

	pinKey := keyring.DerivePinKey(pin, salt, keyring.DefaultIterations)
	defer pinKey.Zero()

	ciphertext, iv, err := keyring.WrapMasterKey(master, pinKey)
	if err != nil {
		return fmt.Errorf("failed to wrap master key: %w", err)
	}

	counter, err := sealCounter(salt, 0)
	if err != nil {
		return fmt.Errorf("failed to seal attempt counter: %w", err)
	}

	meta := &VaultMeta{
		EncryptedMasterKey: ciphertext,
		MasterIV:           iv,
		KDFSalt:            salt,
		KDFIterations:      keyring.DefaultIterations,
		FailedAttempts:     counter,
		AutoLockSeconds:    int(g.autoLock / time.Second),
	}
	if err := g.meta.SaveMeta(ctx, meta); err != nil {
		return fmt.Errorf("failed to persist vault meta: %w", err)
	}

	g.unlockLocked(master)
	g.log.Info("vault created")
	return nil
}

// Authenticate attempts a PIN unlock. A wrong PIN is not an error: it
// returns (false, nil) and advances the lockout schedule. Errors are
// reserved for setup and storage failures, and for an active lockout,
// which is rejected before any PBKDF2 work with no side effects.
func (g *Gate) Authenticate(ctx context.Context, pin string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	meta, err := g.meta.LoadMeta(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load vault meta: %w", err)
	}
	if meta == nil {
		return false, ErrNotConfigured
	}

	now := g.clock()
	if meta.LockUntil != nil && now.Before(*meta.LockUntil) {
		return false, fmt.Errorf("%w: retry in %s", ErrLockoutActive,
			meta.LockUntil.Sub(now).Round(time.Second))
	}

	pinKey := keyring.DerivePinKey(pin, meta.KDFSalt, meta.KDFIterations)
	defer pinKey.Zero()

	master, err := keyring.UnwrapMasterKey(meta.EncryptedMasterKey, meta.MasterIV, pinKey)
	if err == nil {
		return true, g.recordSuccess(ctx, meta, master)
	}
	if errors.Is(err, keyring.ErrWrongSecret) {
		return false, g.recordFailure(ctx, meta, now)
	}
	return false, err
}

// AuthenticateBiometric unlocks through the escrowed master key copy.
// It obeys the same lockout window, and an escrow failure after the
// platform prompt advances the schedule like a wrong PIN.
func (g *Gate) AuthenticateBiometric(ctx context.Context, escrow *keyring.Escrow) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	meta, err := g.meta.LoadMeta(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load vault meta: %w", err)
	}
	if meta == nil {
		return false, ErrNotConfigured
	}

	now := g.clock()
	if meta.LockUntil != nil && now.Before(*meta.LockUntil) {
		return false, fmt.Errorf("%w: retry in %s", ErrLockoutActive,
			meta.LockUntil.Sub(now).Round(time.Second))
	}

	master, err := escrow.Unlock()
	if err == nil {
		return true, g.recordSuccess(ctx, meta, master)
	}
	if errors.Is(err, keyring.ErrWrongSecret) {
		return false, g.recordFailure(ctx, meta, now)
	}
	return false, err
}

func (g *Gate) recordSuccess(ctx context.Context, meta *VaultMeta, master *keyring.KeyHandle) error {
	counter, err := sealCounter(meta.KDFSalt, 0)
	if err != nil {
		master.Zero()
		return fmt.Errorf("failed to seal attempt counter: %w", err)
	}
	meta.FailedAttempts = counter
	meta.LockUntil = nil
	if err := g.meta.SaveMeta(ctx, meta); err != nil {
		master.Zero()
		return fmt.Errorf("failed to persist vault meta: %w", err)
	}

	if meta.AutoLockSeconds > 0 {
		g.autoLock = time.Duration(meta.AutoLockSeconds) * time.Second
	}
	g.unlockLocked(master)
	g.log.Info("vault unlocked")
	return nil
}

func (g *Gate) recordFailure(ctx context.Context, meta *VaultMeta, now time.Time) error {
	failed := openCounter(meta.KDFSalt, meta.FailedAttempts) + 1

	idx := failed - 1
	if idx >= len(LockoutSchedule) {
		idx = len(LockoutSchedule) - 1
	}
	cooldown := LockoutSchedule[idx]

	counter, err := sealCounter(meta.KDFSalt, failed)
	if err != nil {
		return fmt.Errorf("failed to seal attempt counter: %w", err)
	}
	meta.FailedAttempts = counter
	if cooldown > 0 {
		until := now.Add(cooldown)
		meta.LockUntil = &until
	} else {
		meta.LockUntil = nil
	}
	if err := g.meta.SaveMeta(ctx, meta); err != nil {
		return fmt.Errorf("failed to persist vault meta: %w", err)
	}

	g.log.Warn("authentication failed", "failed_attempts", failed, "cooldown", cooldown)
	return nil
}

// Lock drops the in-memory master key. No other component retains a
// copy. Idempotent.
func (g *Gate) Lock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lockLocked()
}

// Touch registers user activity and extends the auto-lock deadline.
func (g *Gate) Touch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.master != nil {
		g.deadline = g.clock().Add(g.autoLock)
	}
}

// Key returns the master key handle while unlocked. The auto-lock
// deadline is enforced lazily here: there is no background timer, so
// behavior stays correct across process suspension.
func (g *Gate) Key() (*keyring.KeyHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.master == nil {
		return nil, ErrLocked
	}
	if g.clock().After(g.deadline) {
		g.lockLocked()
		return nil, ErrLocked
	}
	return g.master, nil
}

// IsUnlocked reports whether a usable key is held, applying the same
// lazy deadline check as Key.
func (g *Gate) IsUnlocked() bool {
	_, err := g.Key()
	return err == nil
}

// SetAutoLock updates the inactivity timeout, accepted between 1 and
// 60 minutes, and persists it.
func (g *Gate) SetAutoLock(ctx context.Context, d time.Duration) error {
	if d < MinAutoLock || d > MaxAutoLock {
		return ErrInvalidAutoLock
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	meta, err := g.meta.LoadMeta(ctx)
	if err != nil {
		return fmt.Errorf("failed to load vault meta: %w", err)
	}
	if meta == nil {
		return ErrNotConfigured
	}
	meta.AutoLockSeconds = int(d / time.Second)
	if err := g.meta.SaveMeta(ctx, meta); err != nil {
		return fmt.Errorf("failed to persist vault meta: %w", err)
	}

	g.autoLock = d
	if g.master != nil {
		g.deadline = g.clock().Add(d)
	}
	return nil
}

// FailedAttempts reports the current counter, for status output.
func (g *Gate) FailedAttempts(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	meta, err := g.meta.LoadMeta(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load vault meta: %w", err)
	}
	if meta == nil {
		return 0, ErrNotConfigured
	}
	return openCounter(meta.KDFSalt, meta.FailedAttempts), nil
}

func (g *Gate) unlockLocked(master *keyring.KeyHandle) {
	if g.master != nil {
		g.master.Zero()
	}
	g.master = master
	g.deadline = g.clock().Add(g.autoLock)
}

func (g *Gate) lockLocked() {
	if g.master == nil {
		return
	}
	g.master.Zero()
	g.master = nil
	g.log.Info("vault locked")
}
