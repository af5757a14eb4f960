package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/homehive/homehive-api/internal/domain"
	"github.com/homehive/homehive-api/internal/pkg/id"
)

const (
	// codeTTL is how long an issued code stays valid.
	codeTTL = 3 * time.Minute
	// verifiedRetention is the audit window before verified rows are purged.
	verifiedRetention = 24 * time.Hour
)

// Store is the per-channel persistence the manager needs. One instance per
// channel table; both tables share a shape.
type Store interface {
	// Replace removes every unverified code for the identifier and inserts
	// otp as one logical unit.
	Replace(ctx context.Context, otp *domain.OneTimeCode) error
	// NewestUnverified returns the most recently created unverified row
	// matching identifier and code exactly, or domain.ErrOTPNotFound.
	NewestUnverified(ctx context.Context, identifier, code string) (*domain.OneTimeCode, error)
	// MarkVerified flips a row to verified at most once; a row already
	// verified or gone yields domain.ErrOTPNotFound.
	MarkVerified(ctx context.Context, identifier, otpID string, at time.Time) error
	// Cleanup purges expired-unverified rows and verified rows older than
	// the retention window.
	Cleanup(ctx context.Context, now time.Time, retention time.Duration) error
}

// Sender delivers a code over one channel.
type Sender interface {
	Send(ctx context.Context, identifier, code, roleHint string) error
}

// Manager owns the one-time-code lifecycle for both channels: generation,
// replacement, validation, consumption, and opportunistic cleanup.
type Manager struct {
	stores  map[domain.Method]Store
	senders map[domain.Method]Sender
}

func NewManager(emailStore, phoneStore Store, emailSender, phoneSender Sender) *Manager {
	return &Manager{
		stores: map[domain.Method]Store{
			domain.MethodEmail: emailStore,
			domain.MethodPhone: phoneStore,
		},
		senders: map[domain.Method]Sender{
			domain.MethodEmail: emailSender,
			domain.MethodPhone: phoneSender,
		},
	}
}

// Issue generates a fresh 6-digit code for identifier, replaces any
// outstanding unverified codes, and attempts one delivery. Delivery failure
// is logged and swallowed: the code exists and is valid either way, and
// retry is the user's via resend. There is no separate cleanup scheduler, so
// a sweep runs inline first.
func (m *Manager) Issue(ctx context.Context, method domain.Method, identifier, roleHint string) (*domain.OneTimeCode, error) {
	store, sender, err := m.channel(method)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := store.Cleanup(ctx, now, verifiedRetention); err != nil {
		slog.Warn("otp cleanup sweep failed", "method", method, "err", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	otp := &domain.OneTimeCode{
		ChannelIdentifier: identifier,
		OTPID:             id.New(),
		Code:              code,
		RoleHint:          roleHint,
		ExpiresAt:         now.Add(codeTTL).Unix(),
		CreatedAt:         now.Unix(),
	}
	if err := store.Replace(ctx, otp); err != nil {
		return nil, fmt.Errorf("store one-time code: %w", err)
	}

	if err := sender.Send(ctx, identifier, code, roleHint); err != nil {
		slog.Warn("otp delivery failed", "method", method, "identifier", identifier, "err", err)
	}
	return otp, nil
}

// Validate checks a submitted code against the newest unverified row for the
// identifier. Comparison is exact string equality, so leading zeros matter.
// Returns domain.ErrOTPNotFound or domain.ErrOTPExpired on failure.
func (m *Manager) Validate(ctx context.Context, method domain.Method, identifier, submitted string) (*domain.OneTimeCode, error) {
	store, _, err := m.channel(method)
	if err != nil {
		return nil, err
	}
	otp, err := store.NewestUnverified(ctx, identifier, submitted)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() >= otp.ExpiresAt {
		return nil, fmt.Errorf("code for %s: %w", identifier, domain.ErrOTPExpired)
	}
	return otp, nil
}

// MarkVerified consumes a validated code. The store's conditional write makes
// this single-shot: a concurrent duplicate submission of the same code
// observes domain.ErrOTPNotFound.
func (m *Manager) MarkVerified(ctx context.Context, method domain.Method, otp *domain.OneTimeCode) error {
	store, _, err := m.channel(method)
	if err != nil {
		return err
	}
	return store.MarkVerified(ctx, otp.ChannelIdentifier, otp.OTPID, time.Now().UTC())
}

func (m *Manager) channel(method domain.Method) (Store, Sender, error) {
	store, ok := m.stores[method]
	if !ok {
		return nil, nil, fmt.Errorf("unknown channel %q: %w", method, domain.ErrBadRequest)
	}
	return store, m.senders[method], nil
}

// generateCode returns a uniformly random 6-digit numeric string, zero-padded.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
