package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sampleapp/internal/server/models"
)

// DefaultResetValidity is how long a password-reset token stays usable.
const DefaultResetValidity = 2 * time.Hour

// Store writes a subset of a user's columns without re-validating the rest
// of the row. users.Repository satisfies it.
type Store interface {
	UpdateColumns(ctx context.Context, userID string, cols models.Columns) error
}

// Manager applies the credential operations to a models.User.
type Manager struct {
	hasher        *Hasher
	resetValidity time.Duration
	now           func() time.Time
	newToken      func() (string, error)
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithResetValidity overrides DefaultResetValidity.
func WithResetValidity(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.resetValidity = d
		}
	}
}

func NewManager(h *Hasher, opts ...Option) *Manager {
	m := &Manager{
		hasher:        h,
		resetValidity: DefaultResetValidity,
		now:           time.Now,
		newToken:      NewToken,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time { return m.now() }

// SetPassword validates plaintext and stores its digest on u. Nothing is
// persisted.
func (m *Manager) SetPassword(u *models.User, plaintext string) error {
	if err := models.ValidatePassword(plaintext); err != nil {
		return err
	}
	d, err := m.hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	u.PasswordDigest = d
	return nil
}

// AuthenticatePassword reports whether plaintext is u's password.
func (m *Manager) AuthenticatePassword(u *models.User, plaintext string) bool {
	return m.hasher.Verify(plaintext, u.PasswordDigest)
}

// Authenticated reports whether token matches u's digest of the given kind.
func (m *Manager) Authenticated(u *models.User, kind Kind, token string) bool {
	return m.hasher.Verify(token, digest(u, kind))
}

// Remember issues a new remember token and persists its digest. The raw
// token is returned and kept in u.RememberToken; any earlier token stops
// verifying.
func (m *Manager) Remember(ctx context.Context, store Store, u *models.User) (string, error) {
	token, d, err := m.issue()
	if err != nil {
		return "", err
	}
	if err := store.UpdateColumns(ctx, u.ID, models.Columns{models.ColumnRememberDigest: d}); err != nil {
		return "", fmt.Errorf("error saving remember digest: %w", err)
	}
	u.RememberToken = token
	u.RememberDigest = &d
	return token, nil
}

// Forget clears the remember digest. It is idempotent.
func (m *Manager) Forget(ctx context.Context, store Store, u *models.User) error {
	if err := store.UpdateColumns(ctx, u.ID, models.Columns{models.ColumnRememberDigest: nil}); err != nil {
		return fmt.Errorf("error clearing remember digest: %w", err)
	}
	u.RememberToken = ""
	u.RememberDigest = nil
	return nil
}

// CreateActivationDigest sets a fresh activation token and digest on u.
// It must run once, before u is first inserted; nothing is persisted here.
func (m *Manager) CreateActivationDigest(u *models.User) (string, error) {
	token, d, err := m.issue()
	if err != nil {
		return "", err
	}
	u.ActivationToken = token
	u.ActivationDigest = &d
	return token, nil
}

// Activate marks u activated. An already activated user is left untouched
// so the original activation time is kept.
func (m *Manager) Activate(ctx context.Context, store Store, u *models.User) error {
	if u.Activated {
		return nil
	}
	now := m.now()
	cols := models.Columns{
		models.ColumnActivated:   true,
		models.ColumnActivatedAt: now,
	}
	if err := store.UpdateColumns(ctx, u.ID, cols); err != nil {
		return fmt.Errorf("error activating user: %w", err)
	}
	u.Activated = true
	u.ActivatedAt = &now
	return nil
}

// CreateResetDigest issues a reset token, persisting its digest and the
// send time together. A previous reset token stops verifying.
func (m *Manager) CreateResetDigest(ctx context.Context, store Store, u *models.User) (string, error) {
	token, d, err := m.issue()
	if err != nil {
		return "", err
	}
	now := m.now()
	cols := models.Columns{
		models.ColumnResetDigest: d,
		models.ColumnResetSentAt: now,
	}
	if err := store.UpdateColumns(ctx, u.ID, cols); err != nil {
		return "", fmt.Errorf("error saving reset digest: %w", err)
	}
	u.ResetToken = token
	u.ResetDigest = &d
	u.ResetSentAt = &now
	return token, nil
}

// IsResetExpired reports whether the reset token was sent longer ago than
// the reset validity window. A user without a reset request is expired.
func (m *Manager) IsResetExpired(u *models.User) bool {
	if u.ResetSentAt == nil {
		return true
	}
	return u.ResetSentAt.Before(m.now().Add(-m.resetValidity))
}

// issue returns a new raw token and its digest.
func (m *Manager) issue() (string, string, error) {
	token, err := m.newToken()
	if err != nil {
		return "", "", err
	}
	d, err := m.hasher.Hash(token)
	if err != nil {
		return "", "", err
	}
	return token, d, nil
}
