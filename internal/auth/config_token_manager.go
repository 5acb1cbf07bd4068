package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// Static errors for err113 compliance.
var (
	ErrNoConfigPersister = errors.New("no config persister configured")
	ErrNoValidToken      = errors.New("no valid access token")
)

// TokenManager hands out the access token for authenticated calls.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
}

// ChangeListener is notified after the stored credentials change.
type ChangeListener func(ctx context.Context) error

// ConfigPersister defines the interface for persisting config changes.
type ConfigPersister interface {
	UpdateAPIToken(profile, token string, expiresAt time.Time) error
}

// ConfigTokenManager keeps the access token in memory, writes every change
// through to the configuration, and tells listeners about it.
type ConfigTokenManager struct {
	store           *TokenStore
	configPersister ConfigPersister
	profile         string
	logger          healthtrack.Logger

	mutex     sync.Mutex
	listeners []ChangeListener
}

// NewConfigTokenManager creates a manager seeded with initialToken. A nil
// persister keeps changes in memory only.
func NewConfigTokenManager(configPersister ConfigPersister, profile, initialToken string, initialExpiry time.Time, logger healthtrack.Logger) *ConfigTokenManager {
	store := NewTokenStore()

	if initialToken != "" {
		store.Set(&Token{AccessToken: initialToken, TokenType: "bearer", ExpiresAt: initialExpiry})
	}

	return &ConfigTokenManager{
		store:           store,
		configPersister: configPersister,
		profile:         profile,
		logger:          healthtrack.LoggerOrNoop(logger),
	}
}

// GetToken returns the stored token if it is still valid.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if !token.Valid() {
		return "", ErrNoValidToken
	}

	return token.AccessToken, nil
}

// OnChange registers a listener for credential changes.
func (m *ConfigTokenManager) OnChange(listener ChangeListener) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.listeners = append(m.listeners, listener)
}

// SetToken stores a new token, persists it, and notifies listeners.
func (m *ConfigTokenManager) SetToken(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return constants.ErrEmptyToken
	}

	m.store.Set(&Token{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt})

	return m.changed(ctx, token, expiresAt)
}

// ClearToken forgets the token, persists the removal, and notifies listeners.
func (m *ConfigTokenManager) ClearToken(ctx context.Context) error {
	m.store.Clear()

	return m.changed(ctx, "", time.Time{})
}

// IsTokenExpiringSoon returns true if the token expires within the given duration.
func (m *ConfigTokenManager) IsTokenExpiringSoon(within time.Duration) bool {
	token := m.store.Get()
	if token == nil {
		return true
	}

	if token.ExpiresAt.IsZero() {
		return false
	}

	return time.Now().Add(within).After(token.ExpiresAt)
}

// GetTokenExpiry returns the current token's expiration time.
func (m *ConfigTokenManager) GetTokenExpiry() time.Time {
	token := m.store.Get()
	if token == nil {
		return time.Time{}
	}

	return token.ExpiresAt
}

// Notify tells listeners that credentials changed elsewhere, for example in
// another process sharing the configuration.
func (m *ConfigTokenManager) Notify(ctx context.Context) error {
	m.mutex.Lock()
	listeners := append([]ChangeListener(nil), m.listeners...)
	m.mutex.Unlock()

	var errs []error

	for _, listener := range listeners {
		err := listener(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m *ConfigTokenManager) changed(ctx context.Context, token string, expiresAt time.Time) error {
	var errs []error

	err := m.persistToken(token, expiresAt)
	if err != nil && !errors.Is(err, ErrNoConfigPersister) {
		m.logger.Warn("failed to persist access token", map[string]interface{}{
			"profile": m.profile,
			"error":   err.Error(),
		})

		errs = append(errs, err)
	}

	err = m.Notify(ctx)
	if err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// persistToken saves the token to config.
func (m *ConfigTokenManager) persistToken(token string, expiresAt time.Time) error {
	if m.configPersister == nil {
		return ErrNoConfigPersister
	}

	err := m.configPersister.UpdateAPIToken(m.profile, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to update API token: %w", err)
	}

	return nil
}
