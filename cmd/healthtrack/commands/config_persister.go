package commands

import (
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
)

// ConfigPersister implements the auth.ConfigPersister interface.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// UpdateAPIToken stores the token of profile in the config file. An empty
// token removes it.
func (p *ConfigPersister) UpdateAPIToken(profile, token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()

	profileConfig, exists := config.Profiles[profile]
	if !exists {
		return fmt.Errorf("profile '%s': %w", profile, constants.ErrConfigNotFound)
	}

	profileConfig.Token = token
	profileConfig.ExpiresAt = ""

	if token != "" && !expiresAt.IsZero() {
		profileConfig.ExpiresAt = expiresAt.UTC().Format(time.RFC3339)
	}

	return saveConfigStruct(config)
}
