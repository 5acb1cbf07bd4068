package constants

import "errors"

// Configuration errors.
var (
	ErrBaseURLRequired   = errors.New("base URL is required")
	ErrNoTokenConfigured = errors.New("no access token configured, use 'healthtrack login' to store one")
	ErrConfigNotFound    = errors.New("configuration not found")
	ErrUnknownConfigKey  = errors.New("unknown configuration key")
)

// Credential feed errors.
var (
	ErrNATSURLRequired = errors.New("NATS URL is required")
	ErrNoSubject       = errors.New("credential subject is required")
)

// Validation errors.
var (
	ErrInvalidPageSize = errors.New("page size must be greater than zero")
	ErrInvalidPage     = errors.New("page must be greater than zero")
	ErrEmptyToken      = errors.New("token must not be empty")
)
