package healthtrack

import (
	"context"
	"encoding/json"
	"time"
)

// LoginClient covers the unauthenticated login endpoints.
type LoginClient interface {
	// TestPass checks that the service is reachable and answering.
	TestPass(ctx context.Context) error
	// Auth posts credentials to the login endpoint and returns the raw data
	// payload. It does not store any token it may contain.
	Auth(ctx context.Context, params *LoginAuth) (json.RawMessage, error)
}

// UserClient covers the endpoints of the signed-in user.
type UserClient interface {
	// CurrentUserInfo fails with a decoding failure when the server returns no data.
	CurrentUserInfo(ctx context.Context) (*AuthenticatedUser, error)
	// InitInfo fails with a decoding failure when the server returns no data.
	InitInfo(ctx context.Context) (*ToolCheckInfo, error)
	// PeriodInfo returns an empty list when the server returns no data.
	PeriodInfo(ctx context.Context) ([]PeriodInfo, error)
	// SymptomLogs follows every page and returns the records in server order.
	SymptomLogs(ctx context.Context) ([]SymptomLog, error)
	// SymptomLogPage fetches a single page.
	SymptomLogPage(ctx context.Context, page, size int) (*Page[SymptomLog], error)
}

// Client is the entry point to the health-tracking API.
type Client interface {
	Login() LoginClient
	User() UserClient

	// Request runs any descriptor and decodes the data payload into out. It
	// fails with a decoding failure when the payload is absent.
	Request(ctx context.Context, descriptor Descriptor, out interface{}) error

	// SetToken stores a new access token and rebuilds the executors.
	SetToken(ctx context.Context, token string, expiresAt time.Time) error
	// ClearToken forgets the access token and rebuilds the executors.
	ClearToken(ctx context.Context) error
	// OnCredentialChange rebuilds the executors so that new calls observe the
	// current credentials. Calls already in flight are unaffected.
	OnCredentialChange(ctx context.Context) error

	// Close releases background resources such as the credential feed.
	Close() error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NATSConfig configures the credential-change feed.
type NATSConfig struct {
	// URL of the NATS server, e.g. nats://127.0.0.1:4222.
	URL string
	// Subject to listen on. Defaults to healthtrack.credentials.changed.
	Subject string
	// Name reported to the server for this connection.
	Name string
	// Token used to authenticate against the NATS server, if any.
	Token string
}

// Config represents client configuration for building a Client.
//
// Per-call deadlines come from the context passed to each method. On top of
// that every executor applies RequestTimeout (60s when zero) to each call.
// Transient failures (429, 5xx other than 501, connection errors) are retried
// by the session up to RetryMax times; a 401 is never retried and surfaces as
// a transport failure so the caller can re-authenticate.
type Config struct {
	// BaseURL of the API, e.g. "https://api.example.com/". Required.
	BaseURL string
	// AccessToken is sent as a bearer token by the authenticated executor.
	AccessToken string
	// TokenExpiresAt is the expiry of AccessToken. Zero means it never expires.
	TokenExpiresAt time.Time
	// Headers are added to every request.
	Headers map[string]string
	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// RequestTimeout bounds each call. Defaults to 60s.
	RequestTimeout time.Duration
	// RetryMax is the maximum number of retries for transient failures.
	// Zero keeps the default of 3; a negative value disables retries.
	RetryMax int
	// RetryWaitMin is the minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax is the maximum backoff between retries.
	RetryWaitMax time.Duration
	// RateLimit caps outgoing requests per second when greater than zero.
	RateLimit float64
	// RateBurst is the burst allowed by RateLimit. Defaults to 1.
	RateBurst int

	// PageSize is used when following list endpoints. Defaults to 50.
	PageSize int
	// MaxPages bounds a single aggregation. Defaults to 1000.
	MaxPages int

	// Debug enables verbose HTTP request/response logging.
	Debug bool
	// Logger receives structured logs. Defaults to a logger that drops everything.
	Logger Logger
	// Metrics, when set, collects per-endpoint call statistics.
	Metrics *MetricsCollector

	// NATS, when set, subscribes to credential-change notifications and
	// rebuilds the executors whenever one arrives.
	NATS *NATSConfig
}
