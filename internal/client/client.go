package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fivetwenty-io/healthtrack/internal/auth"
	"github.com/fivetwenty-io/healthtrack/internal/constants"
	hthttp "github.com/fivetwenty-io/healthtrack/internal/http"
	"github.com/fivetwenty-io/healthtrack/internal/notify"
	"github.com/fivetwenty-io/healthtrack/internal/provider"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

var _ healthtrack.Client = (*Client)(nil)

// Client implements the healthtrack.Client interface.
type Client struct {
	session      *hthttp.Client
	tokenManager *auth.ConfigTokenManager
	manager      *provider.Manager
	logger       healthtrack.Logger
	pageSize     int
	maxPages     int

	login *LoginClient
	user  *UserClient

	conn       notify.Conn
	ownsConn   bool
	subscriber *notify.Subscriber
}

type buildOptions struct {
	persister auth.ConfigPersister
	profile   string
	conn      notify.Conn
}

// Option configures New.
type Option func(*buildOptions)

// WithConfigPersister writes every token change through persister under profile.
func WithConfigPersister(persister auth.ConfigPersister, profile string) Option {
	return func(o *buildOptions) {
		o.persister = persister
		o.profile = profile
	}
}

// WithNATSConn uses conn for the credential feed instead of dialing
// config.NATS.URL.
func WithNATSConn(conn notify.Conn) Option {
	return func(o *buildOptions) {
		o.conn = conn
	}
}

// createHTTPClientOptions builds session options from config.
func createHTTPClientOptions(config *healthtrack.Config, logger healthtrack.Logger) []hthttp.Option {
	httpOpts := []hthttp.Option{hthttp.WithLogger(logger)}

	if config.Debug {
		httpOpts = append(httpOpts, hthttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, hthttp.WithUserAgent(config.UserAgent))
	}

	if config.RetryMax != 0 {
		retryMax := max(config.RetryMax, 0)
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, hthttp.WithRetryConfig(retryMax, retryWaitMin, retryWaitMax))
	}

	if config.RateLimit > 0 {
		httpOpts = append(httpOpts, hthttp.WithRateLimit(config.RateLimit, config.RateBurst))
	}

	return httpOpts
}

// New creates a client from config. When config.NATS is set the client
// subscribes to credential changes until Close.
func New(ctx context.Context, config *healthtrack.Config, opts ...Option) (*Client, error) {
	if config == nil || config.BaseURL == "" {
		return nil, constants.ErrBaseURLRequired
	}

	var build buildOptions
	for _, opt := range opts {
		opt(&build)
	}

	logger := healthtrack.LoggerOrNoop(config.Logger)
	session := hthttp.NewClient(config.BaseURL, createHTTPClientOptions(config, logger)...)
	tokenManager := auth.NewConfigTokenManager(build.persister, build.profile, config.AccessToken, config.TokenExpiresAt, logger)

	managerOpts := []provider.Option{
		provider.WithLogger(logger),
		provider.WithTimeout(config.RequestTimeout),
		provider.WithHeaders(config.Headers),
	}

	if config.Metrics != nil {
		managerOpts = append(managerOpts, provider.WithMetrics(config.Metrics))
	}

	manager := provider.NewManager(session, tokenManager, managerOpts...)
	tokenManager.OnChange(manager.OnCredentialChange)

	client := &Client{
		session:      session,
		tokenManager: tokenManager,
		manager:      manager,
		logger:       logger,
		pageSize:     constants.DefaultPageSize,
		maxPages:     constants.DefaultMaxPages,
	}

	if config.PageSize > 0 {
		client.pageSize = config.PageSize
	}

	if config.MaxPages > 0 {
		client.maxPages = config.MaxPages
	}

	client.login = NewLoginClient(client)
	client.user = NewUserClient(client)

	err := client.startCredentialFeed(ctx, config.NATS, build)
	if err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) startCredentialFeed(ctx context.Context, config *healthtrack.NATSConfig, build buildOptions) error {
	if config == nil && build.conn == nil {
		return nil
	}

	conn := build.conn
	if conn == nil {
		natsConn, err := notify.Connect(config)
		if err != nil {
			return err
		}

		conn = natsConn
		c.ownsConn = true
	}

	var subject string
	if config != nil {
		subject = config.Subject
	}

	subscriber := notify.NewSubscriber(conn, subject, c,
		notify.WithProfile(build.profile),
		notify.WithLogger(c.logger),
	)

	err := subscriber.Start(ctx)
	if err != nil {
		if c.ownsConn {
			_ = conn.Drain()
		}

		return fmt.Errorf("starting credential feed: %w", err)
	}

	c.conn = conn
	c.subscriber = subscriber

	return nil
}

// Login implements healthtrack.Client.Login.
func (c *Client) Login() healthtrack.LoginClient {
	return c.login
}

// User implements healthtrack.Client.User.
func (c *Client) User() healthtrack.UserClient {
	return c.user
}

// Request implements healthtrack.Client.Request.
func (c *Client) Request(ctx context.Context, descriptor healthtrack.Descriptor, out interface{}) error {
	data, err := Request[json.RawMessage](ctx, c, descriptor)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return healthtrack.DecodingFailure(err)
	}

	return nil
}

// SetToken implements healthtrack.Client.SetToken.
func (c *Client) SetToken(ctx context.Context, token string, expiresAt time.Time) error {
	return c.tokenManager.SetToken(ctx, token, expiresAt)
}

// ClearToken implements healthtrack.Client.ClearToken.
func (c *Client) ClearToken(ctx context.Context) error {
	return c.tokenManager.ClearToken(ctx)
}

// OnCredentialChange implements healthtrack.Client.OnCredentialChange.
func (c *Client) OnCredentialChange(ctx context.Context) error {
	return c.manager.OnCredentialChange(ctx)
}

// Close implements healthtrack.Client.Close.
func (c *Client) Close() error {
	if c.subscriber == nil {
		return nil
	}

	err := c.subscriber.Close()

	if c.ownsConn && c.conn != nil {
		drainErr := c.conn.Drain()
		if err == nil && drainErr != nil {
			err = fmt.Errorf("draining NATS connection: %w", drainErr)
		}
	}

	c.subscriber = nil

	return err
}

// Epoch returns the current credential epoch.
func (c *Client) Epoch() uint64 {
	return c.manager.Epoch()
}

// BaseURL returns the session base URL.
func (c *Client) BaseURL() string {
	return c.session.BaseURL()
}

// TokenManager returns the token manager backing the client.
func (c *Client) TokenManager() *auth.ConfigTokenManager {
	return c.tokenManager
}
