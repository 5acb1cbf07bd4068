// Package htclient is the entry point for building a healthtrack.Client.
//
//	cli, err := htclient.New(ctx, &healthtrack.Config{
//	  BaseURL:     "https://api.example.com/",
//	  AccessToken: token,
//	})
//	if err != nil { log.Fatal(err) }
//	defer cli.Close()
//
//	user, err := cli.User().CurrentUserInfo(ctx)
//
// Endpoints the typed clients do not cover can be called with Request and
// RequestAll and a healthtrack.Descriptor.
package htclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/healthtrack/internal/client"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// Client is the concrete healthtrack.Client returned by New.
type Client struct {
	*client.Client
}

var _ healthtrack.Client = (*Client)(nil)

// ConfigPersister stores access tokens, for example in a configuration file.
type ConfigPersister interface {
	UpdateAPIToken(profile, token string, expiresAt time.Time) error
}

// Option configures New.
type Option = client.Option

// WithConfigPersister writes every token change through persister under profile.
func WithConfigPersister(persister ConfigPersister, profile string) Option {
	return client.WithConfigPersister(persister, profile)
}

// New creates a client. A BaseURL without a scheme is assumed to be https.
func New(ctx context.Context, config *healthtrack.Config, opts ...Option) (*Client, error) {
	if config != nil && config.BaseURL != "" {
		normalized := *config
		normalized.BaseURL = normalizeBaseURL(config.BaseURL)
		config = &normalized
	}

	inner, err := client.New(ctx, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return &Client{Client: inner}, nil
}

// Request runs descriptor on c and returns its data payload.
func Request[T any](ctx context.Context, c *Client, descriptor healthtrack.Descriptor) (T, error) {
	return client.Request[T](ctx, c.Client, descriptor)
}

// RequestOrEmpty is Request with an absent payload read as the zero value.
func RequestOrEmpty[T any](ctx context.Context, c *Client, descriptor healthtrack.Descriptor) (T, error) {
	return client.RequestOrEmpty[T](ctx, c.Client, descriptor)
}

// RequestAll follows every page of a list endpoint. pageOf builds the
// descriptor of one page.
func RequestAll[S any](ctx context.Context, c *Client, pageOf func(page, size int) healthtrack.Descriptor) ([]S, error) {
	return client.RequestAll[S](ctx, c.Client, pageOf)
}

func normalizeBaseURL(baseURL string) string {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return strings.TrimSuffix(baseURL, "/")
}
