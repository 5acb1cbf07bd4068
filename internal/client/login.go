package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// LoginClient implements healthtrack.LoginClient.
type LoginClient struct {
	client *Client
}

// NewLoginClient creates a login client over c.
func NewLoginClient(c *Client) *LoginClient {
	return &LoginClient{client: c}
}

// TestPass implements healthtrack.LoginClient.TestPass.
func (l *LoginClient) TestPass(ctx context.Context) error {
	_, err := Envelope[healthtrack.EmptyModel](ctx, l.client, LoginAPI.Test())

	return err
}

// Auth implements healthtrack.LoginClient.Auth.
func (l *LoginClient) Auth(ctx context.Context, params *healthtrack.LoginAuth) (json.RawMessage, error) {
	if params == nil {
		params = &healthtrack.LoginAuth{}
	}

	err := params.Validate()
	if err != nil {
		return nil, healthtrack.Classify(fmt.Errorf("invalid login parameters: %w", err))
	}

	return Request[json.RawMessage](ctx, l.client, LoginAPI.Auth(params))
}
