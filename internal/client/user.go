package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// UserClient implements healthtrack.UserClient.
type UserClient struct {
	client *Client
}

// NewUserClient creates a user client over c.
func NewUserClient(c *Client) *UserClient {
	return &UserClient{client: c}
}

// CurrentUserInfo implements healthtrack.UserClient.CurrentUserInfo.
func (u *UserClient) CurrentUserInfo(ctx context.Context) (*healthtrack.AuthenticatedUser, error) {
	user, err := Request[healthtrack.AuthenticatedUser](ctx, u.client, UserAPI.UserInfo())
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// InitInfo implements healthtrack.UserClient.InitInfo.
func (u *UserClient) InitInfo(ctx context.Context) (*healthtrack.ToolCheckInfo, error) {
	info, err := Request[healthtrack.ToolCheckInfo](ctx, u.client, UserAPI.InitInfo())
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// PeriodInfo implements healthtrack.UserClient.PeriodInfo.
func (u *UserClient) PeriodInfo(ctx context.Context) ([]healthtrack.PeriodInfo, error) {
	periods, err := RequestOrEmpty[[]healthtrack.PeriodInfo](ctx, u.client, UserAPI.PeriodSync())
	if err != nil {
		return nil, err
	}

	if periods == nil {
		periods = []healthtrack.PeriodInfo{}
	}

	return periods, nil
}

// SymptomLogs implements healthtrack.UserClient.SymptomLogs.
func (u *UserClient) SymptomLogs(ctx context.Context) ([]healthtrack.SymptomLog, error) {
	return RequestAll[healthtrack.SymptomLog](ctx, u.client, UserAPI.SymptomLog)
}

// SymptomLogPage implements healthtrack.UserClient.SymptomLogPage.
func (u *UserClient) SymptomLogPage(ctx context.Context, page, size int) (*healthtrack.Page[healthtrack.SymptomLog], error) {
	if page < constants.FirstPage {
		return nil, healthtrack.Classify(fmt.Errorf("%w: %d", constants.ErrInvalidPage, page))
	}

	if size <= 0 {
		return nil, healthtrack.Classify(fmt.Errorf("%w: %d", constants.ErrInvalidPageSize, size))
	}

	result, err := Request[healthtrack.Page[healthtrack.SymptomLog]](ctx, u.client, UserAPI.SymptomLog(page, size))
	if err != nil {
		return nil, err
	}

	return &result, nil
}
