package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/healthtrack/internal/client"
	"github.com/fivetwenty-io/healthtrack/internal/constants"
	"github.com/fivetwenty-io/healthtrack/internal/notify"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

func stringPtr(s string) *string {
	return &s
}

// newTestClient serves handler and returns a client without retries.
func newTestClient(t *testing.T, handler http.HandlerFunc, configure ...func(*healthtrack.Config)) *client.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := &healthtrack.Config{
		BaseURL:     server.URL,
		AccessToken: "token-a",
		RetryMax:    -1,
	}

	for _, fn := range configure {
		fn(config)
	}

	c, err := client.New(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires base URL", func(t *testing.T) {
		t.Parallel()

		_, err := client.New(context.Background(), &healthtrack.Config{})
		require.ErrorIs(t, err, constants.ErrBaseURLRequired)

		_, err = client.New(context.Background(), nil)
		require.ErrorIs(t, err, constants.ErrBaseURLRequired)
	})

	t.Run("creates client", func(t *testing.T) {
		t.Parallel()

		c, err := client.New(context.Background(), &healthtrack.Config{BaseURL: "https://api.example.com/"})
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com", c.BaseURL())
		assert.NotNil(t, c.Login())
		assert.NotNil(t, c.User())
		assert.NoError(t, c.Close())
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestLoginClient(t *testing.T) {
	t.Parallel()

	t.Run("test pass", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/test", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"code":200,"message":"ok"}`))
		})

		require.NoError(t, c.Login().TestPass(context.Background()))
	})

	t.Run("test pass business failure", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"code":503,"message":"maintenance"}`))
		})

		err := c.Login().TestPass(context.Background())
		require.Error(t, err)
		assert.True(t, healthtrack.IsBusiness(err))

		var apiErr *healthtrack.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 503, apiErr.Code)
		assert.Equal(t, "maintenance", apiErr.MessageText())
	})

	t.Run("auth posts credentials", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/login", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, constants.ContentTypeJSON, r.Header.Get("Content-Type"))

			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.JSONEq(t, `{"username":"ana","password":"secret","authType":"PASSWORD"}`, string(body))

			_, _ = w.Write([]byte(`{"code":200,"data":{"token":"abc"}}`))
		})

		data, err := c.Login().Auth(context.Background(), &healthtrack.LoginAuth{
			Username: stringPtr("ana"),
			Password: stringPtr("secret"),
			AuthType: healthtrack.AuthTypePassword,
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"token":"abc"}`, string(data))
	})

	t.Run("auth rejects incomplete credentials before sending", func(t *testing.T) {
		t.Parallel()

		called := false
		c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
			called = true
		})

		_, err := c.Login().Auth(context.Background(), &healthtrack.LoginAuth{AuthType: healthtrack.AuthTypePassword})
		require.Error(t, err)
		assert.True(t, healthtrack.IsTransport(err))

		var fieldErrors healthtrack.FieldErrors
		require.ErrorAs(t, err, &fieldErrors)
		assert.False(t, called)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestUserClient(t *testing.T) {
	t.Parallel()

	t.Run("current user info from flat payload", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/services/uaa/api/users/get-user", r.URL.Path)
			assert.Equal(t, "Bearer token-a", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"code":200,"data":{"login":"ana","nickname":"Ana","user_type":"SYSTEM","verify_email":true}}`))
		})

		user, err := c.User().CurrentUserInfo(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ana", user.Info.Login)
		assert.Equal(t, healthtrack.UserTypeSystem, user.Info.UserType)
		assert.True(t, user.DetailsInfo.VerifyEmail)
	})

	t.Run("current user info without data", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"code":200}`))
		})

		_, err := c.User().CurrentUserInfo(context.Background())
		assert.True(t, healthtrack.IsDecoding(err))
	})

	t.Run("unauthorized is surfaced", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			attempts++
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := c.User().CurrentUserInfo(context.Background())
		assert.True(t, healthtrack.IsUnauthorized(err))
		assert.Equal(t, 1, attempts)
	})

	t.Run("init info gates settings", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"code":200,"data":{"init":false,"cycleLength":28}}`))
		})

		info, err := c.User().InitInfo(context.Background())
		require.NoError(t, err)
		assert.False(t, info.Init)
		assert.Nil(t, info.Info)
	})

	t.Run("init info with settings", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"code":200,"data":{"init":true,"cycle_length":28,"show_type":7}}`))
		})

		info, err := c.User().InitInfo(context.Background())
		require.NoError(t, err)
		require.NotNil(t, info.Info)
		assert.Equal(t, 28, info.Info.CycleLength)
		assert.Equal(t, healthtrack.ToolModePeriod, info.Info.ShowType)
	})

	t.Run("period info tolerates missing data", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"code":200,"data":null}`))
		})

		periods, err := c.User().PeriodInfo(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, periods)
		assert.Empty(t, periods)
	})

	t.Run("period info", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/services/period/api/user-period/sync", r.URL.Path)
			_, _ = w.Write([]byte(`{"code":200,"data":[{"versionId":1,"startTime":"2026-01-01","indexIncre":3}]}`))
		})

		periods, err := c.User().PeriodInfo(context.Background())
		require.NoError(t, err)
		require.Len(t, periods, 1)
		assert.Equal(t, "2026-01-01", periods[0].StartTime)
		assert.Nil(t, periods[0].EndTime)
	})

	t.Run("symptom logs follow every page", func(t *testing.T) {
		t.Parallel()

		var (
			mutex sync.Mutex
			seen  []string
		)

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/services/period/api/user-condition/sync", r.URL.Path)
			assert.Equal(t, "50", r.URL.Query().Get("pageSize"))

			mutex.Lock()
			seen = append(seen, r.URL.Query().Get("pageNo"))
			mutex.Unlock()

			switch r.URL.Query().Get("pageNo") {
			case "1":
				_, _ = w.Write([]byte(`{"code":200,"data":{"has_next_page":true,"next_page":2,"total":3,` +
					`"list":[{"date":"2026-01-01","version_id":1},{"date":"2026-01-02","version_id":1}]}}`))
			default:
				_, _ = w.Write([]byte(`{"code":200,"data":{"hasNextPage":false,"nextPage":2,"total":3,` +
					`"list":[{"date":"2026-01-03","versionId":2}]}}`))
			}
		})

		logs, err := c.User().SymptomLogs(context.Background())
		require.NoError(t, err)
		require.Len(t, logs, 3)
		assert.Equal(t, "2026-01-03", logs[2].Date)
		assert.Equal(t, 2, logs[2].VersionID)
		assert.Equal(t, []string{"1", "2"}, seen)
	})

	t.Run("symptom logs discard partial results on failure", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("pageNo") == "1" {
				_, _ = w.Write([]byte(`{"code":200,"data":{"hasNextPage":true,"nextPage":2,"list":[{"date":"2026-01-01"}]}}`))

				return
			}

			_, _ = w.Write([]byte(`{"code":5001,"message":"sync failed"}`))
		})

		logs, err := c.User().SymptomLogs(context.Background())
		assert.Nil(t, logs)
		assert.True(t, healthtrack.IsBusiness(err))
	})

	t.Run("symptom log page", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "3", r.URL.Query().Get("pageNo"))
			assert.Equal(t, "10", r.URL.Query().Get("pageSize"))
			_, _ = w.Write([]byte(`{"code":200,"data":{"hasNextPage":false,"list":[],"total":20}}`))
		})

		page, err := c.User().SymptomLogPage(context.Background(), 3, 10)
		require.NoError(t, err)
		assert.False(t, page.HasNextPage)
		assert.Equal(t, 20, page.Total)
	})

	t.Run("symptom log page rejects bad arguments", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(http.ResponseWriter, *http.Request) {})

		_, err := c.User().SymptomLogPage(context.Background(), 0, 10)
		require.ErrorIs(t, err, constants.ErrInvalidPage)

		_, err = c.User().SymptomLogPage(context.Background(), 1, 0)
		require.ErrorIs(t, err, constants.ErrInvalidPageSize)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Credentials(t *testing.T) {
	t.Parallel()

	authHeader := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":"` + r.Header.Get("Authorization") + `"}`))
	}

	userDescriptor := healthtrack.Descriptor{
		Name:     "whoami",
		Path:     "whoami",
		Method:   http.MethodGet,
		Audience: healthtrack.AudienceAuthenticated,
	}

	t.Run("set token rebuilds executors", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, authHeader)

		got, err := client.Request[string](context.Background(), c, userDescriptor)
		require.NoError(t, err)
		assert.Equal(t, "Bearer token-a", got)

		require.NoError(t, c.SetToken(context.Background(), "token-b", time.Time{}))
		assert.Equal(t, uint64(1), c.Epoch())

		got, err = client.Request[string](context.Background(), c, userDescriptor)
		require.NoError(t, err)
		assert.Equal(t, "Bearer token-b", got)
	})

	t.Run("clear token fails authenticated calls", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, authHeader)
		require.NoError(t, c.ClearToken(context.Background()))

		_, err := client.Request[string](context.Background(), c, userDescriptor)
		assert.True(t, healthtrack.IsTransport(err))
	})

	t.Run("request decodes into out", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, authHeader)

		var got string
		require.NoError(t, c.Request(context.Background(), userDescriptor, &got))
		assert.Equal(t, "Bearer token-a", got)

		var wrong int
		err := c.Request(context.Background(), userDescriptor, &wrong)
		assert.True(t, healthtrack.IsDecoding(err))
	})

	t.Run("unknown audience", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, authHeader)

		descriptor := userDescriptor
		descriptor.Audience = "admin"

		_, err := client.Request[string](context.Background(), c, descriptor)
		require.ErrorIs(t, err, healthtrack.ErrUnknownAudience)
	})

	t.Run("credential feed applies published tokens", func(t *testing.T) {
		t.Parallel()

		conn := &loopbackConn{}
		c := newTestClient(t, authHeader)

		server := httptest.NewServer(http.HandlerFunc(authHeader))
		t.Cleanup(server.Close)

		fed, err := client.New(context.Background(), &healthtrack.Config{
			BaseURL:     server.URL,
			AccessToken: "token-a",
			RetryMax:    -1,
		}, client.WithNATSConn(conn))
		require.NoError(t, err)

		require.NoError(t, notify.NewPublisher(conn, "").Publish(notify.Change{
			Reason:      notify.ReasonLogin,
			AccessToken: "token-c",
		}))

		got, err := client.Request[string](context.Background(), fed, userDescriptor)
		require.NoError(t, err)
		assert.Equal(t, "Bearer token-c", got)
		assert.Equal(t, uint64(1), fed.Epoch())
		assert.Equal(t, uint64(0), c.Epoch())

		require.NoError(t, fed.Close())
		assert.Equal(t, 0, conn.drained)
	})
}

// loopbackConn hands published messages straight to the subscribed handler.
type loopbackConn struct {
	mutex   sync.Mutex
	handler nats.MsgHandler
	drained int
}

func (c *loopbackConn) Subscribe(_ string, handler nats.MsgHandler) (*nats.Subscription, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.handler = handler

	return nil, nil
}

func (c *loopbackConn) Publish(subject string, data []byte) error {
	c.mutex.Lock()
	handler := c.handler
	c.mutex.Unlock()

	if handler != nil {
		handler(&nats.Msg{Subject: subject, Data: data})
	}

	return nil
}

func (c *loopbackConn) Drain() error {
	c.drained++

	return nil
}

func TestRequestAll(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("size"))

		page := r.URL.Query().Get("page")
		payload := map[string]interface{}{
			"code": 200,
			"data": map[string]interface{}{
				"hasNextPage": page == "1",
				"nextPage":    2,
				"list":        []string{"item-" + page},
			},
		}

		_ = json.NewEncoder(w).Encode(payload)
	}, func(config *healthtrack.Config) {
		config.PageSize = 5
	})

	items, err := client.RequestAll[string](context.Background(), c, func(page, size int) healthtrack.Descriptor {
		return healthtrack.Descriptor{
			Name:     "items",
			Path:     "items",
			Method:   http.MethodGet,
			Encoding: healthtrack.EncodingQuery,
			Params:   map[string]interface{}{"page": page, "size": size},
			Audience: healthtrack.AudienceUnauthenticated,
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"item-1", "item-2"}, items)
}
