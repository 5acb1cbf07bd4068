package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hthttp "github.com/fivetwenty-io/healthtrack/internal/http"
)

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) add(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.add("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{})  { l.add("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{})  { l.add("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.add("error", msg, fields) }

func (l *MockLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, 0, len(l.logs))
	for _, entry := range l.logs {
		msg, _ := entry["msg"].(string)
		out = append(out, msg)
	}

	return out
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/auth/test", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, "application/json;charset=utf-8", request.Header.Get("Content-Type"))
			assert.Equal(t, "healthtrack-go", request.Header.Get("User-Agent"))

			_, _ = writer.Write([]byte(`{"code":200,"message":"ok","data":null}`))
		}))
		defer server.Close()

		client := hthttp.NewClient(server.URL + "/")

		resp, err := client.Do(context.Background(), &hthttp.Request{
			Method: "GET",
			Path:   "auth/test",
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.JSONEq(t, `{"code":200,"message":"ok","data":null}`, string(resp.Body))
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/services/period/api/user-condition/sync", request.URL.Path)
			assert.Equal(t, "pageNo=2&pageSize=50", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := hthttp.NewClient(server.URL)

		resp, err := client.Do(context.Background(), &hthttp.Request{
			Method: "GET",
			Path:   "services/period/api/user-condition/sync",
			Query:  url.Values{"pageNo": []string{"2"}, "pageSize": []string{"50"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "PASSWORD", body["authType"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := hthttp.NewClient(server.URL)

		resp, err := client.Do(context.Background(), &hthttp.Request{
			Method: "POST",
			Path:   "auth/login",
			Body:   map[string]string{"authType": "PASSWORD"},
		})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("raw body is sent unchanged", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			body, _ := io.ReadAll(request.Body)
			assert.Equal(t, `[1,2,3]`, string(body))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := hthttp.NewClient(server.URL)

		_, err := client.Do(context.Background(), &hthttp.Request{
			Method: "POST",
			Path:   "items",
			Body:   []byte(`[1,2,3]`),
		})
		require.NoError(t, err)
	})

	t.Run("non-2xx status is a response, not an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`not found`))
		}))
		defer server.Close()

		client := hthttp.NewClient(server.URL)

		resp, err := client.Get(context.Background(), "missing", nil)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.Equal(t, "not found", string(resp.Body))
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			assert.Equal(t, "default-value", request.Header.Get("X-Default-Header"))
			assert.Equal(t, "test-agent", request.Header.Get("User-Agent"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := hthttp.NewClient(server.URL,
			hthttp.WithUserAgent("test-agent"),
			hthttp.WithDefaultHeaders(map[string]string{"X-Default-Header": "default-value"}),
		)

		resp, err := client.Do(context.Background(), &hthttp.Request{
			Method: "GET",
			Path:   "auth/test",
			Headers: map[string]string{
				"X-Custom-Header": "custom-value",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("base URL override", func(t *testing.T) {
		t.Parallel()

		other := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/elsewhere", request.URL.Path)
			writer.WriteHeader(http.StatusAccepted)
		}))
		defer other.Close()

		client := hthttp.NewClient("http://127.0.0.1:1")

		resp, err := client.Do(context.Background(), &hthttp.Request{
			Method:  "GET",
			BaseURL: other.URL,
			Path:    "/elsewhere",
		})
		require.NoError(t, err)
		assert.Equal(t, 202, resp.StatusCode)
	})

	t.Run("invalid base URL", func(t *testing.T) {
		t.Parallel()

		client := hthttp.NewClient("not a url")

		_, err := client.Get(context.Background(), "auth/test", nil)
		require.ErrorIs(t, err, hthttp.ErrInvalidBaseURL)
	})

	t.Run("nil request", func(t *testing.T) {
		t.Parallel()

		client := hthttp.NewClient("http://localhost")

		_, err := client.Do(context.Background(), nil)
		require.ErrorIs(t, err, hthttp.ErrNilRequest)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := hthttp.NewClient(server.URL, hthttp.WithLogger(logger), hthttp.WithDebug(true))

		_, err := client.Get(context.Background(), "auth/test", nil)
		require.NoError(t, err)

		assert.Contains(t, logger.messages(), "HTTP Request")
		assert.Contains(t, logger.messages(), "HTTP Response")
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := hthttp.NewClient(server.URL, hthttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 2 {
				writer.WriteHeader(http.StatusTooManyRequests)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := hthttp.NewClient(server.URL, hthttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("does not retry unauthorized", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := hthttp.NewClient(server.URL, hthttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "test", nil)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("final response is passed through after retries run out", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusServiceUnavailable)
			_, _ = writer.Write([]byte("busy"))
		}))
		defer server.Close()

		client := hthttp.NewClient(server.URL, hthttp.WithRetryConfig(2, time.Millisecond, 5*time.Millisecond))

		resp, err := client.Get(context.Background(), "test", nil)
		require.NoError(t, err)
		assert.Equal(t, 503, resp.StatusCode)
		assert.Equal(t, "busy", string(resp.Body))
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("connection failure is an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {}))
		serverURL := server.URL
		server.Close()

		client := hthttp.NewClient(serverURL, hthttp.WithRetryConfig(0, time.Millisecond, time.Millisecond))

		resp, err := client.Get(context.Background(), "test", nil)
		require.Error(t, err)
		assert.Nil(t, resp)
	})
}

func TestClient_RateLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := hthttp.NewClient(server.URL, hthttp.WithRateLimit(20, 1))

	start := time.Now()

	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), "test", nil)
		require.NoError(t, err)
	}

	// One token is available up front; the next two arrive at 50ms intervals.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := hthttp.NewClient(server.URL,
		hthttp.WithRateLimit(0.1, 1),
		hthttp.WithRetryConfig(0, time.Millisecond, time.Millisecond),
	)

	_, err := client.Get(context.Background(), "test", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Get(ctx, "test", nil)
	require.Error(t, err)
}
