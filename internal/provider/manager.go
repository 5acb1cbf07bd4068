// Package provider owns the executors calls run on. Executors are built
// lazily per audience and rebuilt together whenever credentials change;
// executors handed out earlier keep working with the configuration they were
// built with.
package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/healthtrack/internal/auth"
	"github.com/fivetwenty-io/healthtrack/internal/constants"
	hthttp "github.com/fivetwenty-io/healthtrack/internal/http"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// snapshot is an immutable view of the executor cache.
type snapshot struct {
	epoch     uint64
	executors map[healthtrack.Audience]*Executor
}

// Manager hands out executors. Reads are lock-free; rebuilds and lazy
// construction are serialized by a mutex and published by swapping the whole
// snapshot.
type Manager struct {
	session *hthttp.Client
	tokens  auth.TokenManager
	logger  healthtrack.Logger
	timeout time.Duration
	metrics *healthtrack.MetricsCollector
	headers map[string]string

	mutex   sync.Mutex
	current atomic.Pointer[snapshot]
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger healthtrack.Logger) Option {
	return func(m *Manager) {
		m.logger = healthtrack.LoggerOrNoop(logger)
	}
}

// WithTimeout sets the per-call timeout applied by every executor.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithMetrics records per-endpoint statistics in collector.
func WithMetrics(collector *healthtrack.MetricsCollector) Option {
	return func(m *Manager) {
		m.metrics = collector
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(m *Manager) {
		for key, value := range headers {
			m.headers[key] = value
		}
	}
}

// NewManager creates a manager over session. tokens supplies the bearer token
// of the authenticated audience.
func NewManager(session *hthttp.Client, tokens auth.TokenManager, opts ...Option) *Manager {
	manager := &Manager{
		session: session,
		tokens:  tokens,
		logger:  healthtrack.NoopLogger(),
		timeout: constants.DefaultRequestTimeout,
		headers: make(map[string]string),
	}

	for _, opt := range opts {
		opt(manager)
	}

	manager.current.Store(&snapshot{executors: map[healthtrack.Audience]*Executor{}})

	return manager
}

// Epoch returns the current credential epoch.
func (m *Manager) Epoch() uint64 {
	return m.current.Load().epoch
}

// ExecutorFor returns the executor of audience in the current epoch,
// building it on first use.
func (m *Manager) ExecutorFor(ctx context.Context, audience healthtrack.Audience) (*Executor, error) {
	if !audience.Valid() {
		return nil, fmt.Errorf("%w: %q", healthtrack.ErrUnknownAudience, audience)
	}

	if executor, ok := m.current.Load().executors[audience]; ok {
		return executor, nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	current := m.current.Load()
	if executor, ok := current.executors[audience]; ok {
		return executor, nil
	}

	executor := m.build(ctx, audience, current.epoch)

	next := &snapshot{
		epoch:     current.epoch,
		executors: make(map[healthtrack.Audience]*Executor, len(current.executors)+1),
	}

	for key, value := range current.executors {
		next.executors[key] = value
	}

	next.executors[audience] = executor
	m.current.Store(next)

	return executor, nil
}

// OnCredentialChange starts a new epoch: every executor built so far is
// replaced by a fresh one. Calls already running on the old executors finish
// normally.
func (m *Manager) OnCredentialChange(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	current := m.current.Load()
	next := &snapshot{
		epoch:     current.epoch + 1,
		executors: make(map[healthtrack.Audience]*Executor, len(current.executors)),
	}

	for audience := range current.executors {
		next.executors[audience] = m.build(ctx, audience, next.epoch)
	}

	m.current.Store(next)

	m.logger.Info("executors rebuilt after credential change", map[string]interface{}{
		"epoch":     next.epoch,
		"executors": len(next.executors),
	})

	return nil
}

func (m *Manager) build(ctx context.Context, audience healthtrack.Audience, epoch uint64) *Executor {
	chain := healthtrack.NewInterceptorChain()
	chain.AddRequestInterceptor(healthtrack.RequestIDInterceptor())

	if len(m.headers) > 0 {
		chain.AddRequestInterceptor(healthtrack.HeaderInterceptor(m.headers))
	}

	if audience == healthtrack.AudienceAuthenticated {
		chain.AddRequestInterceptor(healthtrack.AuthenticationInterceptor(m.capturedToken(ctx)))
	}

	chain.AddRequestInterceptor(healthtrack.LoggingInterceptor(m.logger))
	chain.AddResponseInterceptor(healthtrack.LoggingResponseInterceptor(m.logger))

	if m.metrics != nil {
		chain.AddRequestInterceptor(healthtrack.MetricsRequestInterceptor(m.metrics))
		chain.AddResponseInterceptor(healthtrack.MetricsResponseInterceptor(m.metrics))
	}

	executor := &Executor{
		id:       uuid.NewString(),
		audience: audience,
		epoch:    epoch,
		timeout:  m.timeout,
		session:  m.session,
		chain:    chain,
	}

	m.logger.Debug("executor built", map[string]interface{}{
		"id":       executor.id,
		"audience": string(audience),
		"epoch":    epoch,
	})

	return executor
}

// capturedToken reads the token once, at build time. The executor keeps
// sending it until the next credential change replaces the executor.
func (m *Manager) capturedToken(ctx context.Context) func(context.Context) (string, error) {
	if m.tokens == nil {
		return func(context.Context) (string, error) {
			return "", auth.ErrNoValidToken
		}
	}

	token, err := m.tokens.GetToken(ctx)

	return func(context.Context) (string, error) {
		return token, err
	}
}
