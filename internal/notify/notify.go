// Package notify carries credential changes between processes over NATS. A
// process that stores a new token publishes a Change; every subscribed client
// applies it and rebuilds its executors.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired = errors.New("NATS configuration required")
	ErrAlreadyStarted     = errors.New("subscriber already started")
	ErrNilConn            = errors.New("NATS connection is nil")
	ErrUnknownReason      = errors.New("unknown change reason")
)

// Reason says why credentials changed.
type Reason string

const (
	ReasonLogin   Reason = "login"
	ReasonLogout  Reason = "logout"
	ReasonRefresh Reason = "refresh"
)

// Change is the message published on the credential subject.
type Change struct {
	Profile     string     `json:"profile,omitempty"`
	Reason      Reason     `json:"reason"`
	AccessToken string     `json:"accessToken,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	At          time.Time  `json:"at"`
}

// Conn is the part of *nats.Conn the feed needs.
type Conn interface {
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
	Publish(subject string, data []byte) error
	Drain() error
}

// Handler applies a change to a client.
type Handler interface {
	SetToken(ctx context.Context, token string, expiresAt time.Time) error
	ClearToken(ctx context.Context) error
	OnCredentialChange(ctx context.Context) error
}

// Connect dials the server named in config.
func Connect(config *healthtrack.NATSConfig) (*nats.Conn, error) {
	if config == nil || config.URL == "" {
		return nil, ErrNATSConfigRequired
	}

	opts := []nats.Option{
		nats.Timeout(constants.ShortHTTPTimeout),
	}

	if config.Name != "" {
		opts = append(opts, nats.Name(config.Name))
	}

	if config.Token != "" {
		opts = append(opts, nats.Token(config.Token))
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", config.URL, err)
	}

	return conn, nil
}

// SubjectOrDefault returns subject, or the default credential subject when empty.
func SubjectOrDefault(subject string) string {
	if subject == "" {
		return constants.DefaultCredentialSubject
	}

	return subject
}

// Publisher announces credential changes.
type Publisher struct {
	conn    Conn
	subject string
}

// NewPublisher creates a publisher on subject.
func NewPublisher(conn Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: SubjectOrDefault(subject)}
}

// Publish sends change. A zero At is stamped with the current time.
func (p *Publisher) Publish(change Change) error {
	if p.conn == nil {
		return ErrNilConn
	}

	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal credential change: %w", err)
	}

	err = p.conn.Publish(p.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish credential change: %w", err)
	}

	return nil
}

// Subscriber applies changes published on a subject to a Handler.
type Subscriber struct {
	conn     Conn
	subject  string
	profile  string
	handler  Handler
	logger   healthtrack.Logger
	observer func(Change, error)

	mutex   sync.Mutex
	sub     *nats.Subscription
	ctx     context.Context //nolint:containedctx // message callbacks carry no context
	cancel  context.CancelFunc
	started bool
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithProfile ignores changes addressed to other profiles.
func WithProfile(profile string) SubscriberOption {
	return func(s *Subscriber) {
		s.profile = profile
	}
}

// WithLogger sets the logger.
func WithLogger(logger healthtrack.Logger) SubscriberOption {
	return func(s *Subscriber) {
		s.logger = healthtrack.LoggerOrNoop(logger)
	}
}

// WithObserver is called after every received change with the outcome of
// applying it.
func WithObserver(observer func(Change, error)) SubscriberOption {
	return func(s *Subscriber) {
		s.observer = observer
	}
}

// NewSubscriber creates a subscriber; Start begins delivery.
func NewSubscriber(conn Conn, subject string, handler Handler, opts ...SubscriberOption) *Subscriber {
	subscriber := &Subscriber{
		conn:    conn,
		subject: SubjectOrDefault(subject),
		handler: handler,
		logger:  healthtrack.NoopLogger(),
	}

	for _, opt := range opts {
		opt(subscriber)
	}

	return subscriber
}

// Start subscribes. Changes are applied with a context derived from ctx until
// Close is called.
func (s *Subscriber) Start(ctx context.Context) error {
	if s.conn == nil {
		return ErrNilConn
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	sub, err := s.conn.Subscribe(s.subject, s.receive)
	if err != nil {
		s.cancel()

		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}

	s.sub = sub
	s.started = true

	s.logger.Info("Subscribed to credential changes", map[string]interface{}{
		"subject": s.subject,
	})

	return nil
}

// Close stops delivery. It is safe to call more than once.
func (s *Subscriber) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.started {
		return nil
	}

	s.started = false
	s.cancel()

	if s.sub == nil {
		return nil
	}

	err := s.sub.Unsubscribe()
	s.sub = nil

	if err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to unsubscribe from %s: %w", s.subject, err)
	}

	return nil
}

func (s *Subscriber) receive(msg *nats.Msg) {
	var change Change

	err := json.Unmarshal(msg.Data, &change)
	if err != nil {
		s.logger.Warn("Discarding malformed credential change", map[string]interface{}{
			"subject": msg.Subject,
			"error":   err.Error(),
		})

		return
	}

	if s.profile != "" && change.Profile != "" && change.Profile != s.profile {
		return
	}

	s.mutex.Lock()
	ctx := s.ctx
	s.mutex.Unlock()

	err = s.apply(ctx, change)
	if err != nil {
		s.logger.Error("Failed to apply credential change", map[string]interface{}{
			"reason": string(change.Reason),
			"error":  err.Error(),
		})
	} else {
		s.logger.Info("Applied credential change", map[string]interface{}{
			"reason":  string(change.Reason),
			"profile": change.Profile,
		})
	}

	if s.observer != nil {
		s.observer(change, err)
	}
}

func (s *Subscriber) apply(ctx context.Context, change Change) error {
	switch {
	case change.AccessToken != "":
		var expiresAt time.Time
		if change.ExpiresAt != nil {
			expiresAt = *change.ExpiresAt
		}

		return s.handler.SetToken(ctx, change.AccessToken, expiresAt)
	case change.Reason == ReasonLogout:
		return s.handler.ClearToken(ctx)
	case change.Reason == ReasonLogin, change.Reason == ReasonRefresh:
		return s.handler.OnCredentialChange(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownReason, change.Reason)
	}
}
