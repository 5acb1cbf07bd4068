package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
	"github.com/fivetwenty-io/healthtrack/internal/notify"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
	"github.com/fivetwenty-io/healthtrack/pkg/htclient"
)

// session bundles what a command needs to talk to the API.
type session struct {
	client      *htclient.Client
	config      *Config
	profileName string
	profile     *ProfileConfig
	logger      healthtrack.Logger
}

func newLogger() healthtrack.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	return healthtrack.NewSlogLogger(slog.New(handler))
}

// resolveProfile applies --base-url and --token on top of the active profile.
func resolveProfile(config *Config) (string, *ProfileConfig, error) {
	name := activeProfileName(config)

	profile := &ProfileConfig{}
	if stored, ok := config.Profiles[name]; ok {
		*profile = *stored
	}

	if baseURL := viper.GetString("base-url"); baseURL != "" {
		profile.BaseURL = baseURL
	}

	if token := viper.GetString("token"); token != "" {
		profile.Token = token
		profile.ExpiresAt = ""
	}

	if profile.BaseURL == "" {
		return "", nil, fmt.Errorf("profile '%s': %w", name, constants.ErrBaseURLRequired)
	}

	return name, profile, nil
}

func clientConfig(profile *ProfileConfig, logger healthtrack.Logger) *healthtrack.Config {
	return &healthtrack.Config{
		BaseURL:        profile.BaseURL,
		AccessToken:    profile.Token,
		TokenExpiresAt: profile.TokenExpiry(),
		UserAgent:      profile.UserAgent,
		RateLimit:      profile.RateLimit,
		PageSize:       profile.PageSize,
		Debug:          viper.GetBool("verbose"),
		Logger:         logger,
	}
}

func natsConfig(profile *ProfileConfig) *healthtrack.NATSConfig {
	return &healthtrack.NATSConfig{
		URL:     profile.NATSURL,
		Subject: profile.NATSSubject,
		Name:    "healthtrack-cli",
		Token:   profile.NATSToken,
	}
}

func newSession(ctx context.Context) (*session, error) {
	config := loadConfig()

	name, profile, err := resolveProfile(config)
	if err != nil {
		return nil, err
	}

	logger := newLogger()

	opts := []htclient.Option{}
	if _, stored := config.Profiles[name]; stored {
		opts = append(opts, htclient.WithConfigPersister(NewConfigPersister(), name))
	}

	client, err := htclient.New(ctx, clientConfig(profile, logger), opts...)
	if err != nil {
		return nil, err
	}

	return &session{
		client:      client,
		config:      config,
		profileName: name,
		profile:     profile,
		logger:      logger,
	}, nil
}

// announce publishes change on the profile's credential subject when a NATS
// server is configured.
func (s *session) announce(change notify.Change) error {
	if s.profile.NATSURL == "" {
		return nil
	}

	conn, err := notify.Connect(natsConfig(s.profile))
	if err != nil {
		return err
	}

	defer func() { _ = conn.Drain() }()

	change.Profile = s.profileName

	return notify.NewPublisher(conn, s.profile.NATSSubject).Publish(change)
}
