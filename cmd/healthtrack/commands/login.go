package commands

import (
	"context"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
	"github.com/fivetwenty-io/healthtrack/internal/notify"
)

// NewLoginCommand creates the login command. It stores an access token
// issued elsewhere; it does not exchange credentials for one.
func NewLoginCommand() *cobra.Command {
	var (
		token     string
		expiresIn time.Duration
		verify    bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token",
		Long: `Store an access token for the active profile and tell other clients
subscribed to the profile's NATS subject about it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			name := activeProfileName(config)
			profile := ensureProfile(config, name)

			if baseURL := viper.GetString("base-url"); baseURL != "" {
				profile.BaseURL = baseURL
			}

			if profile.BaseURL == "" {
				return fmt.Errorf("profile '%s': %w", name, constants.ErrBaseURLRequired)
			}

			if token == "" {
				token = viper.GetString("token")
			}

			if token == "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), "Access token: ")

				raw, err := term.ReadPassword(int(syscall.Stdin))
				if err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}

				_, _ = fmt.Fprintln(cmd.OutOrStdout())
				token = strings.TrimSpace(string(raw))
			}

			if token == "" {
				return constants.ErrEmptyToken
			}

			err := saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			ctx := context.Background()

			s, err := newSession(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.client.Close() }()

			var expiresAt time.Time
			if expiresIn > 0 {
				expiresAt = time.Now().Add(expiresIn)
			}

			err = s.client.SetToken(ctx, token, expiresAt)
			if err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}

			if verify {
				user, err := s.client.User().CurrentUserInfo(ctx)
				if err != nil {
					return fmt.Errorf("token stored but verification failed: %w", err)
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.Info.Nickname)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Token stored for profile '%s'\n", name)
			}

			change := notify.Change{Reason: notify.ReasonLogin, AccessToken: token}
			if !expiresAt.IsZero() {
				change.ExpiresAt = &expiresAt
			}

			err = s.announce(change)
			if err != nil {
				s.logger.Warn("Failed to announce credential change", map[string]interface{}{"error": err.Error()})
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&token, "access-token", "", "access token to store (prompted when omitted)")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "token lifetime, e.g. 24h")
	cmd.Flags().BoolVar(&verify, "verify", true, "fetch the current user to check the token")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			s, err := newSession(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.client.Close() }()

			err = s.client.ClearToken(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear token: %w", err)
			}

			err = s.announce(notify.Change{Reason: notify.ReasonLogout})
			if err != nil {
				s.logger.Warn("Failed to announce credential change", map[string]interface{}{"error": err.Error()})
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged out of profile '%s'\n", s.profileName)

			return nil
		},
	}
}
