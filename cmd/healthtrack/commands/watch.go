package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
	"github.com/fivetwenty-io/healthtrack/internal/notify"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow credential changes",
		Long: `Subscribe to the profile's NATS subject and apply every credential change
to the local configuration until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := newSession(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.client.Close() }()

			if s.profile.NATSURL == "" {
				return fmt.Errorf("profile '%s': %w", s.profileName, constants.ErrNATSURLRequired)
			}

			conn, err := notify.Connect(natsConfig(s.profile))
			if err != nil {
				return err
			}
			defer func() { _ = conn.Drain() }()

			out := cmd.OutOrStdout()
			subscriber := notify.NewSubscriber(conn, s.profile.NATSSubject, s.client,
				notify.WithProfile(s.profileName),
				notify.WithLogger(s.logger),
				notify.WithObserver(func(change notify.Change, err error) {
					if err != nil {
						_, _ = fmt.Fprintf(out, "%s  %s  failed: %v\n", change.At.Format("15:04:05"), change.Reason, err)

						return
					}

					_, _ = fmt.Fprintf(out, "%s  %s  applied (epoch %d)\n", change.At.Format("15:04:05"), change.Reason, s.client.Epoch())
				}),
			)

			err = subscriber.Start(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = subscriber.Close() }()

			_, _ = fmt.Fprintf(out, "Watching %s for profile '%s', press Ctrl+C to stop\n",
				notify.SubjectOrDefault(s.profile.NATSSubject), s.profileName)

			<-ctx.Done()

			return nil
		},
	}
}
