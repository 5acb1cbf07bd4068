package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewPingCommand creates the ping command.
func NewPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			s, err := newSession(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.client.Close() }()

			err = s.client.Login().TestPass(ctx)
			if err != nil {
				return fmt.Errorf("API at %s is not reachable: %w", s.client.BaseURL(), err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "API at %s is reachable\n", s.client.BaseURL())

			return nil
		},
	}
}
