package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// NewUserCommand creates the user command group.
func NewUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect the signed-in user",
	}

	cmd.AddCommand(newUserInfoCommand())
	cmd.AddCommand(newUserInitCommand())
	cmd.AddCommand(newUserPeriodsCommand())
	cmd.AddCommand(newUserSymptomsCommand())

	return cmd
}

// withSession opens a session, runs fn, and closes the session.
func withSession(fn func(ctx context.Context, s *session) error) error {
	ctx := context.Background()

	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.client.Close() }()

	return fn(ctx, s)
}

func newUserInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the current user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				user, err := s.client.User().CurrentUserInfo(ctx)
				if err != nil {
					return fmt.Errorf("failed to get user info: %w", err)
				}

				return render(cmd.OutOrStdout(), user, func(table *tablewriter.Table) {
					table.Header("Property", "Value")
					_ = table.Append("Login", user.Info.Login)
					_ = table.Append("Nickname", user.Info.Nickname)
					_ = table.Append("Display ID", user.Info.DisplayID)
					_ = table.Append("User Type", string(user.Info.UserType))
					_ = table.Append("Email", valueOrNA(user.DetailsInfo.Email))
					_ = table.Append("Email Verified", strconv.FormatBool(user.DetailsInfo.VerifyEmail))
					_ = table.Append("Full Profile", strconv.FormatBool(user.DetailsInfo.IsFullProfile))
				})
			})
		},
	}
}

func newUserInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Show the tracking setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				info, err := s.client.User().InitInfo(ctx)
				if err != nil {
					return fmt.Errorf("failed to get init info: %w", err)
				}

				return render(cmd.OutOrStdout(), info, func(table *tablewriter.Table) {
					table.Header("Property", "Value")
					_ = table.Append("Initialized", strconv.FormatBool(info.Init))

					if info.Info == nil {
						return
					}

					_ = table.Append("Mode", info.Info.ShowType.String())
					_ = table.Append("Prediction", string(info.Info.PredictionType))
					_ = table.Append("Cycle Length", strconv.Itoa(info.Info.CycleLength))
					_ = table.Append("Period Length", strconv.Itoa(info.Info.PeriodLength))
					_ = table.Append("Last Start", valueOrNA(info.Info.LastStartDate))
				})
			})
		},
	}
}

func newUserPeriodsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "periods",
		Short: "List recorded periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				periods, err := s.client.User().PeriodInfo(ctx)
				if err != nil {
					return fmt.Errorf("failed to list periods: %w", err)
				}

				return render(cmd.OutOrStdout(), periods, func(table *tablewriter.Table) {
					table.Header("Start", "End", "Version", "Index")

					for _, period := range periods {
						_ = table.Append(period.StartTime, valueOrNA(period.EndTime),
							strconv.Itoa(period.VersionID), strconv.Itoa(period.IndexIncre))
					}
				})
			})
		},
	}
}

func newUserSymptomsCommand() *cobra.Command {
	var (
		page int
		size int
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "symptoms",
		Short: "List daily symptom records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				logs, err := fetchSymptoms(ctx, s, all, page, size)
				if err != nil {
					return err
				}

				return render(cmd.OutOrStdout(), logs, func(table *tablewriter.Table) {
					table.Header("Date", "Bleeding", "Symptoms", "Moods", "Note")

					for _, log := range logs {
						_ = table.Append(log.Date, valueOrNA(log.Bleeding), joinOrNA(log.Symptoms),
							joinOrNA(log.Moods), valueOrNA(log.Note))
					}
				})
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", constants.FirstPage, "page to fetch")
	cmd.Flags().IntVar(&size, "size", constants.DefaultPageSize, "records per page")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}

func fetchSymptoms(ctx context.Context, s *session, all bool, page, size int) ([]healthtrack.SymptomLog, error) {
	if all {
		logs, err := s.client.User().SymptomLogs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list symptom records: %w", err)
		}

		return logs, nil
	}

	result, err := s.client.User().SymptomLogPage(ctx, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to get symptom records page %d: %w", page, err)
	}

	return result.List, nil
}
