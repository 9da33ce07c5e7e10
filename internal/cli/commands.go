package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"example.com/lazywalker/internal/app"
	"example.com/lazywalker/internal/auth"
	"example.com/lazywalker/internal/config"
	"example.com/lazywalker/internal/domain"
	"example.com/lazywalker/internal/outbox"
	"example.com/lazywalker/internal/persistence/postgres"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := app.OpenBackend(cmd.Context(), e.cfg, false)
			if err != nil {
				return err
			}
			defer backend.Close()

			if backend.Pool != nil {
				if err := postgres.Migrate(cmd.Context(), backend.Pool); err != nil {
					return err
				}
			}
			printf(cmd.OutOrStdout(), "migrations applied (%s)\n", e.cfg.StorageDriver)
			return nil
		},
	}
}

func newProgressCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "progress USER_ID",
		Short: "Show a user's streak, goals, badges and recent kudos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withService(cmd.Context(), func(svc *domain.Service) error {
				snap, err := svc.Progress(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				st := snap.State
				printf(out, "user:    %s (today %s)\n", snap.UserID, snap.Today)
				printf(out, "streak:  %d days\n", st.CurrentStreakDays)
				printf(out, "today:   %d/%d min\n", st.TodayMinutes, st.DailyGoalTarget)
				printf(out, "week:    %d/%d days\n", st.WeekActiveDays, st.WeeklyGoalTarget)
				printf(out, "totals:  %d walks, %d min\n", st.TotalWalks, st.TotalMinutes)
				for _, b := range snap.Badges {
					printf(out, "badge:   %s (%s)\n", domain.DescribeBadge(b.Type).Name, b.EarnedAt.Format(time.DateOnly))
				}
				for _, k := range snap.RecentKudos {
					printf(out, "kudos:   %s\n", k.Title)
				}
				return nil
			})
		},
	}
}

func newWalksCmd(e *env) *cobra.Command {
	walks := &cobra.Command{
		Use:   "walks",
		Short: "Log and inspect walks",
	}

	var (
		notes string
		at    string
	)
	logCmd := &cobra.Command{
		Use:   "log USER_ID MINUTES",
		Short: "Record a completed walk and run the progression engine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("minutes must be an integer: %w", err)
			}
			input := domain.SubmitWalkInput{UserID: args[0], DurationMin: minutes, Notes: notes}
			if at != "" {
				completed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				input.CompletedAt = completed
			}
			return e.withService(cmd.Context(), func(svc *domain.Service) error {
				result, err := svc.SubmitWalk(cmd.Context(), input)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printf(out, "walk %s logged on %s, streak %d days\n", result.Walk.ID, result.Walk.CalendarDate, result.CurrentStreakDays)
				for _, grants := range [][]domain.BadgeGrant{result.NewBadges, result.NewMilestones} {
					for _, b := range grants {
						printf(out, "new badge: %s\n", domain.DescribeBadge(b.Type).Name)
					}
				}
				for _, k := range result.NewKudos {
					printf(out, "new kudos: %s\n", k.Title)
				}
				return nil
			})
		},
	}
	logCmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	logCmd.Flags().StringVar(&at, "at", "", "completion time (RFC3339), defaults to now")

	var limit int
	listCmd := &cobra.Command{
		Use:   "list USER_ID",
		Short: "List a user's most recent walks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withService(cmd.Context(), func(svc *domain.Service) error {
				page, _, err := svc.ListWalks(cmd.Context(), args[0], nil, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				printf(tw, "DATE\tMINUTES\tCOMPLETED\tNOTES\n")
				for _, w := range page {
					printf(tw, "%s\t%d\t%s\t%s\n", w.CalendarDate, w.DurationMin, w.CompletedAt.UTC().Format(time.RFC3339), w.Notes)
				}
				return tw.Flush()
			})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum walks to show")

	walks.AddCommand(logCmd, listCmd)
	return walks
}

func newTokenCmd(e *env) *cobra.Command {
	var (
		scopes string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Mint a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.Sign(auth.Config{Secret: e.cfg.JWTSecret, Issuer: e.cfg.JWTIssuer}, args[0], splitScopes(scopes), ttl)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", token)
			return nil
		},
	}
	cmd.Flags().StringVar(&scopes, "scopes", auth.ScopeWalksRead+","+auth.ScopeWalksWrite, "comma separated scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func newDLQCmd(e *env) *cobra.Command {
	dlq := &cobra.Command{
		Use:   "dlq",
		Short: "Operate the outbox dead-letter queue",
	}

	var batch int
	drain := &cobra.Command{
		Use:   "drain",
		Short: "Run one DLQ pass: requeue due entries, quarantine exhausted ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if e.cfg.StorageDriver != config.DriverPostgres {
				return errors.New("the dead-letter queue requires the postgres driver")
			}
			backend, err := app.OpenBackend(cmd.Context(), e.cfg, false)
			if err != nil {
				return err
			}
			defer backend.Close()

			manager := outbox.NewDLQManager(backend.Pool, e.cfg.DLQMaxRetries, e.cfg.DLQBaseDelay, e.logger)
			report, err := manager.RunOnce(cmd.Context(), batch)
			printf(cmd.OutOrStdout(), "requeued %d, rescheduled %d, quarantined %d\n", report.Requeued, report.Rescheduled, report.Quarantined)
			return err
		},
	}
	drain.Flags().IntVar(&batch, "batch", 50, "entries per pass")

	dlq.AddCommand(drain)
	return dlq
}

func splitScopes(value string) []string {
	var out []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
