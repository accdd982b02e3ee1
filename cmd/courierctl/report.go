package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"courierdash/internal/courier"
	"courierdash/internal/database/relational"
	"courierdash/internal/logging"
	"courierdash/internal/metrics"
	"courierdash/internal/output"
	"courierdash/ui/console"
)

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print stats, tables and health checks",
		Long: "Print stats, tables and health checks. With --samples above 1 the\n" +
			"broker is polled every --every and each report shows the intervals\n" +
			"since the previous sample.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			samples, _ := cmd.Flags().GetInt("samples")
			every, _ := cmd.Flags().GetDuration("every")
			ctx := cmd.Context()

			gens := metrics.NewGenerations()
			for i := range max(samples, 1) {
				if i > 0 {
					select {
					case <-ctx.Done():
						return nil
					case <-time.After(every):
					}
				}

				var payload *output.Payload
				var err error
				payload, gens, err = output.RunPipeline(ctx, a.client, gens, a.cfg.Health,
					metrics.WithReporter(logging.FieldReporter(a.log)))
				if err != nil {
					return err
				}
				console.Print(cmd.OutOrStdout(), output.BuildDashboard(payload.Snapshot, payload.Results, payload.At))
			}
			return nil
		},
	}
	cmd.Flags().Int("samples", 1, "number of reports to print")
	cmd.Flags().Duration("every", 5*time.Second, "time between samples")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show snapshots recorded by courier-watch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Store.Path == "" {
				return errors.New("no history store configured (set --duckdb or store.path)")
			}
			db, err := relational.NewFileDB(a.cfg.Store.Path,
				relational.WithReadOnly(),
				relational.WithThreads(a.cfg.Store.Threads),
			)
			if err != nil {
				return err
			}
			defer db.Close()
			repo := relational.NewRepo(db.DB())

			limit, _ := cmd.Flags().GetInt("limit")
			topic, _ := cmd.Flags().GetString("topic")
			sub, _ := cmd.Flags().GetString("subscription")
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			ts := func(t time.Time) string { return t.Local().Format("2006-01-02 15:04:05") }

			switch {
			case topic != "" && sub != "":
				return errors.New("--topic and --subscription are exclusive")

			case topic != "":
				samples, err := repo.TopicHistory(ctx, topic, limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(samples))
				for _, s := range samples {
					rows = append(rows, []string{ts(s.CollectedAt), output.Int(s.Messages), output.Int(s.MessagesInterval),
						output.Int(s.ExpiredInterval), output.Percentage(s.PercentageProcessed, 1)})
				}
				render(w, []string{"At", "Messages", "Published", "Expired", "Processed"}, rows)

			case sub != "":
				samples, err := repo.SubscriptionHistory(ctx, sub, limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(samples))
				for _, s := range samples {
					rows = append(rows, []string{ts(s.CollectedAt), s.Topic, output.Int(s.Pending), output.Int(s.PulledInterval),
						output.Int(s.AckedInterval), output.Percentage(s.PercentageProcessed, 1), strconv.FormatBool(s.Orphaned)})
				}
				render(w, []string{"At", "Topic", "Pending", "Pulled", "Acked", "Processed", "Orphaned"}, rows)

			default:
				snaps, err := repo.QuerySnapshots(ctx, limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(snaps))
				for _, s := range snaps {
					rows = append(rows, []string{ts(s.CollectedAt), strconv.Itoa(s.NumTopics), strconv.Itoa(s.NumSubscriptions),
						output.Int(s.Messages), output.Int(s.Pending), output.Percentage(s.PercentageProcessed, 1),
						output.Size(s.MemoryRSSBytes), s.Severity})
				}
				render(w, []string{"At", "Topics", "Subs", "Messages", "Pending", "Processed", "Memory", "Health"}, rows)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 10, "rows to show")
	cmd.Flags().String("topic", "", "samples of one topic")
	cmd.Flags().String("subscription", "", "samples of one subscription")
	return cmd
}

func newWaitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "wait",
		Short: "Wait until the broker answers its heartbeat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := courier.WaitReady(cmd.Context(), a.client, courier.WithReadyMaxElapsed(a.cfg.Broker.ReadyTimeout)); err != nil {
				return fmt.Errorf("broker not ready: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "broker %s is up\n", a.client.BaseURL())
			return nil
		},
	}
}
