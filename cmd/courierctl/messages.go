package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"courierdash/internal/courier"
)

func newPublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish TOPIC [DATA...]",
		Short: "Publish messages; without DATA each stdin line is one message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := args[1:]
			if len(data) == 0 {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					if line := strings.TrimSpace(sc.Text()); line != "" {
						data = append(data, line)
					}
				}
				if err := sc.Err(); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}
			if len(data) == 0 {
				return errors.New("nothing to publish")
			}

			ids, err := a.client.Publish(cmd.Context(), args[0], data...)
			if courier.IsNotFound(err) {
				return fmt.Errorf("topic %q not found", args[0])
			}
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newPullCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull SUBSCRIPTION",
		Short: "Pull messages from a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxMessages, _ := cmd.Flags().GetUint("max")
			ack, _ := cmd.Flags().GetBool("ack")
			pretty, _ := cmd.Flags().GetBool("pretty")
			if maxMessages == 0 {
				maxMessages = uint(a.cfg.UI.PullMax)
			}

			msgs, err := a.client.Pull(cmd.Context(), args[0], maxMessages)
			if courier.IsNotFound(err) {
				return fmt.Errorf("subscription %q not found", args[0])
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, m := range msgs {
				fmt.Fprintf(w, "%s  tries=%d  %s\n", m.ID, m.Tries, m.Time.Format("2006-01-02 15:04:05"))
				fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(formatData(m.Data, pretty), "\n", "\n  "))
			}
			if len(msgs) == 0 {
				fmt.Fprintln(w, "no messages")
				return nil
			}

			if ack {
				ids := make([]string, len(msgs))
				for i, m := range msgs {
					ids[i] = m.ID
				}
				acked, err := a.client.Ack(cmd.Context(), args[0], ids...)
				if err != nil {
					return fmt.Errorf("pulled %d but ack failed: %w", len(msgs), err)
				}
				fmt.Fprintf(w, "acked %d message(s)\n", len(acked))
			}
			return nil
		},
	}
	cmd.Flags().Uint("max", 0, "max messages to pull (default: ui.pull_max)")
	cmd.Flags().Bool("ack", false, "ack the pulled messages")
	cmd.Flags().Bool("pretty", false, "pretty-print JSON payloads")
	return cmd
}

func newAckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ack SUBSCRIPTION ID...",
		Short: "Acknowledge pulled messages",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			acked, err := a.client.Ack(cmd.Context(), args[0], args[1:]...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "acked %d of %d message(s)\n", len(acked), len(args)-1)
			return nil
		},
	}
}

func newMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the raw broker metrics document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := a.client.Metrics(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), gjson.GetBytes(raw, "@pretty").Raw)
			return nil
		},
	}
}

func formatData(data string, pretty bool) string {
	if pretty && gjson.Valid(data) {
		return strings.TrimRight(gjson.Get(data, "@pretty").Raw, "\n")
	}
	return data
}
