package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"courierdash/internal/courier"
)

func newTopicsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "topics",
		Aliases: []string{"topic"},
		Short:   "List, create and delete topics",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			topics, err := a.client.ListTopics(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(topics))
			for _, t := range topics {
				rows = append(rows, []string{t.Name, seconds(t.MessageTTL), seconds(t.TTL), t.Created.Format("2006-01-02 15:04:05")})
			}
			render(cmd.OutOrStdout(), []string{"Name", "Message TTL", "TTL", "Created"}, rows)
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := courier.TopicConfig{
				MessageTTL: optionalInt(cmd.Flags(), "message-ttl"),
				TTL:        optionalInt(cmd.Flags(), "ttl"),
			}
			t, err := a.client.CreateTopic(cmd.Context(), args[0], cfg)
			if courier.IsConflict(err) {
				return fmt.Errorf("topic %q already exists", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created topic %s (message ttl %s, ttl %s)\n", t.Name, seconds(t.MessageTTL), seconds(t.TTL))
			return nil
		},
	}
	create.Flags().Int64("message-ttl", 0, "seconds a message lives, broker default when unset")
	create.Flags().Int64("ttl", 0, "seconds the idle topic lives, 0 for never")

	del := &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a topic; its subscriptions become orphaned",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.client.DeleteTopic(cmd.Context(), args[0])
			if courier.IsNotFound(err) {
				return fmt.Errorf("topic %q not found", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted topic %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, create, del)
	return cmd
}

func newSubsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subs",
		Aliases: []string{"subscriptions", "sub"},
		Short:   "List, create and delete subscriptions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subs, err := a.client.ListSubscriptions(cmd.Context())
			if err != nil {
				return err
			}
			topic, _ := cmd.Flags().GetString("topic")
			rows := make([][]string, 0, len(subs))
			for _, s := range subs {
				if topic != "" && s.Topic != topic {
					continue
				}
				rows = append(rows, []string{s.Name, s.Topic, seconds(s.AckDeadline), seconds(s.TTL), s.Created.Format("2006-01-02 15:04:05")})
			}
			render(cmd.OutOrStdout(), []string{"Name", "Topic", "Ack Deadline", "TTL", "Created"}, rows)
			return nil
		},
	}
	list.Flags().String("topic", "", "only subscriptions of this topic")

	create := &cobra.Command{
		Use:   "create NAME --topic TOPIC",
		Short: "Create a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			historical, _ := cmd.Flags().GetBool("historical")
			cfg := courier.SubscriptionConfig{
				Topic:       topic,
				AckDeadline: optionalInt(cmd.Flags(), "ack-deadline"),
				TTL:         optionalInt(cmd.Flags(), "ttl"),
				Historical:  courier.Bool(historical),
			}
			s, err := a.client.CreateSubscription(cmd.Context(), args[0], cfg)
			switch {
			case courier.IsConflict(err):
				return fmt.Errorf("subscription %q already exists", args[0])
			case courier.IsNotFound(err):
				return fmt.Errorf("topic %q not found", topic)
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created subscription %s on %s\n", s.Name, s.Topic)
			return nil
		},
	}
	create.Flags().String("topic", "", "topic to subscribe to")
	create.Flags().Int64("ack-deadline", 0, "seconds before an unacked message is redelivered")
	create.Flags().Int64("ttl", 0, "seconds the idle subscription lives, 0 for never")
	create.Flags().Bool("historical", false, "start from the oldest retained message")
	_ = create.MarkFlagRequired("topic")

	del := &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a subscription",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.client.DeleteSubscription(cmd.Context(), args[0])
			if courier.IsNotFound(err) {
				return fmt.Errorf("subscription %q not found", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted subscription %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, create, del)
	return cmd
}

// optionalInt is nil unless the flag was given, so the broker default applies.
func optionalInt(fs *pflag.FlagSet, name string) *int64 {
	if !fs.Changed(name) {
		return nil
	}
	v, _ := fs.GetInt64(name)
	return courier.Int64(v)
}

func seconds(v int64) string {
	if v == 0 {
		return "never"
	}
	return strconv.FormatInt(v, 10) + "s"
}

func render(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}
