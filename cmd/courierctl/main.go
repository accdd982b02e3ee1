// Command courierctl administers a Courier broker from the shell: topics,
// subscriptions, messages and one-shot health reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"courierdash/internal/config"
	"courierdash/internal/courier"
	"courierdash/internal/logging"
)

// app is filled in by the root command before any subcommand runs.
type app struct {
	cfg      config.Config
	log      *logrus.Logger
	client   *courier.Client
	closeLog func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "courierctl",
		Short:         "Administer a Courier message broker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newTopicsCmd(a),
		newSubsCmd(a),
		newPublishCmd(a),
		newPullCmd(a),
		newAckCmd(a),
		newMetricsCmd(a),
		newReportCmd(a),
		newHistoryCmd(a),
		newWaitCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	log, closeLog, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	client, err := courier.New(cfg.Broker.URL,
		courier.WithPrefix(cfg.Broker.Prefix),
		courier.WithTimeout(cfg.Broker.Timeout),
		courier.WithLogger(log),
	)
	if err != nil {
		_ = closeLog()
		return err
	}

	a.cfg = cfg
	a.log = log
	a.client = client
	a.closeLog = closeLog
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
