package main

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"courierdash/internal/config"
	"courierdash/internal/courier"
	"courierdash/internal/logging"
	"courierdash/ui/tui"
)

func main() {
	fs := flag.NewFlagSet("courierdash", flag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Logs never reach the terminal while the alt screen is up: they go to
	// the log file, if any, and to the Console page.
	log, closeLog, err := logging.New(cfg.Log, io.Discard)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer closeLog()

	ring := logging.NewRingHook(cfg.UI.MaxConsoleLogs, log.GetLevel())
	log.AddHook(ring)

	client, err := courier.New(cfg.Broker.URL,
		courier.WithPrefix(cfg.Broker.Prefix),
		courier.WithTimeout(cfg.Broker.Timeout),
		courier.WithLogger(log),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.WithField("broker", client.BaseURL()).Info("console started")

	if err := tui.Start(client, tui.Config{
		Interval:        cfg.Poll.Interval,
		Health:          cfg.Health,
		HistoryCapacity: cfg.UI.HistoryCapacity,
		PullMax:         cfg.UI.PullMax,
		Logger:          log,
		Logs:            ring,
		Reporter:        logging.FieldReporter(log),
	}); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}
