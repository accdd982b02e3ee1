// Command courier-watch polls a Courier broker without a terminal. Every
// snapshot is exported as Prometheus gauges and, when configured, recorded
// to DuckDB and mirrored into Neo4j.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"courierdash/internal/config"
	"courierdash/internal/courier"
	"courierdash/internal/database/graph"
	"courierdash/internal/database/relational"
	"courierdash/internal/exporter"
	"courierdash/internal/logging"
	"courierdash/internal/poller"
)

const shutdownTimeout = 5 * time.Second

func main() {
	fs := flag.NewFlagSet("courier-watch", flag.ExitOnError)
	config.RegisterFlags(fs)
	config.RegisterExporterFlags(fs)
	once := fs.Bool("once", false, "poll once, record and exit")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, closeLog, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		err = pollOnce(ctx, cfg, log)
	} else {
		var ln net.Listener
		ln, err = net.Listen("tcp", cfg.Exporter.Listen)
		if err == nil {
			err = run(ctx, cfg, log, ln)
		}
	}
	if err != nil {
		log.WithError(err).Error("courier-watch failed")
		closeLog()
		os.Exit(1)
	}
}

// sinks opens the optional stores. The returned cleanup closes whatever was
// opened, in reverse order.
func sinks(cfg config.Config, log logrus.FieldLogger) ([]poller.Sink, func(), error) {
	var out []poller.Sink
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Store.Path != "" {
		db, err := relational.NewFileDB(cfg.Store.Path, relational.WithThreads(cfg.Store.Threads))
		if err != nil {
			return nil, cleanup, fmt.Errorf("open history store: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		repo := relational.NewRepo(db.DB())
		if err := repo.Migrate(context.Background()); err != nil {
			return nil, cleanup, fmt.Errorf("migrate history store: %w", err)
		}
		out = append(out, relational.NewRecorder(repo, cfg.Health, cfg.Store.Retain, log))
		log.WithField("path", cfg.Store.Path).Info("recording snapshots")
	}

	if cfg.Graph.URI != "" {
		g, err := graph.NewNeo4jClient(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, "")
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { _ = g.Close(context.Background()) })
		out = append(out, graph.NewMirror(g, log))
		log.WithField("uri", cfg.Graph.URI).Info("mirroring topology")
	}
	return out, cleanup, nil
}

func newClient(cfg config.Config, log logrus.FieldLogger) (*courier.Client, error) {
	return courier.New(cfg.Broker.URL,
		courier.WithPrefix(cfg.Broker.Prefix),
		courier.WithTimeout(cfg.Broker.Timeout),
		courier.WithLogger(log),
	)
}

func pollOnce(ctx context.Context, cfg config.Config, log logrus.FieldLogger) error {
	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}
	stores, cleanup, err := sinks(cfg, log)
	defer cleanup()
	if err != nil {
		return err
	}
	if err := courier.WaitReady(ctx, client, courier.WithReadyMaxElapsed(cfg.Broker.ReadyTimeout)); err != nil {
		return fmt.Errorf("broker not ready: %w", err)
	}

	w, err := poller.NewWorker(client, stores,
		poller.WithLogger(log),
		poller.WithReporter(logging.FieldReporter(log)),
	)
	if err != nil {
		return err
	}
	return w.PullOnce(ctx)
}

// run serves the exporter on ln and polls until ctx is done.
func run(ctx context.Context, cfg config.Config, log logrus.FieldLogger, ln net.Listener) error {
	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}
	stores, cleanup, err := sinks(cfg, log)
	defer cleanup()
	if err != nil {
		return err
	}

	collector := exporter.New()
	reg, err := exporter.Registry(collector)
	if err != nil {
		return fmt.Errorf("register collector: %w", err)
	}

	w, err := poller.NewWorker(client, append([]poller.Sink{collector}, stores...),
		poller.WithInterval(cfg.Poll.Interval),
		poller.WithLogger(log),
		poller.WithReporter(logging.FieldReporter(log)),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           exporter.NewMux(cfg.Exporter.Path, reg, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", ln.Addr().String()).Info("serving metrics")
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve metrics: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	g.Go(func() error {
		// An unreachable broker is not fatal: the worker keeps polling and
		// courier_up stays 0 until it answers.
		if err := courier.WaitReady(ctx, client, courier.WithReadyMaxElapsed(cfg.Broker.ReadyTimeout)); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("broker not ready, polling anyway")
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		log.WithField("interval", poller.Label(cfg.Poll.Interval)).Info("polling broker")
		<-ctx.Done()
		w.Stop()
		return nil
	})

	return g.Wait()
}
