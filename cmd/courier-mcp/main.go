// Command courier-mcp serves the broker tools over MCP on stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"courierdash/internal/config"
	"courierdash/internal/courier"
	"courierdash/internal/database/graph"
	"courierdash/internal/database/relational"
	"courierdash/internal/logging"
	"courierdash/internal/mcpserver"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("courier-mcp", flag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// stdout carries the protocol, so logs go to stderr or the log file.
	log, closeLog, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, cleanup, err := newServer(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create MCP server")
	}
	defer cleanup()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("MCP server stopped")
	}
}

// newServer wires the broker client and whichever optional stores are
// configured. A store that cannot be opened only disables its tools.
func newServer(cfg config.Config, log logrus.FieldLogger) (*mcpserver.Server, func(), error) {
	client, err := courier.New(cfg.Broker.URL,
		courier.WithPrefix(cfg.Broker.Prefix),
		courier.WithTimeout(cfg.Broker.Timeout),
		courier.WithLogger(log),
	)
	if err != nil {
		return nil, func() {}, err
	}

	opts := []mcpserver.Option{mcpserver.WithLogger(log)}
	var closers []func()

	if cfg.Store.Path != "" {
		db, err := relational.NewFileDB(cfg.Store.Path,
			relational.WithReadOnly(),
			relational.WithThreads(cfg.Store.Threads),
		)
		if err != nil {
			log.WithError(err).Warn("history store unavailable, get_history disabled")
		} else {
			closers = append(closers, func() { _ = db.Close() })
			opts = append(opts,
				mcpserver.WithHistory(relational.NewRepo(db.DB())),
				mcpserver.WithTopology(graph.NewRelationalGraphWrapper(db)),
			)
		}
	}

	if cfg.Graph.URI != "" {
		g, err := graph.NewNeo4jClient(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, "")
		if err != nil {
			log.WithError(err).Warn("neo4j unavailable, query_graph disabled")
		} else {
			// Server.Close releases the graph client.
			opts = append(opts, mcpserver.WithGraph(g))
		}
	}

	server := mcpserver.NewServer(mcpserver.Config{
		ServerName:    "courierdash",
		ServerVersion: version,
		Health:        cfg.Health,
	}, client, opts...)

	cleanup := func() {
		_ = server.Close(context.Background())
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return server, cleanup, nil
}
