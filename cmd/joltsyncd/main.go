// Joltsyncd is the joltsync daemon: it maintains one Connection per
// configured data group, periodically flushes their queues against a JMAP
// server, and exposes an introspection HTTP server for status and metrics.
//
// Configuration is loaded from environment variables and/or a YAML file.
// See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	joltsyncd
//
//	# Point at a config file
//	JOLTSYNC_CONFIG_FILE=/etc/joltsync/config.yaml joltsyncd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/joltmail/joltsync/internal/aggregate"
	"github.com/joltmail/joltsync/internal/auth"
	"github.com/joltmail/joltsync/internal/config"
	"github.com/joltmail/joltsync/internal/connection"
	"github.com/joltmail/joltsync/internal/introspect"
	"github.com/joltmail/joltsync/internal/logging"
	"github.com/joltmail/joltsync/internal/store"
	"github.com/joltmail/joltsync/internal/transport"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	flag.StringVar(&configPath, "config", "", "path to YAML config file (defaults to ~/.config/joltsync/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  joltsyncd           Start the joltsync daemon\n")
			fmt.Fprintf(os.Stderr, "  joltsyncd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("daemon error: %v", err)
	}

	log.Println("joltsyncd shutdown complete")
}

func printVersion() {
	fmt.Printf("joltsyncd\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts joltsyncd and blocks until ctx is cancelled.
//
// It initializes logging, connects to NATS for the aggregate status bus,
// builds one Connection per configured data group wired to a shared OAuth2
// Auth and HTTP Transport, starts a periodic flush loop, and serves the
// introspection HTTP server until shutdown.
func run(ctx context.Context) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	scopedLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = scopedLogger.Sync()
	}()

	scopedLogger.Info(ctx, "starting joltsyncd",
		zap.Int("connections", len(cfg.Connections)),
		zap.String("service", cfg.Observability.ServiceName))

	logger := scopedLogger.Underlying()

	deps, err := initDependencies(cfg, scopedLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	source := aggregate.New(deps.connections, deps.statusBus, logger)

	introspectServer, err := introspect.NewServer(source, logger, introspect.Config{
		Host: "localhost",
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to build introspection server: %w", err)
	}

	flushInterval := 30 * time.Second
	go runFlushLoop(ctx, source, logger, flushInterval)

	scopedLogger.Info(ctx, "introspection server listening", zap.String("addr", introspectServer.Addr()))
	err = introspectServer.Start(ctx, cfg.Server.ShutdownTimeout)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// runFlushLoop calls source.Flush on a fixed interval until ctx is
// cancelled, logging (not failing) per-tick errors so one bad flush never
// stops the daemon.
func runFlushLoop(ctx context.Context, source *aggregate.Source, logger *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !source.IsDirty() {
				continue
			}
			if err := source.Flush(ctx); err != nil {
				logger.Warn("flush failed", zap.Error(err))
			}
		}
	}
}

type dependencies struct {
	natsConn    *nats.Conn
	statusBus   *aggregate.StatusBus
	connections map[string]*connection.Connection
	logger      *zap.Logger
}

func (d *dependencies) Close() {
	if d.natsConn != nil {
		d.natsConn.Close()
	}
}

// initLogger builds the daemon's logger through internal/logging rather
// than bare zap, so sampling, secret redaction, and the OTEL bridge apply
// to every log line the daemon emits. initDependencies derives a
// SyncScope-tagged child per connection off the returned Logger.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	logCfg.Fields["service"] = cfg.Observability.ServiceName
	logCfg.Output.OTEL = cfg.Observability.EnableTelemetry
	if !cfg.Observability.EnableTelemetry {
		logCfg.Format = "console"
		logCfg.Level = zapcore.DebugLevel
	}
	return logging.NewLogger(logCfg, nil)
}

// initDependencies wires a shared Auth and Transport, then builds one
// Connection per configured data group, connecting to NATS for the
// aggregate status bus only when cfg.Aggregate.Enabled.
func initDependencies(cfg *config.Config, scopedLogger *logging.Logger) (*dependencies, error) {
	logger := scopedLogger.Underlying()
	httpClient := &http.Client{Timeout: 30 * time.Second}

	oauthConfig := &clientcredentials.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret.Value(),
		TokenURL:     cfg.Auth.TokenURL,
		Scopes:       cfg.Auth.Scopes,
	}
	tokenSource := oauthConfig.TokenSource(context.Background())

	authImpl := auth.NewOAuth2Auth(tokenSource, fetchSession(cfg.Session.DiscoveryURL, httpClient), logger)

	transportClient := transport.NewClient(httpClient, 30*time.Second, 5*time.Minute)

	var statusBus *aggregate.StatusBus
	var nc *nats.Conn
	if cfg.Aggregate.Enabled {
		var err error
		nc, err = nats.Connect(cfg.Aggregate.NATSURL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Aggregate.NATSURL, err)
		}
		logger.Info("connected to NATS", zap.String("url", cfg.Aggregate.NATSURL))
		statusBus = aggregate.NewStatusBus(nc)
	}

	connections := make(map[string]*connection.Connection, len(cfg.Connections))
	for _, connCfg := range cfg.Connections {
		memStore := store.NewMemoryStore(logger)
		adaptor := store.NewAdaptor(memStore)

		connLogger := scopedLogger.WithSyncScope(&logging.SyncScope{
			AccountID:  connCfg.AccountID,
			DataGroup:  connCfg.DataGroup,
			Connection: connCfg.AccountID,
		})

		connections[connCfg.DataGroup] = connection.New(connection.Config{
			DataGroup: connCfg.DataGroup,
			Transport: transportClient,
			Auth:      authImpl,
			Store:     adaptor,
			Logger:    connLogger.Underlying(),
		})

		connLogger.Info(context.Background(), "connection configured")
	}

	return &dependencies{
		natsConn:    nc,
		statusBus:   statusBus,
		connections: connections,
		logger:      logger,
	}, nil
}
