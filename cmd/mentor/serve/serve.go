// Package servecmder provides the serve command running the mentor API server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/mentor/api"
	"github.com/papercomputeco/mentor/api/mcp"
	"github.com/papercomputeco/mentor/pkg/authz"
	"github.com/papercomputeco/mentor/pkg/chat"
	"github.com/papercomputeco/mentor/pkg/config"
	"github.com/papercomputeco/mentor/pkg/eventstream"
	"github.com/papercomputeco/mentor/pkg/eventstream/kafka"
	"github.com/papercomputeco/mentor/pkg/eventstream/nop"
	"github.com/papercomputeco/mentor/pkg/functions"
	"github.com/papercomputeco/mentor/pkg/logger"
	"github.com/papercomputeco/mentor/pkg/remote"
	"github.com/papercomputeco/mentor/pkg/stage"
	"github.com/papercomputeco/mentor/pkg/storage"
	"github.com/papercomputeco/mentor/pkg/storage/inmemory"
	"github.com/papercomputeco/mentor/pkg/storage/postgres"
	"github.com/papercomputeco/mentor/pkg/storage/sqlite"
	"github.com/papercomputeco/mentor/pkg/worker"
)

type serveCommander struct {
	flags flagValues

	debug   bool
	logFile string

	viper  *viper.Viper
	logger *slog.Logger
}

// flagValues are the registry backed flags. The resolved values are read
// back through viper so env and config file apply as well.
type flagValues struct {
	upstream     string
	apiKey       string
	listen       string
	historyLimit uint
	storage      string
	sqlite       string
	postgres     string
	kafkaBrokers string
	kafkaTopic   string
	roleCacheTTL string
	workers      uint
	queueSize    uint
}

var serveFlags = []string{
	config.FlagUpstream,
	config.FlagAPIKey,
	config.FlagListen,
	config.FlagHistoryLimit,
	config.FlagStorage,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagRoleCacheTTL,
	config.FlagWorkers,
	config.FlagQueueSize,
}

const serveLongDesc string = `Run the mentor API server.

The server relays streamed chat replies from the upstream chat function,
serves stage notifications and progress, role checks, learning path parsing,
document generation and an MCP endpoint at /mcp.

Settings come from flags, MENTOR_* environment variables and config.toml in
the .mentor/ directory, in that order. Changes to config.toml are picked up
while running; settings that cannot change live are reported in the log.

Examples:
  mentor serve
  mentor serve --storage sqlite --sqlite ./mentor.db
  mentor serve --storage postgres --postgres postgres://localhost/mentor --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the mentor API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &f.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIKey, &f.apiKey)
	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &f.listen)
	config.AddUintFlag(cmd, config.Flags, config.FlagHistoryLimit, &f.historyLimit)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorage, &f.storage)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &f.sqlite)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &f.postgres)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &f.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &f.kafkaTopic)
	config.AddStringFlag(cmd, config.Flags, config.FlagRoleCacheTTL, &f.roleCacheTTL)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &f.workers)
	config.AddUintFlag(cmd, config.Flags, config.FlagQueueSize, &f.queueSize)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	l, closeLog, err := newLogger(c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = l

	cfg := config.FromViper(c.viper)
	if !config.IsValidStorageDriver(cfg.Storage.Driver) {
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	ttl, err := cfg.Authz.TTL()
	if err != nil {
		return fmt.Errorf("invalid role cache TTL: %w", err)
	}

	rc, err := remote.New(remote.Config{
		BaseURL: cfg.Upstream.URL,
		APIKey:  cfg.Upstream.APIKey,
	})
	if err != nil {
		return fmt.Errorf("creating upstream client: %w", err)
	}

	chatClient, err := chat.NewClient(chat.Config{Remote: rc, Logger: c.logger})
	if err != nil {
		return fmt.Errorf("creating chat client: %w", err)
	}

	fns, err := functions.NewClient(rc, c.logger)
	if err != nil {
		return fmt.Errorf("creating functions client: %w", err)
	}

	roles := authz.NewCachedChecker(authz.NewRPCChecker(rc, c.logger), ttl)

	driver, err := c.newStorageDriver(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := c.newPublisher(cfg.Events)
	if err != nil {
		return err
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		Driver:     driver,
		Publisher:  publisher,
		NumWorkers: cfg.Workers.Count,
		QueueSize:  cfg.Workers.QueueSize,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Notifier: stage.NewNotifier(driver, c.logger),
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr:   cfg.API.Listen,
		HistoryLimit: int(cfg.API.HistoryLimit),
	}, api.Deps{
		Chat:      chatClient,
		Storage:   driver,
		Roles:     roles,
		Functions: fns,
		Turns:     pool,
		Tracker:   stage.NewTracker(driver, publisher, c.logger),
		MCP:       mcpServer.Handler(),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.watchConfig(cfg, server)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("context done, shutting down")
	}

	return server.Shutdown()
}

// watchConfig applies config.toml edits that can change live and logs the
// ones that need a restart.
func (c *serveCommander) watchConfig(initial *config.Config, server *api.Server) {
	var mu sync.Mutex
	current := initial

	watching := config.Watch(c.viper, c.logger, func(next *config.Config) {
		mu.Lock()
		defer mu.Unlock()

		for _, key := range config.Diff(current, next) {
			switch key {
			case config.KeyHistoryLimit:
				server.SetHistoryLimit(int(next.API.HistoryLimit))
				c.logger.Info("applied config change", "key", key)
			default:
				c.logger.Warn("config change needs a restart", "key", key)
			}
		}
		current = next
	})
	if watching {
		c.logger.Debug("watching config file", "path", c.viper.ConfigFileUsed())
	}
}

func (c *serveCommander) newStorageDriver(ctx context.Context, cfg config.StorageConfig) (storage.Driver, error) {
	switch cfg.Driver {
	case config.StorageSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("sqlite storage needs a database path (--sqlite)")
		}
		driver, err := sqlite.NewDriver(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		c.logger.Info("using SQLite storage", "path", cfg.SQLitePath)
		return driver, nil

	case config.StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres storage needs a connection string (--postgres)")
		}
		driver, err := postgres.NewDriver(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		c.logger.Info("using PostgreSQL storage")
		return driver, nil

	default:
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}

func (c *serveCommander) newPublisher(cfg config.EventsConfig) (eventstream.Publisher, error) {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		c.logger.Info("event publishing disabled")
		return nop.NewPublisher(), nil
	}

	p, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   cfg.KafkaTopic,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	c.logger.Info("publishing events to kafka", "brokers", brokers, "topic", cfg.KafkaTopic)
	return p, nil
}

// newLogger builds the pretty console logger, fanned out to a JSON log file
// when one is given.
func newLogger(debug bool, logFile string) (*slog.Logger, func(), error) {
	console := logger.New(logger.WithDebug(debug), logger.WithPretty(true), logger.WithPrefix("mentor"))
	if logFile == "" {
		return console, func() {}, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(logger.WithDebug(debug), logger.WithJSON(true), logger.WithWriter(f), logger.WithComponent("serve"))
	return logger.Multi(console, file), func() { _ = f.Close() }, nil
}
