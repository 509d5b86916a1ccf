//go:build !test

/* main.go
 * The "main" method for running the bot. Wires the store, view cache, timer registry, engine, discord bot and the
 * web server, then runs until interrupted.
 * Usage: go run . -test=false [-migrate] [-env=.env]
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"otl-bot/api/api"
	"otl-bot/api/cache"
	"otl-bot/api/external"
	"otl-bot/api/store"
	"otl-bot/api/timers"
	"otl-bot/bot"
	"otl-bot/web"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	//Flags
	testPtr := flag.String("test", "false", "Use main or test bot: takes true or false as argument")
	migratePtr := flag.Bool("migrate", false, "Apply the database schema before starting")
	envPtr := flag.String("env", ".env", "Path of the .env file to load")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	beta, err := convertStrToBool(*testPtr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Invalid \"test\" flag. Should be true or false")
		os.Exit(2)
	}
	if err := run(ctx, os.Stdout, options{beta: beta, migrate: *migratePtr, envFile: *envPtr}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	beta    bool
	migrate bool
	envFile string
}

func run(ctx context.Context, stdout io.Writer, opts options) error {
	envErr := godotenv.Load(opts.envFile)
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(stdout, cfg)
	if envErr != nil {
		logger.Warn("no env file loaded, using the environment", "path", opts.envFile, "error", envErr)
	}
	token, err := cfg.token(opts.beta)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checks := map[string]web.Checker{}

	// --- Mongo view cache ---
	var invalidator cache.Invalidator = cache.Nop{}
	var views cache.ViewCache
	if cfg.MongoURI != "" {
		mc, err := cache.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB, cfg.CacheTTL, logger)
		if err != nil {
			return fmt.Errorf("connecting to mongo: %w", err)
		}
		defer mc.Disconnect(context.Background())
		invalidator, views = mc, mc
		checks["mongo"] = func(ctx context.Context) error { return mc.Client.Ping(ctx, nil) }
		logger.Info("connected to mongo", "db", cfg.MongoDB)
	}

	// --- Postgres ---
	st, err := store.New(ctx, cfg.PostgresDSN, invalidator, logger)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer st.Shutdown()
	if opts.migrate {
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("schema applied", "version", store.SchemaVersion)
	}
	checks["postgres"] = st.Pool.Ping
	logger.Info("connected to postgres")

	// --- Engine ---
	registry := timers.NewRegistry(timers.RealClock{}, logger, timers.WithMetrics(timers.NewMetrics(reg)))
	defer registry.Stop()

	var tracker api.Tracker
	if cfg.TrackerURL != "" {
		t, err := external.NewTracker(cfg.TrackerURL, cfg.TrackerRate)
		if err != nil {
			return fmt.Errorf("creating tracker client: %w", err)
		}
		tracker = t
	}

	session, err := bot.NewSession(token)
	if err != nil {
		return err
	}
	teams := bot.NewTeams(session, st, invalidator, cfg.bot(), logger)
	notifier := bot.NewNotifier(session, teams, cfg.bot(), logger)

	engine, err := api.NewAPI(api.Config{
		Store:    st,
		Timers:   registry,
		Notifier: notifier,
		Teams:    teams,
		Tracker:  tracker,
		Logger:   logger,
		Metrics:  api.NewMetrics(reg),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize API: %w", err)
	}
	if err := engine.Notify(ctx); err != nil {
		return fmt.Errorf("arming pending notifications: %w", err)
	}

	discordBot, err := bot.NewBot(token, engine, cfg.bot(), logger)
	if err != nil {
		return err
	}

	srv := web.NewHTTPServer(web.Config{
		Addr:     cfg.HTTPAddr,
		API:      engine,
		Cache:    views,
		Gatherer: reg,
		Checks:   checks,
		Logger:   logger,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return discordBot.Run(gctx, session)
	})

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("OTL bot stopped")
	return nil
}
