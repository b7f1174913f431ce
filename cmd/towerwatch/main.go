// Command towerwatch watches a VATSIM facility's staffing and pushes
// notifications when coverage changes.
//
// Usage:
//
//	towerwatch watch
//	towerwatch serve --port 8080
//	towerwatch notify-test --token APP_TOKEN --user USER_KEY
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/leftos/oak-tower-watcher-sub000/config"
	"github.com/leftos/oak-tower-watcher-sub000/dispatch"
	"github.com/leftos/oak-tower-watcher-sub000/events"
	"github.com/leftos/oak-tower-watcher-sub000/lockfile"
	"github.com/leftos/oak-tower-watcher-sub000/notify"
	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
	"github.com/leftos/oak-tower-watcher-sub000/poll"
	"github.com/leftos/oak-tower-watcher-sub000/roster"
	"github.com/leftos/oak-tower-watcher-sub000/server"
	"github.com/leftos/oak-tower-watcher-sub000/store"
	"github.com/leftos/oak-tower-watcher-sub000/vatsim"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "towerwatch",
		Short: "VATSIM facility staffing watcher",
	}
	root.AddCommand(watchCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(notifyTestCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func watchCmd() *cobra.Command {
	var mock bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the poll loop without the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(mock, func(ctx context.Context, rt *runtime) error {
				if err := rt.poller.Start(ctx); err != nil {
					return err
				}
				<-ctx.Done()
				rt.poller.Stop()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&mock, "mock", false, "Log notifications instead of sending them")
	return cmd
}

func serveCmd() *cobra.Command {
	var mock bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the poll loop with the status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(mock, func(ctx context.Context, rt *runtime) error {
				if err := rt.poller.Start(ctx); err != nil {
					return err
				}
				defer rt.poller.Stop()

				srv := server.New(rt.cache, rt.poller, rt.cfg.DisplayName, logger)
				httpSrv := &http.Server{
					Addr:              ":" + rt.cfg.Port,
					Handler:           srv.Router(),
					ReadHeaderTimeout: 10 * time.Second,
				}

				errCh := make(chan error, 1)
				go func() {
					logger.Info("http server listening", "port", rt.cfg.Port)
					errCh <- httpSrv.ListenAndServe()
				}()

				select {
				case <-ctx.Done():
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					return httpSrv.Shutdown(shutdownCtx)
				case err := <-errCh:
					return err
				}
			})
		},
	}
	cmd.Flags().BoolVar(&mock, "mock", false, "Log notifications instead of sending them")
	return cmd
}

func notifyTestCmd() *cobra.Command {
	var token, userKey string
	cmd := &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if token == "" {
				token = cfg.PushoverToken
			}
			if userKey == "" {
				userKey = cfg.PushoverUserKey
			}
			if token == "" || userKey == "" {
				return fmt.Errorf("pushover credentials are required (flags or environment)")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			provider := notify.NewPushover("", logger)
			if err := provider.ValidateUser(ctx, token, userKey); err != nil {
				return fmt.Errorf("validate user: %w", err)
			}
			d := dispatch.New(provider, nil, &notify.Formatter{DisplayName: cfg.DisplayName}, cfg.Tiers, "", "", logger)
			if err := d.SendTest(ctx, token, userKey); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			logger.Info("test notification sent", "user_key", userKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Pushover application token")
	cmd.Flags().StringVar(&userKey, "user", "", "Pushover user key")
	return cmd
}

// runtime bundles everything a long-running command needs.
type runtime struct {
	cfg    *config.Config
	cache  *poll.Cache
	poller *poll.Poller
}

// run handles shared setup: config, signals, lock file, storage, and the
// poller, then hands off to fn until shutdown.
func run(mock bool, fn func(ctx context.Context, rt *runtime) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.LockFile != "" {
		lock, err := lockfile.Acquire(cfg.LockFile)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	names := loadRoster(ctx, cfg)

	tiers := cfg.Tiers
	if st != nil {
		if subs, err := st.ListActive(ctx); err != nil {
			logger.Warn("failed to list subscribers for pattern aggregation", "error", err)
		} else {
			tiers = store.AggregatePatterns(subs, cfg.Tiers)
		}
	}
	classifier, err := watcher.NewClassifier(tiers)
	if err != nil {
		return fmt.Errorf("compile facility patterns: %w", err)
	}

	var provider notify.Provider = notify.NewPushover("", logger)
	if mock {
		logger.Info("mock mode, notifications will be logged only")
		provider = notify.NewMockProvider(logger)
	}

	formatter := &notify.Formatter{DisplayName: cfg.DisplayName, Names: names}
	dispatcher := dispatch.New(provider, st, formatter, cfg.Tiers, cfg.PushoverToken, cfg.PushoverUserKey, logger)

	var publisher poll.Publisher
	if cfg.NATSURL != "" {
		pub, err := events.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return fmt.Errorf("connect event publisher: %w", err)
		}
		defer pub.Close()
		publisher = pub
	}

	feed := vatsim.New(cfg.FeedURL, logger)
	cache := &poll.Cache{}
	poller := poll.New(feed, classifier, dispatcher, publisher, cache, cfg.Interval, logger)

	logger.Info("watcher configured",
		"facility", cfg.DisplayName,
		"interval", cfg.Interval,
		"main_patterns", len(tiers.Main),
		"above_patterns", len(tiers.SupportAbove),
		"below_patterns", len(tiers.SupportBelow))

	return fn(ctx, &runtime{cfg: cfg, cache: cache, poller: poller})
}

// openStore picks the subscriber backend: Postgres when DATABASE_URL is
// set, object storage when a bucket or local directory is, otherwise none
// (operator-only mode).
func openStore(ctx context.Context, cfg *config.Config) (dispatch.Store, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL, cfg.ServiceName, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open subscriber database: %w", err)
		}
		return pg, pg.Close, nil
	case cfg.Bucket != "" || cfg.LocalDir != "":
		obj, err := store.NewObjectStore(ctx, cfg.Bucket, cfg.LocalDir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open subscriber storage: %w", err)
		}
		return obj, func() { obj.Close() }, nil
	default:
		return nil, nil, nil
	}
}

// loadRoster fetches the controller roster so notifications can show real
// names. Failure is not fatal; names just fall back to what the feed
// carries.
func loadRoster(ctx context.Context, cfg *config.Config) map[string]string {
	if cfg.RosterURL == "" {
		return nil
	}
	names, err := roster.Load(ctx, cfg.RosterURL, logger)
	if err != nil {
		logger.Warn("roster fetch failed, controller names unavailable", "error", err)
		return nil
	}
	logger.Info("roster loaded", "controllers", len(names))
	return names
}
