// Package main provides the entry point for the izing session supervisor
// daemon. It rebuilds the session registry from the persisted account
// records, hosts the admin/observation API, and shuts sessions down
// cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/DFN-master/izing-main/internal/accounts"
	"github.com/DFN-master/izing-main/internal/config"
	"github.com/DFN-master/izing-main/internal/event"
	"github.com/DFN-master/izing-main/internal/logging"
	"github.com/DFN-master/izing-main/internal/queue"
	"github.com/DFN-master/izing-main/internal/server"
	"github.com/DFN-master/izing-main/internal/wbot"
	"github.com/DFN-master/izing-main/pkg/types"
)

const (
	// replayStartTimeout bounds one replayed StartSession attempt.
	replayStartTimeout = 2 * time.Minute
	// replayMaxElapsed bounds the whole backoff schedule per account.
	replayMaxElapsed = 15 * time.Minute
)

var (
	envFile    string
	configFile string
	pretty     bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "izingd",
		Short:         "WhatsApp session supervisor daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "environment file to load")
	cmd.Flags().StringVar(&configFile, "config", "", "path to izing.jsonc (default: ./izing.jsonc if present)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "human-readable log output")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Error().Err(err).Msg("izingd exited with error")
		os.Exit(1)
	}
}

// noDriverFactory keeps the admin API usable when no protocol client driver
// is linked in; session starts fail with a clear error instead.
type noDriverFactory struct{}

func (noDriverFactory) New(wbot.Options) (wbot.Client, error) {
	return nil, wbot.ErrNoFactory
}

func run(cmd *cobra.Command, args []string) error {
	// A missing .env is fine; the process manager may set the environment.
	_ = godotenv.Load(envFile)

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logging.Init(logging.Config{Level: logging.ParseLevel(cfg.LogLevel), Pretty: pretty})
	log := logging.ForComponent("izingd")

	bus := event.NewBus()
	defer bus.Close()
	q := queue.New()
	defer q.Close()

	store := wbot.NewStore()
	fsm := wbot.NewFSManager(cfg.AuthCacheRoot)
	accts := accounts.New(cfg.DataDir)

	factory, err := wbot.DefaultFactory()
	if err != nil {
		log.Warn().Msg("no whatsapp client driver registered, sessions cannot be started")
		factory = noDriverFactory{}
	}

	manager := wbot.NewManager(store, bus, q, accts, factory, wbot.ManagerOptions{
		CheckInterval:  cfg.CheckInterval(),
		ExecutablePath: cfg.ChromeBin,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	replaySessions(ctx, manager, accts, log)

	srv := server.New(&server.Config{
		Addr:        cfg.HTTPAddr,
		EnableCORS:  true,
		ReadTimeout: 30 * time.Second,
	}, manager, store, accts, fsm, bus)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("admin api listening")
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	for _, sess := range store.List() {
		store.Remove(sess.ID)
	}
	return nil
}

// replaySessions rebuilds the in-memory registry after a restart: every
// account that was connected gets its session creation replayed. Retry
// policy lives here, outside the lifecycle core: an authentication failure
// is final (it needs an operator), anything else backs off and retries.
func replaySessions(ctx context.Context, m *wbot.Manager, accts *accounts.Store, log zerolog.Logger) {
	list, err := accts.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list accounts for replay failed")
		return
	}

	for _, acc := range list {
		if acc.Status != types.StatusConnected {
			continue
		}
		go func(acc *types.Account) {
			op := func() error {
				attemptCtx, cancel := context.WithTimeout(ctx, replayStartTimeout)
				defer cancel()
				_, err := m.StartSession(attemptCtx, acc)
				if errors.Is(err, wbot.ErrAuthFailure) {
					return backoff.Permanent(err)
				}
				return err
			}

			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 5 * time.Second
			b.MaxInterval = time.Minute
			b.MaxElapsedTime = replayMaxElapsed

			if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
				log.Error().Err(err).Int("sessionId", acc.ID).Msg("session replay failed")
				return
			}
			log.Info().Int("sessionId", acc.ID).Msg("session replayed")
		}(acc)
	}
}
