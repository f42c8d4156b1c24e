package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/edvin/devlake-bot/internal/activity"
	"github.com/edvin/devlake-bot/internal/api"
	"github.com/edvin/devlake-bot/internal/bot"
	"github.com/edvin/devlake-bot/internal/config"
	"github.com/edvin/devlake-bot/internal/devlake"
	"github.com/edvin/devlake-bot/internal/logging"
	"github.com/edvin/devlake-bot/internal/secret"
	"github.com/edvin/devlake-bot/internal/workflow"
)

// vaultTTL bounds how long a submitted token may sit unconsumed before the
// vault discards it.
const vaultTTL = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	vault := secret.NewVault(vaultTTL)
	defer vault.Close()

	dl := devlake.NewClient(cfg.DevLakeURL, cfg.DevLakeAPIToken)

	// The worker listens on an instance-scoped queue so activities always run
	// in this process, next to the vault holding the tokens they consume.
	taskQueue := cfg.TaskQueue()
	w := worker.New(tc, taskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ErrorTypingInterceptor{}},
	})
	w.RegisterActivity(activity.NewDevLake(dl, vault))
	w.RegisterWorkflow(workflow.ProvisionProjectWorkflow)
	w.RegisterWorkflow(workflow.AddScopesWorkflow)

	opsSrv := &http.Server{
		Addr:    cfg.HTTPListenAddr,
		Handler: api.NewServer(logger, dl, tc).Handler(),
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting ops server")
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ops server failed")
		}
	}()

	// Fatal errors are funneled back to main so the deferred cleanup
	// (temporal client, vault) still runs on the way out.
	fatal := make(chan error, 2)

	go func() {
		logger.Info().Str("taskQueue", taskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			fatal <- fmt.Errorf("worker failed: %w", err)
		}
	}()

	b := bot.New(cfg, logger, tc, vault, dl)
	go func() {
		logger.Info().Msg("starting slack bot")
		if err := b.Run(ctx); err != nil && ctx.Err() == nil {
			fatal <- fmt.Errorf("slack bot failed: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info().Msg("shutting down")
	case err := <-fatal:
		logger.Error().Err(err).Msg("shutting down after fatal error")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown failed")
	}
}
