package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/go-logr/logr"
	"github.com/layer-3/gatekeeper/adapters/events"
	"github.com/layer-3/gatekeeper/adapters/hasher"
	"github.com/layer-3/gatekeeper/adapters/logging"
	"github.com/layer-3/gatekeeper/adapters/store"
	"github.com/layer-3/gatekeeper/adapters/tokenizer"
	"github.com/layer-3/gatekeeper/adapters/users"
	"github.com/layer-3/gatekeeper/config"
	"github.com/layer-3/gatekeeper/ports"
	"github.com/layer-3/gatekeeper/service"
	httptransport "github.com/layer-3/gatekeeper/transport/http"
	"github.com/spf13/cobra"
)

func init() {
	var (
		migrate       bool
		secureCookies bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate, secureCookies)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply user store migrations before serving.")
	cmd.Flags().BoolVar(&secureCookies, "secure-cookies", false, "Mark token cookies Secure.")

	rootCmd.AddCommand(cmd)
}

func runServe(parent context.Context, migrate, secureCookies bool) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	keys, err := tokenizer.LoadKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath)
	if err != nil {
		return err
	}
	logger.Info("signing keys loaded", "keys", keys.String())

	redisClient, err := connectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logging.NewWatermillAdapter(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create redis publisher: %w", err)
	}
	defer publisher.Close()

	repo, closeRepo, err := openUserRepository(ctx, cfg, migrate, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(keys, cfg.Lifetimes()),
		store.NewRedisStore(redisClient, cfg.RedisNamespace),
		repo,
		hasher.NewBcryptHasher(0),
		events.NewEmailPublisher(publisher, cfg.EmailTopic),
		cfg.Service(),
		service.WithLogger(logger.WithName("auth")),
	)

	var jobs sync.WaitGroup
	jobs.Add(1)
	go func() {
		defer jobs.Done()
		authService.RunInactivePurge(ctx, cfg.PurgeInterval, cfg.InactiveUserTTL)
	}()

	router := httptransport.SetupRouter(authService, httptransport.RouterConfig{
		Logger:        logger.WithName("http"),
		SecureCookies: secureCookies,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stop()
		jobs.Wait()
		return fmt.Errorf("http server failed: %w", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "http shutdown failed")
	}
	jobs.Wait()
	authService.Wait()
	return nil
}

func openUserRepository(ctx context.Context, cfg *config.Config, migrate bool, logger logr.Logger) (ports.UserRepository, func(), error) {
	if cfg.UserStore == config.UserStoreMemory {
		logger.Info("using in-memory user store; accounts are lost on restart")
		return users.NewMemoryRepository(), func() {}, nil
	}

	db, err := users.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if migrate {
		if err := users.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return users.NewPostgresRepository(db), closeDB(db, logger), nil
}

func closeDB(db *sql.DB, logger logr.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Error(err, "failed to close database")
		}
	}
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
