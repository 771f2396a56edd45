package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/config"
	"github.com/splitledger/splitledger/internal/engine"
	api "github.com/splitledger/splitledger/internal/http"
	"github.com/splitledger/splitledger/internal/notify"
	"github.com/splitledger/splitledger/internal/service"
	"github.com/splitledger/splitledger/internal/storage/sqlite"
	"github.com/splitledger/splitledger/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("storage initialized", "database", cfg.DB.Path)

	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := notify.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
		if err != nil {
			return fmt.Errorf("connect AMQP: %w", err)
		}
		publisher = amqpPublisher
		slog.Info("AMQP publisher connected", "exchange", cfg.AMQP.Exchange, "queue", cfg.AMQP.Queue)
	}
	defer publisher.Close()

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)
	guard := engine.NewGuard(store)

	billService := service.NewBillService(store, guard, publisher)
	groupService := service.NewGroupService(store)
	authService := service.NewAuthService(authenticator, jwtManager)

	router := api.New(
		api.NewAuthHandler(authService),
		api.NewBillHandler(billService),
		api.NewGroupHandler(groupService),
		jwtManager,
		cfg.CORS.AllowedOrigins,
	)

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.App.Port),
		// h2c allows HTTP/2 without TLS for clients behind a terminating proxy.
		Handler: h2c.NewHandler(router, &http2.Server{}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
