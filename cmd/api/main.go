package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kislikjeka/agrovest/internal/infra/gateway/paystack"
	"github.com/kislikjeka/agrovest/internal/infra/gateway/stripe"
	"github.com/kislikjeka/agrovest/internal/infra/kafka"
	"github.com/kislikjeka/agrovest/internal/infra/metrics"
	"github.com/kislikjeka/agrovest/internal/infra/postgres"
	infraRedis "github.com/kislikjeka/agrovest/internal/infra/redis"
	"github.com/kislikjeka/agrovest/internal/ledger"
	"github.com/kislikjeka/agrovest/internal/movement"
	"github.com/kislikjeka/agrovest/internal/platform/offering"
	"github.com/kislikjeka/agrovest/internal/platform/position"
	"github.com/kislikjeka/agrovest/internal/platform/user"
	"github.com/kislikjeka/agrovest/internal/platform/wallet"
	"github.com/kislikjeka/agrovest/internal/transport/httpapi"
	"github.com/kislikjeka/agrovest/internal/transport/httpapi/handler"
	"github.com/kislikjeka/agrovest/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/agrovest/pkg/config"
	"github.com/kislikjeka/agrovest/pkg/logger"
)

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)
	log.Info("Starting Agrovest API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"currency", cfg.Currency,
		"gateway", cfg.GatewayProvider,
	)

	db, err := postgres.NewPool(ctx, postgres.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: int32(cfg.DatabaseMaxConns),
	})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	// The offering cache is optional; without Redis the catalog reads Postgres
	var catalogCache offering.Cache
	var cachePinger handler.Pinger
	redisClient, err := infraRedis.NewClient(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.Warn("Redis not configured, offering cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unreachable, offering cache disabled", "error", err)
		} else {
			catalogCache = infraRedis.NewOfferingCache(redisClient, log)
			cachePinger = redisPinger(redisClient)
			log.Info("Redis connection established")
		}
	}

	gateway, err := newGateway(cfg, log)
	if err != nil {
		log.Error("Failed to configure payment gateway", "error", err)
		os.Exit(1)
	}

	var events movement.EventPublisher
	if cfg.EventsEnabled() {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer publisher.Close()
		events = publisher
		log.Info("Ledger event publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	recorder := metrics.New()

	// Repositories
	txManager := postgres.NewTxManager(db.Pool)
	userRepo := postgres.NewUserRepository(db.Pool)
	ledgerRepo := postgres.NewLedgerRepository(db.Pool)
	walletRepo := postgres.NewWalletRepository(db.Pool)
	offeringRepo := postgres.NewOfferingRepository(db.Pool)
	positionRepo := postgres.NewPositionRepository(db.Pool)

	// Services
	ledgerSvc := ledger.NewService(ledgerRepo)
	walletSvc := wallet.NewService(walletRepo)
	offeringSvc := offering.NewService(offeringRepo, catalogCache)
	positionSvc := position.NewService(positionRepo)

	engine := movement.NewService(movement.Deps{
		Tx:        txManager,
		Ledger:    ledgerSvc,
		Wallets:   walletSvc,
		Offerings: offeringSvc,
		Positions: positionSvc,
		Gateway:   gateway,
		Events:    events,
		Metrics:   recorder,
	}, movement.Config{MinWithdrawal: cfg.MinWithdrawal}, log)

	userSvc := user.NewService(userRepo, txManager, walletSvc, engine, log)
	jwtSvc := middleware.NewJWTService(cfg.JWTSecret)

	reconciler := movement.NewReconciler(txManager, ledgerSvc, walletSvc, positionSvc, &movement.ReconcilerConfig{
		Interval:    cfg.ReconcileInterval,
		OrphanGrace: cfg.OrphanPositionGrace,
		Metrics:     recorder,
		Logger:      log,
	})

	router := httpapi.NewRouter(httpapi.Config{
		Logger:          log,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitRPS:    float64(cfg.RateLimitRPS),
		RateLimitBurst:  cfg.RateLimitBurst,
		AuthHandler:     handler.NewAuthHandler(userSvc, jwtSvc),
		WalletHandler:   handler.NewWalletHandler(engine, cfg.Currency),
		OfferingHandler: handler.NewOfferingHandler(offeringSvc, engine),
		PositionHandler: handler.NewPositionHandler(positionSvc),
		AdminHandler:    handler.NewAdminHandler(engine, userSvc, reconciler),
		HealthHandler:   handler.NewHealthHandler(handler.PingFunc(db.Health), cachePinger),
		JWTMiddleware:   middleware.JWTMiddleware(jwtSvc, userSvc),
		Metrics:         recorder,
		MetricsHandler:  recorder.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go reconciler.Run(ctx)

	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}

func newGateway(cfg *config.Config, log *logger.Logger) (movement.Gateway, error) {
	switch cfg.GatewayProvider {
	case config.GatewayPaystack:
		client := paystack.NewClient(cfg.PaystackSecretKey, log)
		client.SetBaseURL(cfg.PaystackBaseURL)
		return paystack.NewGatewayAdapter(client, cfg.Currency, cfg.PaystackCallbackURL), nil
	case config.GatewayStripe:
		return stripe.NewGatewayAdapter(stripe.Config{
			SecretKey:  cfg.StripeSecretKey,
			Currency:   cfg.Currency,
			SuccessURL: cfg.StripeSuccessURL,
			CancelURL:  cfg.StripeCancelURL,
		}, log), nil
	default:
		return nil, fmt.Errorf("unsupported gateway provider %q", cfg.GatewayProvider)
	}
}

func redisPinger(client *goredis.Client) handler.PingFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
