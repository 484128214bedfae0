// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fitfood-checkout/internal/config"
	"github.com/your-org/fitfood-checkout/internal/domain/catalog"
	"github.com/your-org/fitfood-checkout/internal/domain/checkout"
	"github.com/your-org/fitfood-checkout/internal/domain/notification"
	"github.com/your-org/fitfood-checkout/internal/domain/order"
	"github.com/your-org/fitfood-checkout/internal/domain/payment"
	"github.com/your-org/fitfood-checkout/internal/infrastructure/database/postgres"
	"github.com/your-org/fitfood-checkout/internal/infrastructure/database/redis"
	"github.com/your-org/fitfood-checkout/internal/infrastructure/messaging/kafka"
	"github.com/your-org/fitfood-checkout/internal/interfaces/http"
	"github.com/your-org/fitfood-checkout/internal/pkg/logger"
	"github.com/your-org/fitfood-checkout/internal/pkg/pdf"
)

const evictionInterval = time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg)
	log.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Infof("Starting %s", cfg.App.Name)

	// Connect to database
	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB(), log)

	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("Index creation failed")
	}

	// Seed sample products in development
	if cfg.IsDevelopment() {
		if err := migration.SeedCatalog(); err != nil {
			log.WithError(err).Warn("Catalog seeding failed")
		}
	}

	checks := map[string]http.HealthChecker{"database": db}

	// Connect to Redis. Development runs without it on the in-process store.
	var (
		store       checkout.Store
		rateLimiter *goredis.Client
	)
	redisClient, err := redis.NewConnection(cfg, log)
	switch {
	case err == nil:
		defer redisClient.Close()
		store = redis.NewSessionStore(redisClient)
		rateLimiter = redisClient.GetClient()
		checks["redis"] = redisClient
	case cfg.IsProduction():
		log.Fatalf("Failed to connect to Redis: %v", err)
	default:
		log.WithError(err).Warn("Redis unavailable, keeping checkout sessions in memory")
		store = checkout.NewMemoryStore()
	}

	// Order events
	var publisher notification.EventPublisher
	if len(cfg.External.Kafka.Brokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.External.Kafka.Topic, cfg.External.Kafka.Brokers...)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.WithField("topic", cfg.External.Kafka.Topic).Info("Publishing order events to Kafka")
	}

	dispatcher := notification.NewDispatcher(notification.Config{
		DeepLinkBase:   cfg.Notification.DeepLinkBase,
		RecipientParam: cfg.Notification.RecipientParam,
		Recipient:      cfg.Notification.Recipient,
		StoreName:      cfg.Notification.StoreName,
	}, publisher, log)

	opts := checkout.Options{
		PaymentMethods: checkout.PaymentMethods{
			Card: cfg.Checkout.CardEnabled,
			Pix:  cfg.Checkout.PixEnabled,
		},
		AddressRequired: cfg.Checkout.AddressRequired,
		ShippingFee:     cfg.Checkout.ShippingFee,
	}

	orders := order.NewService(db.GetDB(), cfg.Checkout.Currency, log)

	deps := checkout.Dependencies{
		Notifier:    dispatcher,
		Orders:      orders,
		Description: cfg.Checkout.OrderDescription,
		Logger:      log,
		Pix: payment.PixFlowConfig{
			PollInterval:            cfg.External.Pix.PollInterval,
			AllowManualConfirmation: cfg.External.Pix.AllowManualConfirmation,
		},
	}

	if opts.PaymentMethods.Card {
		if cfg.External.Stripe.SecretKey == "" {
			log.Warn("STRIPE_SECRET_KEY not set, card payments disabled")
			opts.PaymentMethods.Card = false
		} else {
			pricing := payment.InstallmentPricing{
				Max:       cfg.Checkout.MaxInstallments,
				Threshold: cfg.Checkout.InstallmentThreshold,
				Rate:      cfg.InstallmentRate(),
			}
			deps.Card = payment.NewCardAdapter(payment.NewStripeProvider(cfg.External.Stripe.SecretKey), pricing, cfg.Checkout.Currency, log).
				WithTimeout(cfg.External.Stripe.AuthorizeTimeout)
		}
	}

	if opts.PaymentMethods.Pix {
		deps.PixProvider = payment.NewPixGateway(payment.PixGatewayConfig{
			BaseURL:            cfg.External.Pix.BaseURL,
			APIToken:           cfg.External.Pix.APIToken,
			RequestTimeout:     cfg.External.Pix.RequestTimeout,
			BreakerMaxFailures: uint32(cfg.External.Pix.BreakerMaxFailures),
			BreakerOpenTimeout: cfg.External.Pix.BreakerOpenTimeout,
		}, log)
	}

	sessions, err := checkout.NewManager(opts, deps, store, cfg.Checkout.SessionTTL)
	if err != nil {
		log.Fatalf("Failed to create checkout manager: %v", err)
	}
	sessions.SetFreshTTL(cfg.Checkout.FreshSessionTTL)

	runCtx, stopRun := context.WithCancel(context.Background())
	go sessions.Run(runCtx, evictionInterval)

	// Create and start HTTP server
	server := http.NewServer(cfg, http.Dependencies{
		Logger:   log,
		Sessions: sessions,
		Products: catalog.NewRepository(db.GetDB()),
		Orders:   orders,
		Receipts: pdf.NewService(pdf.CompanyInfo{
			Name:  cfg.App.CompanyName,
			Phone: cfg.App.CompanyPhone,
			Email: cfg.App.CompanyEmail,
		}),
		RateLimiter: rateLimiter,
		Checks:      checks,
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	log.WithField("methods", opts.Enabled()).Info("All systems operational")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	stopRun()
	sessions.Shutdown()
	dispatcher.Wait()

	log.Info("Server shutdown completed")
}
