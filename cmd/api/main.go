// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/config"
	"github.com/your-org/elearning-storefront/internal/domain/cart"
	"github.com/your-org/elearning-storefront/internal/domain/checkout"
	"github.com/your-org/elearning-storefront/internal/domain/enrollment"
	"github.com/your-org/elearning-storefront/internal/domain/payment"
	"github.com/your-org/elearning-storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/elearning-storefront/internal/infrastructure/database/redis"
	"github.com/your-org/elearning-storefront/internal/interfaces/http"
	"github.com/your-org/elearning-storefront/internal/interfaces/http/handlers"
	"github.com/your-org/elearning-storefront/internal/interfaces/http/routes"
	"github.com/your-org/elearning-storefront/internal/pkg/email"
	"github.com/your-org/elearning-storefront/internal/pkg/logger"
	"github.com/your-org/elearning-storefront/internal/pkg/pdf"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(cfg.Logging)
	log.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Infof("Starting %s", cfg.App.Name)

	// Amounts go out as JSON numbers, matching the upstream service
	decimal.MarshalJSONWithoutQuotes = true

	// Connect to database
	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	if err := db.Health(); err != nil {
		log.WithError(err).Fatal("Database health check failed")
	}
	if err := redisClient.Health(); err != nil {
		log.WithError(err).Fatal("Redis health check failed")
	}

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		log.WithError(err).Fatal("Database migration failed")
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("Index creation failed")
	}

	// Domain services
	carts := cart.NewRegistry(
		redis.CartStorageFactory(redisClient.GetClient(), cfg.Checkout.CartTTL),
		cfg.Checkout.CartStorageKey,
		log.WithField("component", "cart"),
	)
	orders := payment.NewClient(cfg.External.OrderService, log)
	enrollments := enrollment.NewService(db.GetDB())
	orchestrator := checkout.NewOrchestrator(
		orders,
		payment.NewVerifier(orders, log),
		enrollments,
		email.NewEmailService(cfg.External.Email, log),
		checkout.OptionsFromConfig(cfg),
		log,
	)
	sessions := checkout.NewManager(orchestrator)

	server := http.NewServer(cfg, db.GetDB(), redisClient.GetClient(), routes.Handlers{
		Cart:       handlers.NewCartHandler(carts, log),
		Checkout:   handlers.NewCheckoutHandler(sessions, carts, log),
		Enrollment: handlers.NewEnrollmentHandler(enrollments, pdf.NewService(cfg), log),
	}, log)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go sweep(ctx, cfg.Checkout, carts, sessions, log)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	log.Info("All systems operational")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")
	stop()

	// Give server 30 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	log.Info("Server shutdown completed")
}

// sweep drops idle carts and checkout sessions from memory
func sweep(ctx context.Context, cfg config.CheckoutConfig, carts *cart.Registry, sessions *checkout.Manager, log logrus.FieldLogger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Sessions first so their cart leases are released
			droppedSessions := sessions.Sweep(cfg.SessionIdleTTL)
			droppedCarts := carts.Sweep(cfg.SessionIdleTTL)
			if droppedCarts+droppedSessions > 0 {
				log.WithFields(logrus.Fields{
					"carts":    droppedCarts,
					"sessions": droppedSessions,
				}).Debug("Swept idle state")
			}
		}
	}
}
