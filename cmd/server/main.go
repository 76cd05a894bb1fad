package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/brtkpo/RestaurantApp/internal/repository"
	"github.com/brtkpo/RestaurantApp/internal/service"
	transportHTTP "github.com/brtkpo/RestaurantApp/internal/transport/http"
	"github.com/brtkpo/RestaurantApp/internal/transport/http/handler"
	transportKafka "github.com/brtkpo/RestaurantApp/internal/transport/kafka"
	transportWS "github.com/brtkpo/RestaurantApp/internal/transport/ws"
	"github.com/brtkpo/RestaurantApp/internal/ws"
	"github.com/brtkpo/RestaurantApp/pkg/config"
	"github.com/brtkpo/RestaurantApp/pkg/db"
	"github.com/brtkpo/RestaurantApp/pkg/kafka"
	outbox "github.com/brtkpo/RestaurantApp/pkg/outbox/repository"
	"github.com/brtkpo/RestaurantApp/pkg/outbox/worker"
	"github.com/brtkpo/RestaurantApp/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using system envs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := utils.InitTracer(ctx, "restaurant-app")
	if err != nil {
		log.Fatalf("Error init tracer: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: "info",
		Env:   cfg.Env,
	})
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("error creating postgres db: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.URL); err != nil {
		log.Fatalf("error running migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	defer func() {
		_ = redisClient.Close()
	}()

	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	chatRepo := repository.NewChatRepository(pool, logger)
	notificationRepo := repository.NewNotificationRepository(pool, logger)
	catalogRepo := repository.NewCatalogRepository(pool, logger)
	outboxRepo := outbox.NewOutboxRepository(pool, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := ws.NewHub(logger, ws.NewMetrics(registry))

	// With Kafka enabled the outbox goes through the broker and every
	// instance consumes the topic back into its own hub. Without it,
	// committed events are routed to the hub directly.
	var publisher worker.Publisher
	if cfg.Kafka.Enabled {
		kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			log.Fatalf("error creating kafka producer: %v", err)
		}
		defer func() {
			_ = kafkaProducer.Close()
		}()

		publisher = kafkaProducer

		consumer := transportKafka.NewConsumer(hub, logger)
		go consumer.Start(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	} else {
		publisher = ws.NewHubPublisher(hub)
	}

	outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepo, publisher, logger)
	go outboxProcessor.Start(ctx)

	catalog := service.NewCachedCatalogService(service.NewCatalogService(catalogRepo), redisClient)
	notifier := service.NewNotifier(notificationRepo, outboxRepo)

	cartService := service.NewCartService(pool, logger, cartRepo, catalog)
	orderService := service.NewOrderService(pool, logger, orderRepo, cartRepo, catalog, notifier)
	chatService := service.NewChatService(pool, logger, chatRepo, orderRepo, catalog, notifier, hub)
	notificationService := service.NewNotificationService(logger, notificationRepo)
	paymentVerifier := service.NewHTTPPaymentVerifier(cfg.Payment, logger)
	paymentService := service.NewPaymentService(logger, paymentVerifier, orderService)

	app := fiber.New(fiber.Config{
		ReadTimeout: cfg.HTTP.Timeout,
	})

	app.Use(otelfiber.Middleware())

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Limiter.Max,
		Expiration: cfg.Limiter.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	handlers := &transportHTTP.Handlers{
		Cart:         handler.NewCartHandler(cartService, logger),
		Order:        handler.NewOrderHandler(orderService, logger),
		Chat:         handler.NewChatHandler(chatService, logger),
		Notification: handler.NewNotificationHandler(notificationService, logger),
		Payment:      handler.NewPaymentHandler(paymentService, logger, cfg.Frontend.SuccessURL),
		WS:           transportWS.NewHandler(hub, chatService, logger),
	}

	transportHTTP.RegisterRoutes(app, handlers, registry)

	go func() {
		logger.Info("HTTP server listening on " + cfg.HTTP.Port + " 🔥")
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error serving http: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Warn("HTTP shutdown failed: " + err.Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Tracer shutdown failed: " + err.Error())
	}
}
