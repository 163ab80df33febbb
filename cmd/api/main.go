package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"tourmarket/internal/config"
	"tourmarket/internal/database"
	"tourmarket/internal/gateway"
	"tourmarket/internal/middleware"
	"tourmarket/internal/modules/adminview"
	"tourmarket/internal/modules/reservation"
	"tourmarket/internal/notify"
	jwtsvc "tourmarket/internal/pkg/jwt"
	"tourmarket/internal/realtime"
	"tourmarket/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	broker := realtime.NewBroker()
	hub := realtime.NewHub()
	go func() {
		// The broker closes a subscription it had to drop events on; the
		// hub then disconnects its clients and a fresh subscription starts.
		for {
			events, _ := broker.Subscribe(256)
			hub.Run(events)
		}
	}()

	reservationRepo := repository.NewReservationRepository(db, broker)
	paymentRepo := repository.NewPaymentRecordRepository(db)
	serviceRepo := repository.NewTourServiceRepository(db)

	gw := gateway.New(gateway.Config{
		BaseURL:        cfg.GatewayBaseURL,
		APIKey:         cfg.GatewayAPIKey,
		Timeout:        cfg.GatewayTimeout,
		ConfirmTimeout: cfg.GatewayConfirmTimeout,
	}, log.Printf)

	dispatcher := notify.NewDispatcher(cfg.RabbitURL, cfg.NotifyQueue, log.Printf)

	orchestrator := reservation.NewService(
		reservationRepo,
		serviceRepo,
		paymentRepo,
		gw,
		dispatcher,
		reservation.Config{
			MaxIntentRetries: cfg.IntentMaxRetries,
			RetryBackoff:     cfg.IntentRetryBackoff,
			DefaultCurrency:  "USD",
		},
		log.Printf,
	)
	reservationHandler := reservation.NewHandler(orchestrator, log.Printf)

	lookups := adminview.NewRedisLookupCache(newRedisClient(cfg), cfg.LookupTTL)
	primeLookups(serviceRepo, lookups)

	mirror := adminview.NewMirror(
		adminview.NewStoreLoader(reservationRepo, cfg.AdminWindow),
		adminview.NewBrokerSubscriber(broker),
		lookups,
		log.Printf,
	)
	go mirror.Run(context.Background())

	adminService := adminview.NewService(mirror)
	adminHandler := adminview.NewHandler(adminService, hub, log.Printf)

	j := jwtsvc.New(cfg.JWTSecret, 24*time.Hour)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			reservationHandler.RegisterRoutes(protected)

			admin := protected.Group("/admin")
			admin.Use(middleware.AdminOnly())
			adminHandler.RegisterRoutes(admin)
		}
	}

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}

func newRedisClient(cfg *config.RuntimeConfig) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("level=warn msg=redis unavailable, lookups degrade to placeholders err=%v", err)
		return nil
	}
	return client
}

func primeLookups(repo *repository.TourServiceRepository, lookups *adminview.RedisLookupCache) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	services, err := repo.ListActive(ctx)
	if err != nil {
		log.Printf("level=warn msg=lookup cache priming failed err=%v", err)
		return
	}
	lookups.PrimeServices(ctx, services)
}
