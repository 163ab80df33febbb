// Command reconcile resolves reservations stuck in awaiting_payment after
// a lost gateway confirmation. Intended to run periodically (cron) next to
// the API.
package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"tourmarket/internal/config"
	"tourmarket/internal/database"
	"tourmarket/internal/gateway"
	"tourmarket/internal/modules/reservation"
	"tourmarket/internal/notify"
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
		log.Fatalf("db connect failed: %v", err)
	}

	reservationRepo := repository.NewReservationRepository(db, nil)
	paymentRepo := repository.NewPaymentRecordRepository(db)
	serviceRepo := repository.NewTourServiceRepository(db)

	gw := gateway.New(gateway.Config{
		BaseURL:        cfg.GatewayBaseURL,
		APIKey:         cfg.GatewayAPIKey,
		Timeout:        cfg.GatewayTimeout,
		ConfirmTimeout: cfg.GatewayConfirmTimeout,
	}, log.Printf)

	dispatcher := notify.NewDispatcher(cfg.RabbitURL, cfg.NotifyQueue, log.Printf)

	svc := reservation.NewService(
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

	rc := reservation.NewReconciler(svc, cfg.ReconcileMinAge, 200, log.Printf)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stats, err := rc.Run(ctx)
	if err != nil {
		log.Fatalf("reconcile sweep failed: %v", err)
	}
	log.Printf("reconcile completed: scanned=%d confirmed=%d failed=%d pending=%d errors=%d",
		stats.Scanned, stats.Confirmed, stats.Failed, stats.Pending, stats.Errors)
}
