// Command seed loads demo catalog data and a few reservations into a local
// database.
package main

import (
	"context"
	"log"
	"time"

	"tourmarket/internal/database"
	"tourmarket/internal/domain"
	"tourmarket/internal/repository"
)

func main() {
	db, err := database.Connect("tourmarket.db")
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM payment_records")
	db.Exec("DELETE FROM reservations")
	db.Exec("DELETE FROM tour_services")

	services := []domain.TourService{
		{ID: 1, Type: domain.ServiceProperty, Name: "Cliffside Villa Azul", PricePerUnit: 320, Currency: "USD", Capacity: 8, PartnerID: 1, Active: true},
		{ID: 2, Type: domain.ServiceProperty, Name: "Old Town Loft", PricePerUnit: 145, Currency: "USD", Capacity: 4, PartnerID: 1, Active: true},
		{ID: 3, Type: domain.ServiceVehicle, Name: "4x4 Overlander", PricePerUnit: 95, Currency: "USD", Capacity: 5, PartnerID: 2, Active: true},
		{ID: 4, Type: domain.ServiceVehicle, Name: "Coastal Scooter", PricePerUnit: 28, Currency: "USD", Capacity: 2, PartnerID: 2, Active: true},
		{ID: 7, Type: domain.ServiceCircuit, Name: "Atlas Foothills Circuit", PricePerUnit: 1200, Currency: "USD", Capacity: 12, PartnerID: 3, Active: true},
		{ID: 8, Type: domain.ServiceCircuit, Name: "Desert Stars Trek", PricePerUnit: 850, Currency: "USD", Capacity: 10, PartnerID: 3, Active: false},
	}
	for i := range services {
		if err := db.Create(&services[i]).Error; err != nil {
			log.Fatal("seed tour_services failed:", err)
		}
	}

	repo := repository.NewReservationRepository(db, nil)
	start := time.Now().UTC().AddDate(0, 1, 0)

	demo := []domain.Reservation{
		{ServiceType: domain.ServiceCircuit, ServiceID: 7, UserID: 101, PartySize: 2, StartDate: start, DurationDays: 1, Amount: 2400, Currency: "USD", Status: domain.ReservationPending},
		{ServiceType: domain.ServiceProperty, ServiceID: 1, UserID: 102, PartySize: 6, StartDate: start, DurationDays: 4, Amount: 1280, Currency: "USD", Status: domain.ReservationConfirmed},
		{ServiceType: domain.ServiceVehicle, ServiceID: 3, UserID: 103, PartySize: 4, StartDate: start, DurationDays: 7, Amount: 665, Currency: "USD", Status: domain.ReservationAwaitingPayment, IntentID: "pi_demo_0001"},
	}
	ctx := context.Background()
	for i := range demo {
		if err := repo.Create(ctx, &demo[i]); err != nil {
			log.Fatal("seed reservations failed:", err)
		}
	}

	log.Printf("seed completed: services=%d reservations=%d", len(services), len(demo))
}
