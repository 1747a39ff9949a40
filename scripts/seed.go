package main

import (
	"context"
	"log"
	"os"

	"github.com/queueup/backend/internal/infrastructure/clients/postgres"
	"github.com/queueup/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				ticket_departments,
				tickets,
				departments,
				shops
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	// 1. Seed shops
	type shopSeed struct {
		name, description, location string
		accepting                   bool
	}
	shops := []shopSeed{
		{"Central Barbershop", "Cuts and shaves, walk-in only", "12 Market Street", true},
		{"Riverside Clinic", "General practice and vaccinations", "3 Quay Road", true},
		{"City Hall Services", "Permits and registrations", "1 Civic Square", false},
	}

	shopIDs := make([]int32, 0, len(shops))
	for _, s := range shops {
		var id int32
		err := pgClient.DB().QueryRowContext(ctx, `
			INSERT INTO shops (name, description, location, accepting_tickets)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, s.name, s.description, s.location, s.accepting).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to create shop %s: %v", s.name, err)
		}
		shopIDs = append(shopIDs, id)
	}

	// 2. Seed departments. Starting averages reflect a plausible visit so
	// the estimator has something to converge from.
	type deptSeed struct {
		shop               int
		description        string
		capacity           int
		expected, measured float64
	}
	departments := []deptSeed{
		{0, "Chairs", 3, 20, 25},
		{1, "Consultation", 2, 15, 18},
		{1, "Vaccination", 4, 5, 7},
		{2, "Permits desk", 1, 30, 40},
	}

	for _, d := range departments {
		_, err := pgClient.DB().ExecContext(ctx, `
			INSERT INTO departments (shop_id, description, capacity, ma_expected_duration, ma_measured_duration)
			VALUES ($1, $2, $3, $4, $5)
		`, shopIDs[d.shop], d.description, d.capacity, d.expected, d.measured)
		if err != nil {
			log.Fatalf("Failed to create department %s: %v", d.description, err)
		}
	}

	log.Printf("Seeded %d shops and %d departments", len(shops), len(departments))
}
