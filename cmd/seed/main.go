package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedContracts(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed contracts: %v", err)
	}
	if err := seedSlotDefinitions(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed slot definitions: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, active, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, email)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedContracts gives every doctor a contract starting up to a year back.
// Most stay open-ended; roughly one in five ends within the next two months,
// which exercises the NO_ACTIVE_CONTRACT path near the end of the horizon.
func seedContracts(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding contracts for %d doctors", len(doctorIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctorIDs {
		start := time.Now().AddDate(0, 0, -gofakeit.Number(30, 365))

		var end *time.Time
		if gofakeit.Number(0, 4) == 0 {
			e := time.Now().AddDate(0, 0, gofakeit.Number(7, 60))
			end = &e
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO contracts (id, doctor_id, start_date, end_date, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, TRUE, now(), now())
		`, uuid.New(), doctorID, start, end)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedSlotDefinitions gives every doctor Mon-Fri windows: a morning block and,
// for most doctors, an afternoon block.
func seedSlotDefinitions(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding slot definitions for %d doctors", len(doctorIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctorIDs {
		hasAfternoon := gofakeit.Number(0, 9) < 8

		for weekday := 1; weekday <= 5; weekday++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO schedule_slot_definitions (id, doctor_id, weekday, start_minute, end_minute, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
			`, uuid.New(), doctorID, weekday, 8*60, 12*60)
			if err != nil {
				return err
			}

			if hasAfternoon {
				_, err := tx.Exec(ctx, `
					INSERT INTO schedule_slot_definitions (id, doctor_id, weekday, start_minute, end_minute, active, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
				`, uuid.New(), doctorID, weekday, 13*60, 18*60)
				if err != nil {
					return err
				}
			}
		}
	}

	return tx.Commit(ctx)
}
