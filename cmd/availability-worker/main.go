// availability-worker periodically recomputes and caches the slot lists for
// every active doctor over the next few days, so slot queries during clinic
// hours mostly hit warm cache. Invalidation-on-write stays the authoritative
// freshness mechanism; this loop only refills.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/scheduling/internal/config"
	"github.com/clinicore/scheduling/internal/db"
	redisclient "github.com/clinicore/scheduling/internal/redis"
	"github.com/clinicore/scheduling/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("availability-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running availability worker in env=%s interval=%s warm_days=%d",
		cfg.Env, cfg.WorkerInterval, cfg.WarmDays)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.Connect(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.New(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := schedule.NewPgRepository(pgPool)
	cache := redisclient.NewAvailabilityCache(rdb, cfg.CacheTTL)
	locker := redisclient.NewScheduleLocker(rdb, cfg.LockTTL)
	svc := schedule.NewService(repo, repo, locker, cfg.Rules, schedule.WithAvailabilityCache(cache))

	// Run once at startup
	runOnce(rootCtx, pgPool, svc, cfg.WarmDays)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping availability worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, pgPool, svc, cfg.WarmDays)
		}
	}
}

func runOnce(ctx context.Context, pool *pgxpool.Pool, svc *schedule.Service, warmDays int) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()

	doctorIDs, err := activeDoctorIDs(runCtx, pool)
	if err != nil {
		log.Printf("warm run error: %v", err)
		return
	}

	var warmed int
	today := schedule.DayOf(time.Now())
	for _, id := range doctorIDs {
		for d := 0; d < warmDays; d++ {
			day := today.AddDate(0, 0, d)
			if _, err := svc.GetAvailableSlots(runCtx, id, day, 0); err != nil {
				log.Printf("warm doctor=%s day=%s error: %v", id, day.Format("2006-01-02"), err)
				continue
			}
			warmed++
		}
	}

	log.Printf("warm run complete doctors=%d entries=%d in %s", len(doctorIDs), warmed, time.Since(start))
}

func activeDoctorIDs(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `SELECT id FROM doctors WHERE active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
