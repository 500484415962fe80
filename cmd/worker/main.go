package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campustrack/internal/analytics"
	"campustrack/internal/attendance"
	"campustrack/internal/config"
	"campustrack/internal/queue"
	"campustrack/internal/store"
	"campustrack/internal/timetable"
)

type analyticsSource struct {
	*attendance.Repository
	grid *timetable.Repository
}

func (s analyticsSource) TimetableEntryCount(ctx context.Context) (int, error) {
	return s.grid.EntryCount(ctx)
}

// Worker consumes marking events and keeps the cached dashboard snapshot
// warm: every new attendance record invalidates the snapshot and triggers a
// recompute.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPoolSize)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "campustrack:events")
	}

	attRepo := attendance.NewRepository(db.Client)
	gridRepo := timetable.NewRepository(db.Client)
	aggSvc := analytics.NewService(analyticsSource{Repository: attRepo, grid: gridRepo}, cfg.WindowDays)
	snapshot := analytics.NewSnapshotCache(redisClient.Client, cfg.SnapshotTTL)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for marking events...")
	for msg := range messages {
		if msg.Type != queue.TypeAttendanceMarked {
			continue
		}

		if err := snapshot.Invalidate(ctx); err != nil {
			log.Printf("snapshot invalidate failed: %v", err)
		}

		ov, err := aggSvc.OverallStats(ctx, time.Time{})
		if err != nil {
			log.Printf("snapshot recompute failed: %v", err)
			continue
		}
		if err := snapshot.Put(ctx, ov); err != nil {
			log.Printf("snapshot store failed: %v", err)
			continue
		}
		log.Printf("snapshot refreshed: overall %d%%, %d at risk", ov.OverallPct, ov.AtRiskCount)
	}

	log.Println("worker stopped")
}
