package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campustrack/internal/analytics"
	"campustrack/internal/attendance"
	"campustrack/internal/auth"
	"campustrack/internal/config"
	"campustrack/internal/handler"
	"campustrack/internal/httpmiddleware"
	"campustrack/internal/palette"
	"campustrack/internal/queue"
	"campustrack/internal/store"
	"campustrack/internal/timetable"
)

// analyticsSource joins the record log and the timetable count behind the
// aggregator's read interface.
type analyticsSource struct {
	*attendance.Repository
	grid *timetable.Repository
}

func (s analyticsSource) TimetableEntryCount(ctx context.Context) (int, error) {
	return s.grid.EntryCount(ctx)
}

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPoolSize)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "campustrack:events")
	}

	attRepo := attendance.NewRepository(db.Client)
	gridRepo := timetable.NewRepository(db.Client)

	colors := palette.New(redisClient.Client, palette.Default)
	attSvc := attendance.NewService(attRepo, q)
	aggSvc := analytics.NewService(analyticsSource{Repository: attRepo, grid: gridRepo}, cfg.WindowDays)
	snapshot := analytics.NewSnapshotCache(redisClient.Client, cfg.SnapshotTTL)
	gridSvc := timetable.NewService(gridRepo, colors)

	h := handler.New(attSvc, aggSvc, snapshot, gridSvc, cfg)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.Metrics())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Gin())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/token", h.IssueToken)

	authed := r.Group("/v1", auth.BearerAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authed.GET("/analytics/overview", h.Overview)
	authed.GET("/analytics/departments", h.DepartmentBreakdown)
	authed.GET("/analytics/weekly-trend", h.WeeklyTrend)
	authed.GET("/analytics/at-risk", h.LowAttendance)

	authed.POST("/attendance/mark", auth.RequireRole(auth.RoleFaculty, auth.RoleAdmin), h.MarkClass)
	authed.GET("/attendance/recent", h.RecentSessions)

	authed.GET("/timetable/grid", h.GetGrid)
	admin := authed.Group("/timetable", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/entries", h.AddEntry)
	admin.PUT("/entries/:id", h.UpdateEntry)
	admin.DELETE("/entries/:id", h.DeleteEntry)
	admin.POST("/mdc", h.ToggleMDC)

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
