package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wheelofnames/internal/auth"
	"wheelofnames/internal/config"
	"wheelofnames/internal/handler"
	"wheelofnames/internal/history"
	"wheelofnames/internal/httpmiddleware"
	"wheelofnames/internal/metrics"
	"wheelofnames/internal/queue"
	"wheelofnames/internal/rowstore"
	"wheelofnames/internal/session"
	"wheelofnames/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func openRows(ctx context.Context, cfg config.App) (rowstore.Store, *store.DB, error) {
	if cfg.DBDriver == "memory" {
		log.Println("using in-memory row store; nothing survives a restart")
		return rowstore.NewMemory(), nil, nil
	}
	db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	rows := rowstore.NewSQL(db.Client, db.Dialect)
	if err := rows.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return rows, db, nil
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, db, err := openRows(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(256)
		q = mem
		// no separate worker can see this queue
		go func() {
			n, err := history.Run(ctx, mem, rows)
			log.Printf("in-process history consumer stopped after %d entries (err=%v)", n, err)
		}()
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	wheels := session.NewManager(rows, session.Config{
		Events:  q,
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	}, cfg.FrameInterval)
	defer wheels.CloseAll()

	if !cfg.Production() {
		if tok, err := auth.Issue("dev-teacher", auth.RoleTeacher, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL); err == nil {
			log.Printf("dev teacher token (expires %s): %s", tok.ExpiresAt.Format(time.RFC3339), tok.Value)
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.CORS(cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		dbHealthy := db == nil || db.Healthy(c.Request.Context())
		redisHealthy := cfg.QueueBackend == "memory" || redisClient.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	limiter := httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	v1 := r.Group("/v1", auth.TeacherAuth(cfg.JWTSigningKey, cfg.JWTIssuer), limiter.GinMiddleware())
	handler.New(wheels, rows, cfg.HistoryLimit).Register(v1)

	// no WriteTimeout: event streams stay open
	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	// end event streams first so Shutdown is not held open by them
	wheels.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
