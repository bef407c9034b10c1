package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"asistencia/internal/attendance"
	"asistencia/internal/auth"
	"asistencia/internal/b2"
	"asistencia/internal/cloudinary"
	"asistencia/internal/config"
	"asistencia/internal/geminiclient"
	"asistencia/internal/handler"
	"asistencia/internal/httpmiddleware"
	"asistencia/internal/logging"
	"asistencia/internal/metrics"
	"asistencia/internal/persistence"
	"asistencia/internal/store"
	"asistencia/internal/syncclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	logger.Info("store opened", zap.String("backend", cfg.StoreBackend))

	gw := persistence.New(backend, cfg.BackupIdentifier, logger.Named("persistence"), m)
	snap, err := gw.Load(ctx)
	if err != nil {
		return err
	}

	adapter := syncclient.NewAdapter(syncclient.New(cfg.SyncTimeout), cfg.SyncIdleDelay, logger.Named("sync"), m)
	opts := []attendance.Option{
		attendance.WithDispatcher(adapter),
		attendance.WithLogger(logger.Named("attendance")),
		attendance.WithMetrics(m),
	}
	if cfg.GeminiAPIKey != "" {
		opts = append(opts, attendance.WithRosterParser(
			geminiclient.New(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, cfg.GeminiTimeout)))
	} else {
		logger.Info("roster import disabled (GEMINI_API_KEY not set)")
	}
	svc := attendance.NewService(attendance.State{
		Courses:  snap.Courses,
		Settings: attendance.Settings{TeacherName: snap.TeacherName, SyncURL: snap.SyncURL},
	}, gw, opts...)

	var uploaders []handler.BackupUploader
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		uploaders = append(uploaders, cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder))
		logger.Info("cloudinary backups configured", zap.String("cloud", cfg.CloudinaryCloudName))
	}
	if cfg.B2KeyID != "" && cfg.B2AppKey != "" && cfg.B2Bucket != "" {
		b2Ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		storage, err := b2.Init(b2Ctx, cfg.B2KeyID, cfg.B2AppKey, cfg.B2Bucket, "backups")
		cancel()
		if err != nil {
			logger.Warn("b2 backups unavailable", zap.Error(err))
		} else {
			uploaders = append(uploaders, storage)
			logger.Info("b2 backups configured", zap.String("bucket", cfg.B2Bucket))
		}
	}

	var issuer *auth.Issuer
	if cfg.AuthEnabled {
		issuer = auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.PairingCode, cfg.AccessTTL, cfg.RefreshTTL)
	}

	h, err := handler.New(handler.Deps{
		Service:   svc,
		Gateway:   gw,
		Sync:      adapter,
		Issuer:    issuer,
		Uploaders: uploaders,
		Logger:    logger.Named("http"),
		Metrics:   m,
	})
	if err != nil {
		return err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Disposition"},
		MaxAge:          24 * time.Hour,
	}))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.GET("/healthz", func(c *gin.Context) {
		healthy := true
		if hc, ok := backend.(store.HealthChecker); ok {
			healthy = hc.Healthy(c.Request.Context())
		}
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "store": cfg.StoreBackend, "storeHealthy": healthy, "sync": adapter.Status()})
	})

	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	h.Register(r, limiter.GinMiddleware())

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	// Let in-flight webhook pushes finish before the store closes.
	adapter.Wait()

	logger.Info("server exited")
	return nil
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
