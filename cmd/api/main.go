package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callintel/internal/analysis"
	"callintel/internal/appointments"
	"callintel/internal/audit"
	"callintel/internal/auth"
	"callintel/internal/callcache"
	"callintel/internal/chunkstore"
	"callintel/internal/config"
	"callintel/internal/httpapi"
	"callintel/internal/objectstore"
	"callintel/internal/pipeline"
	"callintel/internal/recordings"
	"callintel/internal/reporting"
	"callintel/internal/sweeper"
	"callintel/internal/transcription"
	"callintel/pkg/logger"
	"callintel/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	objects, err := objectstore.NewGCSStore(rootCtx, objectstore.GCSConfig{
		Bucket:           cfg.Storage.Bucket,
		Prefix:           cfg.Storage.Prefix,
		SignerEmail:      cfg.Storage.SignerEmail,
		SignerPrivateKey: cfg.Storage.SignerPrivateKey,
	})
	if err != nil {
		log.Error("gcs init failed", "err", err)
		os.Exit(1)
	}
	defer objects.Close()

	recs := recordings.NewPostgresStore(db)
	chunks := chunkstore.NewPostgresStore(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	inbox := pipeline.NewRedisInbox(rdb, log)

	queue := analysis.NewRedisQueue(rdb)
	analyzer := analysis.NewHTTPAnalyzer(cfg.Analysis.URL, cfg.Analysis.APIKey, cfg.Analysis.Timeout)
	worker := analysis.NewWorker(queue, recs, analyzer, cfg.Analysis.Workers, 0, log.With("component", "analysis"))

	registry := callcache.NewRegistry(recs, objects, log.With("component", "callcache"))
	pipe := pipeline.New(pipeline.Deps{
		Recordings:   recs,
		Chunks:       chunks,
		Transcriber:  transcription.NewHTTPClient(cfg.Transcription.URL, cfg.Transcription.APIKey, cfg.Transcription.Timeout),
		Guard:        pipeline.NewRedisGuard(rdb, cfg.Pipeline.LeaseTTL, log),
		Notifier:     inbox,
		Cache:        registry,
		Audit:        auditSvc,
		Analysis:     analysis.NewTrigger(queue, cfg.Pipeline.AnalysisDelay),
		PollInterval: cfg.Pipeline.PollInterval,
		PollCeiling:  cfg.Pipeline.PollCeiling,
		Retry: pipeline.RetryPolicy{
			MaxAttempts: cfg.Pipeline.MaxRetries,
			Backoff:     cfg.Pipeline.RetryBackoff,
		},
		Log: log.With("component", "pipeline"),
	})
	registry.SetTranscriber(pipe)

	sweep := sweeper.New(recs, chunks, pipe, cfg.Pipeline.SweepStuckAfter, log.With("component", "sweeper"))
	if err := sweep.Start(cfg.Pipeline.SweepSchedule); err != nil {
		log.Error("sweeper init failed", "err", err)
		os.Exit(1)
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("analysis worker stopped", "err", err)
		}
	}()

	h := httpapi.Handlers{
		Recordings:   recs,
		Chunks:       chunks,
		Objects:      objects,
		Signer:       objects,
		Calls:        registry,
		Pipeline:     pipe,
		Notices:      inbox,
		Appointments: appointments.NewPostgresStore(db),
		Reports:      reporting.NewService(recs),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, auth.RequireBearer(verifier), h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		// Chunk and call uploads stream request bodies.
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	sweep.Stop(shutdownCtx)
	if err := registry.Shutdown(shutdownCtx); err != nil {
		log.Error("call cache shutdown failed", "err", err)
	}
	if err := pipe.Shutdown(shutdownCtx); err != nil {
		log.Error("pipeline shutdown failed", "err", err)
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("analysis worker did not stop in time")
	}
}
