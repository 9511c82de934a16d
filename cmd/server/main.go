package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"DocVault/internal/config"
	"DocVault/internal/extract"
	"DocVault/internal/handlers"
	"DocVault/internal/keys"
	"DocVault/internal/middleware"
	"DocVault/internal/pipeline"
	"DocVault/internal/repo"
	"DocVault/internal/service"
	"DocVault/internal/spool"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	keyService, err := keys.NewService(repo.NewTenantKeyRepository(gormDB), cfg.MasterKey, sugar)
	if err != nil {
		sugar.Fatalw("failed to initialize key service", "error", err)
	}
	if tenants, err := keyService.List(ctx); err != nil {
		sugar.Warnw("cannot list tenant keys", "error", err)
	} else {
		sugar.Infow("tenant keys available", "count", len(tenants), "tenants", tenants)
	}

	spooler, err := newSpooler(ctx, cfg)
	if err != nil {
		sugar.Fatalw("failed to initialize spool", "error", err)
	}

	var extractor extract.Extractor = extract.SniffExtractor{}
	if cfg.TikaURL != "" {
		extractor = extract.NewTikaClient(cfg.TikaURL)
	}
	var indexer extract.Indexer = extract.NopIndexer{}
	if cfg.DocumentServerURL != "" {
		indexer = extract.NewDocumentServerClient(cfg.DocumentServerURL)
	}

	// один пул на процесс: общий лимит задач шифрования и расшифровки
	pool := pipeline.NewPool(pipeline.WorkerCount(cfg.EncryptWorkers))

	fileService := service.NewFileService(service.Deps{
		Files:     repo.NewFileRepository(gormDB),
		Keys:      keyService,
		Pool:      pool,
		Spooler:   spooler,
		Extractor: extractor,
		Indexer:   indexer,
		Logger:    sugar,
	}, service.Options{
		BlockSize:      cfg.BlockSize,
		BatchSize:      cfg.BatchSize,
		DecryptWorkers: cfg.DecryptWorkers,
	})

	h := handlers.NewHandler(fileService, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"DatabaseDSN", cfg.DatabaseDSN,
		"PoolSize", pool.Size(),
		"TikaURL", cfg.TikaURL,
		"DocumentServerURL", cfg.DocumentServerURL,
		"S3Bucket", cfg.S3Bucket,
	)

	srv := &http.Server{Addr: addr, Handler: h.Router}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("Shutdown failed", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("Server failed", "error", err)
	}
}

func newSpooler(ctx context.Context, cfg *config.Config) (spool.Spooler, error) {
	if cfg.S3Bucket == "" {
		return spool.NewFileSpooler(cfg.SpoolDir)
	}
	client, err := spool.NewS3Client(ctx, spool.S3Options{
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3Endpoint,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Prefix:       cfg.S3SpoolPrefix,
	})
	if err != nil {
		return nil, err
	}
	return spool.NewS3Spooler(client, cfg.S3Bucket, cfg.S3SpoolPrefix, cfg.SpoolDir)
}
