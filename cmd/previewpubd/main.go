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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	blobadapter "github.com/previewpub/previewpub/internal/adapter/driven/blob"
	githubadapter "github.com/previewpub/previewpub/internal/adapter/driven/github"
	"github.com/previewpub/previewpub/internal/adapter/driven/htmltemplate"
	sqliteadapter "github.com/previewpub/previewpub/internal/adapter/driven/sqlite"
	httphandler "github.com/previewpub/previewpub/internal/adapter/driving/http"
	"github.com/previewpub/previewpub/internal/application"
	"github.com/previewpub/previewpub/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"blob_dir", cfg.BlobDir,
		"public_origin", cfg.PublicOrigin,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	claimStore := sqliteadapter.NewClaimRepo(db)
	cursorStore := sqliteadapter.NewCursorRepo(db)

	blobStore, err := blobadapter.NewFSStore(cfg.BlobDir)
	if err != nil {
		return err
	}

	ghClient := githubadapter.NewClient(cfg.GitHubToken, cfg.GitHubAppID, cfg.BotLogin)
	slog.Info("github client created", "bot_login", cfg.BotLogin)

	// 6. Wire application services.
	assembler := application.NewTemplateAssembler(blobStore, htmltemplate.NewRenderer(), cfg.PublicOrigin)
	reporter := application.NewStatusReporter(ghClient, slog.Default())
	publishSvc := application.NewPublishService(
		claimStore,
		cursorStore,
		blobStore,
		assembler,
		reporter,
		cfg.PublicOrigin,
		cfg.Whitelist,
		cfg.MaxPayload,
		slog.Default(),
	)

	// 7. Create HTTP handler and server.
	handler := httphandler.NewHandler(publishSvc, cursorStore, blobStore, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		// Publishes stream multi-megabyte multipart bodies; keep the read
		// timeout generous.
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Log startup complete.
	slog.Info("previewpub started",
		"listen_addr", cfg.ListenAddr,
		"whitelist", cfg.Whitelist,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout to drain in-flight publishes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
