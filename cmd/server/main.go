// Package main is the entry point for the NEET Question API server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shimizu-Technology/neet-question-api/internal/config"
	"github.com/Shimizu-Technology/neet-question-api/internal/database"
	"github.com/Shimizu-Technology/neet-question-api/internal/handlers"
	"github.com/Shimizu-Technology/neet-question-api/internal/router"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/extraction"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/jobstatus"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/webhook"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/worker"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 NEET Question API %s starting...", handlers.Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	log.Printf("📋 Config loaded: port=%s, workers=%d, queue=%d, gin_mode=%s", cfg.Port, cfg.WorkerCount, cfg.JobQueueSize, cfg.GinMode)

	os.Setenv("GIN_MODE", cfg.GinMode)

	if err := os.MkdirAll(cfg.UploadDir, 0o700); err != nil {
		log.Fatalf("❌ Failed to create upload dir %s: %v", cfg.UploadDir, err)
	}
	log.Printf("📁 Uploads stored in %s (limit %d bytes)", cfg.UploadDir, cfg.MaxUploadBytes)

	// Step 2: Connect to Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✅ Database connected")

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// Step 3: Create Services
	engine := extraction.NewEngine()
	if cfg.OCRConfigured() {
		engine.SetOCR(extraction.NewOCR(cfg.PdftoppmPath, cfg.TesseractPath, cfg.OCRLanguage))
	}
	if engine.OCREnabled() {
		log.Printf("✅ OCR enabled for scanned pages (language %s)", cfg.OCRLanguage)
	} else {
		log.Println("⚠️  OCR disabled (install tesseract and pdftoppm, or set OCR_ENABLED=true)")
	}

	webhookService := webhook.New(db)
	tracker := jobstatus.New(db, webhookService)

	// Step 4: Create and Start Worker Pool
	wp := worker.NewPool(worker.Config{
		Workers:   cfg.WorkerCount,
		QueueSize: cfg.JobQueueSize,
		UploadDir: cfg.UploadDir,
		Timeout:   cfg.ExtractionTimeout,
	}, db, tracker, engine)
	wp.Start()

	recoverCtx, cancelRecover := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := wp.Recover(recoverCtx, db); err != nil {
		log.Printf("⚠️  Job recovery incomplete: %v", err)
	}
	cancelRecover()

	if cfg.AdminAPIKey != "" {
		log.Println("✅ Admin API key configured (key management protected)")
	} else {
		log.Println("⚠️  No admin API key set (key management is open; set ADMIN_API_KEY in production)")
	}

	// Step 5: Setup HTTP Router
	r := router.Setup(db, wp, engine, tracker, cfg)

	// Step 6: Start the HTTP Server
	// WriteTimeout leaves room for /extractions/sync on large papers.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.ExtractionTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 API docs: http://localhost:%s/api/docs", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 7: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting requests first so nothing submits to a stopped pool.
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	// Running jobs finish; queued ones stay queued and are picked up on restart.
	wp.Stop()
	webhookService.Shutdown()

	log.Println("👋 Server stopped. Goodbye!")
}
