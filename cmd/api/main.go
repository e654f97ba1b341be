package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/cardcycle/internal/api/handlers"
	"github.com/dvloznov/cardcycle/internal/api/middleware"
	"github.com/dvloznov/cardcycle/internal/config"
	"github.com/dvloznov/cardcycle/internal/extraction"
	"github.com/dvloznov/cardcycle/internal/gcsstore"
	infraBQ "github.com/dvloznov/cardcycle/internal/infra/bigquery"
	"github.com/dvloznov/cardcycle/internal/jobs"
	"github.com/dvloznov/cardcycle/internal/jobs/inmemory"
	"github.com/dvloznov/cardcycle/internal/logger"
	"github.com/dvloznov/cardcycle/internal/pipeline"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.ProjectID == "" {
		log.Fatal().Msg("No GCP project configured (set GOOGLE_CLOUD_PROJECT or the config file)")
	}
	if cfg.Bucket == "" {
		log.Fatal().Msg("No GCS bucket configured (set GCS_BUCKET or the config file)")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	ctx := context.Background()

	store, err := infraBQ.NewStore(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	files, err := gcsstore.New(ctx, cfg.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS store")
	}
	defer files.Close()

	parser, err := extraction.NewGeminiParserFromEnv(ctx, cfg.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini parser")
	}

	svc := pipeline.New(store, files, parser, cfg)

	// Job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		importJob, ok := job.(*jobs.ImportStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		ctx = logger.WithContext(ctx, log)
		log.Info().
			Str("job_id", importJob.JobID).
			Str("statement_id", importJob.StatementID).
			Str("gcs_uri", importJob.GCSURI).
			Msg("Processing import job")

		contentType := importJob.ContentType
		if contentType == "" {
			contentType = "application/pdf"
		}
		_, err := svc.ImportFromGCS(ctx, importJob.StatementID, importJob.BankID, importJob.GCSURI, contentType)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", importJob.JobID).
				Str("statement_id", importJob.StatementID).
				Msg("Import failed")
			return err
		}

		log.Info().Str("job_id", importJob.JobID).Msg("Import completed")
		return nil
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Handlers
	statementsHandler := handlers.NewStatementsHandler(svc, jobQueue, jobStore, log)
	dashboardHandler := handlers.NewDashboardHandler(svc, log)
	settingsHandler := handlers.NewSettingsHandler(store, svc, log)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/statements", statementsHandler.Upload)
	mux.HandleFunc("GET /api/jobs", statementsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", statementsHandler.GetJob)

	mux.HandleFunc("GET /api/dashboard", dashboardHandler.Dashboard)
	mux.HandleFunc("GET /api/periods", dashboardHandler.Periods)
	mux.HandleFunc("GET /api/balance", dashboardHandler.Balance)
	mux.HandleFunc("GET /api/balance/forecast", dashboardHandler.BalanceForecast)
	mux.HandleFunc("POST /api/refresh", dashboardHandler.Refresh)

	mux.HandleFunc("GET /api/banks", settingsHandler.ListBanks)
	mux.HandleFunc("PUT /api/banks", settingsHandler.PutBanks)
	mux.HandleFunc("POST /api/banks/analyze", settingsHandler.AnalyzeBank)
	mux.HandleFunc("POST /api/bills/parse", settingsHandler.ParseBill)
	mux.HandleFunc("GET /api/fixed-expenses", settingsHandler.ListFixedExpenses)
	mux.HandleFunc("PUT /api/fixed-expenses", settingsHandler.PutFixedExpenses)
	mux.HandleFunc("GET /api/income", settingsHandler.GetIncome)
	mux.HandleFunc("PUT /api/income", settingsHandler.PutIncome)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Job queue shutdown error")
	}

	log.Info().Msg("Stopped")
}
