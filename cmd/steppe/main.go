package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/STEPPE/internal/config"
	"github.com/copyleftdev/STEPPE/internal/errors"
	"github.com/copyleftdev/STEPPE/internal/logging"
	"github.com/copyleftdev/STEPPE/internal/objective"
	"github.com/copyleftdev/STEPPE/internal/search"
	"github.com/copyleftdev/STEPPE/internal/search/grid"
	"github.com/copyleftdev/STEPPE/internal/search/space"
	"github.com/copyleftdev/STEPPE/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use standard logger as fallback if config loading fails
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize base logger
	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Create a service logger with additional fields
	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": "steppe-grid-search",
		"version": "1.0.0",
		"rank":    cfg.Cluster.Rank,
		"run_id":  cfg.Cluster.RunID,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the search space: the documented default grid, or a YAML
	// definition file when one is configured.
	sp := objective.DefaultSpace()
	if cfg.Search.SpaceFile != "" {
		sp, err = space.LoadFile(cfg.Search.SpaceFile)
		if err != nil {
			serviceLogger.Error("Failed to load search space", map[string]interface{}{
				"file":  cfg.Search.SpaceFile,
				"error": err.Error(),
			})
			os.Exit(1)
		}
	}

	if cfg.Cluster.Rank == 0 {
		serviceLogger.Info("Distributed grid search started", map[string]interface{}{
			"total_processes":          cfg.Cluster.WorldSize,
			"total_combinations":       sp.Size(),
			"combinations_per_process": sp.Size() / cfg.Cluster.WorldSize,
		})
	}

	progressCh := make(chan search.ProgressUpdate, 64)

	engine, err := grid.New(search.Config{
		Objective:   objective.NeuralNetwork(),
		Space:       sp,
		Rank:        cfg.Cluster.Rank,
		WorldSize:   cfg.Cluster.WorldSize,
		BatchSize:   cfg.Search.BatchSize,
		WorkerCount: cfg.Search.WorkerCount,
		ResultDir:   cfg.Search.ResultDir,
		RunID:       cfg.Cluster.RunID,
		Resume:      cfg.Search.Resume,
		Progress:    progressCh,
		Logger:      logging.NewZapLogger(logger),
	})
	if err != nil {
		serviceLogger.Error("Failed to create search engine", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// Optional monitor server: a read-only status surface plus /metrics.
	var metrics *server.Metrics
	var httpServer *http.Server
	if cfg.Monitor.Enabled {
		metrics = server.NewMetrics(prometheus.DefaultRegisterer)

		r := chi.NewRouter()
		r.Use(chimiddleware.RequestID)
		r.Use(chimiddleware.RealIP)
		r.Use(logging.Middleware(logger))
		r.Use(errors.RecoveryMiddleware(logger))
		r.Use(errors.ErrorHandler(logger))
		r.Use(chimiddleware.Timeout(cfg.Monitor.ReadTimeout))

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Handle("/metrics", promhttp.Handler())

		srv := server.NewServer(cfg, serviceLogger, engine, sp)
		srv.RegisterRoutes(r)

		httpServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Monitor.Port),
			Handler:      r,
			ReadTimeout:  cfg.Monitor.ReadTimeout,
			WriteTimeout: cfg.Monitor.WriteTimeout,
			IdleTimeout:  cfg.Monitor.IdleTimeout,
		}

		go func() {
			serviceLogger.Info("Starting monitor server", map[string]interface{}{
				"address": httpServer.Addr,
			})
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serviceLogger.Fatal("Failed to start monitor server", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	// Drain progress updates: observe metrics every batch, log rank-0
	// progress at every 10% step.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		lastDecile := 0
		for update := range progressCh {
			if metrics != nil {
				metrics.Observe(update)
			}

			serviceLogger.Debug("Batch progress", map[string]interface{}{
				"completed":     update.Completed,
				"total":         update.Total,
				"batches":       update.Batches,
				"total_batches": update.TotalBatches,
				"batch_seconds": update.BatchSeconds,
				"skipped":       update.Skipped,
			})

			if cfg.Cluster.Rank == 0 && update.Total > 0 {
				decile := update.Completed * 10 / update.Total
				if decile > lastDecile {
					lastDecile = decile
					serviceLogger.Info("Search progress", map[string]interface{}{
						"percent":    decile * 10,
						"completed":  update.Completed,
						"total":      update.Total,
						"best_value": update.BestValue,
					})
				}
			}
		}
	}()

	result, runErr := engine.Run(ctx)
	close(progressCh)
	<-drained

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Monitor.ShutdownTimeout)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			serviceLogger.Error("Monitor server forced to shutdown", map[string]interface{}{
				"error": err.Error(),
			})
		}
		cancel()
	}

	if runErr != nil {
		serviceLogger.Error(fmt.Sprintf("ERROR in process %d", cfg.Cluster.Rank), map[string]interface{}{
			"error": runErr.Error(),
		})
		os.Exit(1)
	}

	if cfg.Cluster.Rank == 0 {
		fields := map[string]interface{}{
			"elapsed_seconds": fmt.Sprintf("%.1f", result.Elapsed.Seconds()),
			"result_dir":      result.ResultDir,
			"evaluations":     result.Evaluations,
		}
		if result.Best != nil {
			fields["best_value"] = result.Best.Value
			fields["best_params"] = result.Best.Params
			if acc, ok := result.Best.Metrics["predicted_accuracy"]; ok {
				fields["predicted_accuracy"] = acc
			}
		}
		serviceLogger.Info("Distributed grid search completed", fields)
	}
}
