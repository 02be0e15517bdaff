package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/config"
	"github.com/pregnancy-episode-engine/internal/dataset"
	"github.com/pregnancy-episode-engine/internal/domain"
	"github.com/pregnancy-episode-engine/internal/export"
	"github.com/pregnancy-episode-engine/internal/repository"
	"github.com/pregnancy-episode-engine/internal/service"
)

func main() {
	inputPath := flag.String("input", "", "path to the wide-format patient CSV (required)")
	outDir := flag.String("out", "out", "directory for the generated report files")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: episode-pipeline -input <patients.csv> [-out <dir>]")
		os.Exit(2)
	}

	manager, err := config.NewManager()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := manager.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	cfg := manager.GetConfig()

	logger := config.NewLogger(cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reader := dataset.NewReader(logger)
	ds, err := reader.ReadFile(*inputPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read input dataset")
	}

	pipeline := service.NewPipeline(cfg, logger)
	run, err := pipeline.Run(ctx, ds)
	if err != nil {
		logger.WithError(err).Fatal("Pipeline run failed")
	}

	if err := writeReports(*outDir, run, logger); err != nil {
		logger.WithError(err).Fatal("Failed to write reports")
	}

	if cfg.Store.Driver != "none" {
		store, err := openStore(cfg.Store)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open results store")
		}
		defer store.Close()

		if err := store.SaveRun(ctx, run); err != nil {
			logger.WithError(err).Fatal("Failed to persist run")
		}
		logger.WithField("run_id", run.RunID).Info("Run persisted to store")
	}

	logger.WithFields(logrus.Fields{
		"run_id":   run.RunID,
		"patients": run.Stats.Patients,
		"episodes": len(run.Results),
		"out_dir":  *outDir,
	}).Info("Episode pipeline finished")
}

// writeReports emits the summary, component, and cohort statistics tables.
func writeReports(dir string, run *domain.RunResult, logger *logrus.Logger) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	assembler := service.NewAssembler()
	summaries := make([]domain.EpisodeSummaryRow, 0, len(run.Results))
	var components []domain.ComponentRow
	for _, result := range run.Results {
		summaries = append(summaries, assembler.SummaryRow(result))
		components = append(components, assembler.ComponentRows(result)...)
	}

	writer := export.NewWriter(logger)
	if err := writeFile(filepath.Join(dir, "episode_summary.csv"), func(f *os.File) error {
		return writer.WriteSummary(f, summaries)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "episode_components.csv"), func(f *os.File) error {
		return writer.WriteComponents(f, components)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, "cohort_stats.csv"), func(f *os.File) error {
		return writer.WriteCohortStats(f, run.Stats)
	})
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func openStore(cfg domain.StoreConfig) (repository.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return repository.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return repository.NewPostgresStoreFromURL(cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
