// Command databuilder converts a folder of columnar time-series files
// into persisted training and evaluation datasets.
//
// Usage:
//
//	databuilder [flags] <dataset_name> <folder_path>
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/bohdan-nd/uni2ts/dataset"
)

func main() {
	flag.Parse()

	logger := newLogger()

	rctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var exitCode int
	if err := run(rctx, logger); err != nil {
		logger.Error("encountered top-level error", slog.String("error", err.Error()))
		exitCode = 1
	}

	os.Exit(exitCode)
}

func run(ctx context.Context, logger *slog.Logger) error {
	if flag.NArg() != 2 {
		flag.Usage()
		return fmt.Errorf("expected positional arguments <dataset_name> <folder_path>, got %d", flag.NArg())
	}
	var (
		datasetName = flag.Arg(0)
		folderPath  = flag.Arg(1)
	)

	var missingRequiredFlags []string
	if *timestempColumn == "" {
		missingRequiredFlags = append(missingRequiredFlags, "timestemp_column")
	}
	if len(columns) == 0 {
		missingRequiredFlags = append(missingRequiredFlags, "columns")
	}
	if len(missingRequiredFlags) > 0 {
		logger.Error(
			"missing required flags",
			slog.Any("flags", missingRequiredFlags),
		)
		flag.Usage()
		return nil
	}

	registry, err := maybeConnectToMySQL(ctx)
	if err != nil {
		return fmt.Errorf("connecting to MySQL: %w", err)
	}
	if registry != nil {
		defer registry.Close()
		logger.Info("connected to mysql db, will record build runs there")
	}

	cfg := dataset.BuildConfig{
		DatasetName:     datasetName,
		FolderPath:      folderPath,
		TimestampColumn: *timestempColumn,
		Columns:         []string(columns),
		SplitRatio:      *splitRatio,
		Freq:            *freq,
		NumWorkers:      *workers,
		StoragePath:     *storagePath,
	}

	start := time.Now()
	if err := dataset.BuildTrainEvalDatasets(ctx, logger, cfg); err != nil {
		return fmt.Errorf("building datasets: %w", err)
	}
	took := time.Since(start)

	logger.Info(
		"build complete",
		slog.String("dataset", datasetName),
		slog.Duration("took", took),
	)

	if registry != nil {
		if err := registry.recordBuild(ctx, cfg, took); err != nil {
			return fmt.Errorf("recording build run: %w", err)
		}
		logger.Info("recorded build run", slog.String("dataset", datasetName))
	}

	return nil
}
