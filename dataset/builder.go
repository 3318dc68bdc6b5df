package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

const (
	// shardSuffix is the one recognized columnar-storage suffix.
	shardSuffix = ".parquet"

	// EvalSuffix is appended to a dataset name to form its companion
	// evaluation split.
	EvalSuffix = "_eval"
)

// SimpleDatasetBuilder materializes a training dataset from a folder
// of parquet shards and loads it back as a TimeSeriesDataset.
type SimpleDatasetBuilder struct {
	Dataset          string
	TimestampColumn  string
	Columns          []string
	Weight           float64
	SampleTimeSeries SampleTimeSeries
	StoragePath      string
}

// Windowing holds the evaluation-only parameters the eval transform
// needs to slice records into forecast windows.
type Windowing struct {
	Offset           int
	Windows          int
	Distance         int
	PredictionLength int
	ContextLength    int
	PatchSize        int
}

// SimpleEvalDatasetBuilder is the evaluation-split counterpart. It
// builds datasets identically; Windowing may stay nil until the
// caller supplies it before LoadDataset.
type SimpleEvalDatasetBuilder struct {
	Dataset         string
	TimestampColumn string
	Columns         []string
	Windowing       *Windowing
	StoragePath     string
}

// BuildDataset materializes records from every parquet shard directly
// inside folderPath into persistent storage. The side effect is the
// on-disk dataset directory; there is no return value beyond the
// error.
func (b *SimpleDatasetBuilder) BuildDataset(
	ctx context.Context,
	logger *slog.Logger,
	folderPath string,
	offset float64,
	end float64,
	freq string,
	numWorkers int,
) error {
	return buildDataset(
		ctx, logger,
		b.Dataset, b.storagePath(), b.TimestampColumn, b.Columns,
		folderPath, offset, end, freq, numWorkers,
	)
}

// LoadDataset opens the persisted dataset and wraps it with the
// transform registered under the builder's dataset name.
func (b *SimpleDatasetBuilder) LoadDataset(
	transformMap map[string]func() Transformation,
) (*TimeSeriesDataset, error) {
	factory, ok := transformMap[b.Dataset]
	if !ok {
		return nil, fmt.Errorf("no transform registered for dataset %q", b.Dataset)
	}
	indexer, err := OpenIndexer(filepath.Join(b.storagePath(), b.Dataset))
	if err != nil {
		return nil, fmt.Errorf("opening dataset %q: %w", b.Dataset, err)
	}
	weight := b.Weight
	if weight == 0 {
		weight = 1.0
	}
	return NewTimeSeriesDataset(indexer, factory(), weight, b.SampleTimeSeries)
}

func (b *SimpleDatasetBuilder) storagePath() string {
	if b.StoragePath != "" {
		return b.StoragePath
	}
	return DefaultStoragePath()
}

// BuildDataset behaves exactly like the training variant; the split
// only differs in what LoadDataset hands the transform factory.
func (b *SimpleEvalDatasetBuilder) BuildDataset(
	ctx context.Context,
	logger *slog.Logger,
	folderPath string,
	offset float64,
	end float64,
	freq string,
	numWorkers int,
) error {
	return buildDataset(
		ctx, logger,
		b.Dataset, b.storagePath(), b.TimestampColumn, b.Columns,
		folderPath, offset, end, freq, numWorkers,
	)
}

// LoadDataset opens the persisted dataset and wraps it with the
// windowed transform registered under the builder's dataset name. The
// windowing parameters must be set by this point.
func (b *SimpleEvalDatasetBuilder) LoadDataset(
	transformMap map[string]func(Windowing) Transformation,
) (*EvalDataset, error) {
	factory, ok := transformMap[b.Dataset]
	if !ok {
		return nil, fmt.Errorf("no transform registered for dataset %q", b.Dataset)
	}
	if b.Windowing == nil {
		return nil, fmt.Errorf(
			"dataset %q has no windowing parameters; set them before loading an eval view",
			b.Dataset,
		)
	}
	indexer, err := OpenIndexer(filepath.Join(b.storagePath(), b.Dataset))
	if err != nil {
		return nil, fmt.Errorf("opening dataset %q: %w", b.Dataset, err)
	}
	return NewEvalDataset(b.Windowing.Windows, indexer, factory(*b.Windowing))
}

func (b *SimpleEvalDatasetBuilder) storagePath() string {
	if b.StoragePath != "" {
		return b.StoragePath
	}
	return DefaultStoragePath()
}

// buildDataset is the shared materialization path. Shards are
// processed in parallel; each worker generates one shard's records
// and appends them to the shared writer as a single batch.
func buildDataset(
	ctx context.Context,
	logger *slog.Logger,
	name string,
	storagePath string,
	timestampColumn string,
	columns []string,
	folderPath string,
	offset float64,
	end float64,
	freq string,
	numWorkers int,
) error {
	gen, features, err := FromParquet(timestampColumn, columns, offset, end, freq)
	if err != nil {
		return fmt.Errorf("constructing generator for dataset %q: %w", name, err)
	}

	shards, err := listShards(folderPath)
	if err != nil {
		return err
	}
	if len(shards) == 0 {
		return fmt.Errorf("no %s files in %q, refusing to build an empty dataset", shardSuffix, folderPath)
	}

	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	w, err := newDatasetWriter(filepath.Join(storagePath, name))
	if err != nil {
		return fmt.Errorf("preparing storage for dataset %q: %w", name, err)
	}

	start := time.Now()
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(numWorkers)
	bar := progressbar.Default(int64(len(shards)), "materializing shards")
	for _, shard := range shards {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var batch []Record
			for rec, err := range gen([]string{shard}) {
				if err != nil {
					return err
				}
				batch = append(batch, rec)
			}
			if err := w.appendBatch(batch); err != nil {
				return fmt.Errorf("appending shard %q: %w", shard, err)
			}
			bar.Add(1)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		w.abort()
		return fmt.Errorf("materializing dataset %q: %w", name, err)
	}

	info, err := w.finish(name, freq, features)
	if err != nil {
		return fmt.Errorf("finalizing dataset %q: %w", name, err)
	}

	logger.Info(
		"built dataset",
		slog.String("dataset", name),
		slog.String("build_id", info.BuildID),
		slog.Int64("records", info.NumRecords),
		slog.Int("shards", info.NumShards),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// listShards returns the parquet files directly inside folderPath,
// non-recursive.
func listShards(folderPath string) ([]string, error) {
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return nil, fmt.Errorf("reading source directory %q: %w", folderPath, err)
	}
	var shards []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != shardSuffix {
			continue
		}
		shards = append(shards, filepath.Join(folderPath, entry.Name()))
	}
	return shards, nil
}

// BuildConfig drives one build invocation: a training split plus,
// unless the split ratio is exactly 1.0, a companion eval split over
// the complementary row range.
type BuildConfig struct {
	DatasetName     string
	FolderPath      string
	TimestampColumn string
	Columns         []string
	SplitRatio      float64
	Freq            string
	NumWorkers      int
	StoragePath     string
}

// BuildTrainEvalDatasets builds the training split over the fraction
// [0, SplitRatio) and, when SplitRatio < 1.0, the eval split named
// "<dataset>_eval" over [SplitRatio, 1.0). The eval split is built
// with windowing parameters unset; callers supply them before loading
// it as an evaluation view.
func BuildTrainEvalDatasets(ctx context.Context, logger *slog.Logger, cfg BuildConfig) error {
	builder := &SimpleDatasetBuilder{
		Dataset:         cfg.DatasetName,
		TimestampColumn: cfg.TimestampColumn,
		Columns:         cfg.Columns,
		StoragePath:     cfg.StoragePath,
	}
	if err := builder.BuildDataset(
		ctx, logger, cfg.FolderPath, 0.0, cfg.SplitRatio, cfg.Freq, cfg.NumWorkers,
	); err != nil {
		return fmt.Errorf("building training split: %w", err)
	}

	if cfg.SplitRatio == 1.0 {
		return nil
	}

	evalBuilder := &SimpleEvalDatasetBuilder{
		Dataset:         cfg.DatasetName + EvalSuffix,
		TimestampColumn: cfg.TimestampColumn,
		Columns:         cfg.Columns,
		Windowing:       nil,
		StoragePath:     cfg.StoragePath,
	}
	if err := evalBuilder.BuildDataset(
		ctx, logger, cfg.FolderPath, cfg.SplitRatio, 1.0, cfg.Freq, cfg.NumWorkers,
	); err != nil {
		return fmt.Errorf("building eval split: %w", err)
	}
	return nil
}
