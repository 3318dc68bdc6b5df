package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// A persisted dataset is a directory under the storage root holding a
// single parquet data file plus a JSON info file. The ragged target
// matrix is stored flattened alongside its row count and reshaped on
// load.

const (
	dataFileName = "data.parquet"
	infoFileName = "dataset_info.json"
)

// DefaultStoragePath returns the storage root for persisted datasets.
// Configured via CUSTOM_DATA_PATH, with a temp-dir fallback.
func DefaultStoragePath() string {
	if dir := os.Getenv("CUSTOM_DATA_PATH"); dir != "" {
		return dir
	}
	return filepath.Join(os.TempDir(), "uni2ts")
}

// Info is the sidecar metadata written next to the data file.
type Info struct {
	DatasetName string   `json:"dataset_name"`
	BuildID     string   `json:"build_id"`
	NumRecords  int64    `json:"num_records"`
	NumShards   int      `json:"num_shards"`
	Freq        string   `json:"freq"`
	Features    Features `json:"features"`
	CreatedAt   string   `json:"created_at"`
}

type storedRecord struct {
	ItemID     string    `parquet:"name=item_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Start      float32   `parquet:"name=start, type=FLOAT"`
	Freq       string    `parquet:"name=freq, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Target     []float32 `parquet:"name=target, type=LIST, valuetype=FLOAT"`
	TargetRows int32     `parquet:"name=target_rows, type=INT32"`
}

// datasetWriter is the shared output sink for a build. Workers append
// whole shard batches under a mutex, so records from one shard stay
// contiguous and ordered while shards interleave freely.
type datasetWriter struct {
	dir string

	mu      sync.Mutex
	fw      *writer.ParquetWriter
	ff      source.ParquetFile
	records int64
	shards  int
}

func newDatasetWriter(dir string) (*datasetWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating dataset directory %q: %w", dir, err)
	}
	ff, err := local.NewLocalFileWriter(filepath.Join(dir, dataFileName))
	if err != nil {
		return nil, fmt.Errorf("creating dataset data file: %w", err)
	}
	fw, err := writer.NewParquetWriter(ff, new(storedRecord), 1)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("creating dataset writer: %w", err)
	}
	fw.RowGroupSize = 32 * 1024 * 1024
	fw.CompressionType = parquet.CompressionCodec_SNAPPY
	return &datasetWriter{dir: dir, fw: fw, ff: ff}, nil
}

// appendBatch writes one shard's records to the data file.
func (w *datasetWriter) appendBatch(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, rec := range records {
		flat, rows := flatten(rec.Target)
		sr := storedRecord{
			ItemID:     rec.ItemID,
			Start:      rec.Start,
			Freq:       rec.Freq,
			Target:     flat,
			TargetRows: int32(rows),
		}
		if err := w.fw.Write(sr); err != nil {
			return fmt.Errorf("writing record %q: %w", rec.ItemID, err)
		}
		w.records++
	}
	w.shards++
	return nil
}

// finish flushes the data file and writes the info sidecar.
func (w *datasetWriter) finish(name, freq string, features Features) (Info, error) {
	if err := w.fw.WriteStop(); err != nil {
		return Info{}, fmt.Errorf("finalizing dataset data file: %w", err)
	}
	if err := w.ff.Close(); err != nil {
		return Info{}, fmt.Errorf("closing dataset data file: %w", err)
	}

	info := Info{
		DatasetName: name,
		BuildID:     uuid.NewString(),
		NumRecords:  w.records,
		NumShards:   w.shards,
		Freq:        freq,
		Features:    features,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	marshaled, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return Info{}, fmt.Errorf("marshaling dataset info: %w", err)
	}
	path := filepath.Join(w.dir, infoFileName)
	if err := os.WriteFile(path, marshaled, 0644); err != nil {
		return Info{}, fmt.Errorf("writing dataset info %q: %w", path, err)
	}
	return info, nil
}

// abort closes the data file without writing the info sidecar. Used
// when a worker failure aborts the build partway.
func (w *datasetWriter) abort() {
	w.fw.WriteStop()
	w.ff.Close()
}

// ReadInfo reads only the info sidecar of a persisted dataset.
func ReadInfo(dir string) (Info, error) {
	infoBytes, err := os.ReadFile(filepath.Join(dir, infoFileName))
	if err != nil {
		return Info{}, fmt.Errorf("reading dataset info in %q: %w", dir, err)
	}
	var info Info
	if err := json.Unmarshal(infoBytes, &info); err != nil {
		return Info{}, fmt.Errorf("decoding dataset info in %q: %w", dir, err)
	}
	return info, nil
}

// openDataset reads a persisted dataset back into memory.
func openDataset(dir string) ([]Record, Info, error) {
	info, err := ReadInfo(dir)
	if err != nil {
		return nil, Info{}, err
	}

	ff, err := local.NewLocalFileReader(filepath.Join(dir, dataFileName))
	if err != nil {
		return nil, Info{}, fmt.Errorf("opening dataset data file in %q: %w", dir, err)
	}
	defer ff.Close()
	pr, err := reader.NewParquetReader(ff, new(storedRecord), 1)
	if err != nil {
		return nil, Info{}, fmt.Errorf("creating dataset reader for %q: %w", dir, err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	stored := make([]storedRecord, num)
	if err := pr.Read(&stored); err != nil {
		return nil, Info{}, fmt.Errorf("reading dataset records in %q: %w", dir, err)
	}

	records := make([]Record, num)
	for i, sr := range stored {
		target, err := reshape(sr.Target, int(sr.TargetRows))
		if err != nil {
			return nil, Info{}, fmt.Errorf("record %q in %q: %w", sr.ItemID, dir, err)
		}
		records[i] = Record{
			ItemID: sr.ItemID,
			Start:  sr.Start,
			Freq:   sr.Freq,
			Target: target,
		}
	}
	return records, info, nil
}
