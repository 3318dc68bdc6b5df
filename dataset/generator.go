package dataset

import (
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/bohdan-nd/uni2ts/parquet"
)

// GenFunc produces the records for a set of shards. It is restartable
// and finite; record order is stable within a shard, and callers must
// not assume any order across shards when shards are processed in
// parallel.
type GenFunc func(shards []string) iter.Seq2[Record, error]

// FromParquet returns a generator that derives one Record per source
// row from the fractional row range [offset, end) of each shard, plus
// the schema of the records it yields.
//
// For every selected row, start is the first element of the timestamp
// column's list. Value columns that are null for the row are dropped;
// the remaining columns' sequences are concatenated and reshaped into
// a matrix with one row per non-null column. A row where every value
// column is null yields an empty target matrix rather than an error.
func FromParquet(
	timestampColumn string,
	columns []string,
	offset float64,
	end float64,
	freq string,
) (GenFunc, Features, error) {
	if offset < 0.0 || offset > 1.0 {
		return nil, Features{}, fmt.Errorf(
			"offset must be a fraction between 0 and 1, got %v", offset,
		)
	}
	if end < 0.0 || end > 1.0 {
		return nil, Features{}, fmt.Errorf(
			"end must be a fraction between 0 and 1, got %v", end,
		)
	}

	gen := func(shards []string) iter.Seq2[Record, error] {
		return func(yield func(Record, error) bool) {
			for _, shard := range shards {
				if !yieldShard(shard, timestampColumn, columns, offset, end, freq, yield) {
					return
				}
			}
		}
	}

	return gen, recordFeatures(), nil
}

// yieldShard streams one shard's records into yield. Returns false if
// the consumer stopped early.
func yieldShard(
	shard string,
	timestampColumn string,
	columns []string,
	offset float64,
	end float64,
	freq string,
	yield func(Record, error) bool,
) bool {
	f, err := parquet.Open(shard)
	if err != nil {
		return yield(Record{}, fmt.Errorf("opening shard %q: %w", shard, err))
	}
	defer f.Close()

	offsetIdx, length := sliceRange(f.NumRows(), offset, end)
	if length <= 0 {
		return true // empty slice of this shard
	}

	starts, err := f.FloatListColumn(timestampColumn)
	if err != nil {
		return yield(Record{}, fmt.Errorf("shard %q: %w", shard, err))
	}
	values := make([][][]float32, len(columns))
	for i, col := range columns {
		values[i], err = f.FloatListColumn(col)
		if err != nil {
			return yield(Record{}, fmt.Errorf("shard %q: %w", shard, err))
		}
	}

	stem := shardStem(shard)
	for i := offsetIdx; i < offsetIdx+length; i++ {
		rec, err := buildRecord(stem, i, starts[i], row(values, i), freq)
		if err != nil {
			return yield(Record{}, fmt.Errorf("shard %q row %d: %w", shard, i, err))
		}
		if !yield(rec, nil) {
			return false
		}
	}
	return true
}

// sliceRange maps fractional offsets onto a row range. The selected
// range is [offsetIdx, offsetIdx+length).
func sliceRange(rows int64, offset, end float64) (offsetIdx, length int) {
	offsetIdx = int(float64(rows) * offset)
	length = int(float64(rows)*end) - offsetIdx
	return offsetIdx, length
}

func row(values [][][]float32, i int) [][]float32 {
	out := make([][]float32, len(values))
	for c := range values {
		out[c] = values[c][i]
	}
	return out
}

// buildRecord derives one record from a single source row. cols holds
// the row's value per configured column, nil where the column is null.
func buildRecord(
	stem string,
	rowIdx int,
	start []float32,
	cols [][]float32,
	freq string,
) (Record, error) {
	if len(start) == 0 {
		return Record{}, fmt.Errorf("timestamp column is empty")
	}

	var (
		flat    []float32
		nonNull int
	)
	for _, col := range cols {
		if col == nil {
			continue
		}
		flat = append(flat, col...)
		nonNull++
	}

	target, err := reshape(flat, nonNull)
	if err != nil {
		return Record{}, err
	}

	return Record{
		ItemID: fmt.Sprintf("%s_%d", stem, rowIdx),
		Start:  start[0],
		Freq:   freq,
		Target: target,
	}, nil
}

func shardStem(shard string) string {
	base := filepath.Base(shard)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
