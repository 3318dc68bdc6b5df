// Package parquet wraps the xitongsys parquet reader with the small
// column-oriented surface the dataset builder needs: row counts and
// list-valued float columns with per-row null detection.
package parquet

import (
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
)

// File is an open columnar source file.
type File struct {
	path string
	fr   source.ParquetFile
	pr   *reader.ParquetReader
}

// Open opens the parquet file at path for column reads.
func Open(path string) (*File, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening parquet file %q: %w", path, err)
	}
	pr, err := reader.NewParquetColumnReader(fr, 1)
	if err != nil {
		fr.Close()
		return nil, fmt.Errorf("creating parquet reader for %q: %w", path, err)
	}
	return &File{path: path, fr: fr, pr: pr}, nil
}

// NumRows returns the total number of rows in the file.
func (f *File) NumRows() int64 {
	return f.pr.GetNumRows()
}

// Close releases the underlying reader and file handle.
func (f *File) Close() error {
	f.pr.ReadStop()
	if err := f.fr.Close(); err != nil {
		return fmt.Errorf("closing parquet file %q: %w", f.path, err)
	}
	return nil
}

// FloatListColumn reads the named list-valued column and returns one
// slice per row. A row where the column is null (or carries no
// elements) comes back as a nil slice. Numeric element types are
// converted to float32.
func (f *File) FloatListColumn(name string) ([][]float32, error) {
	idx, inPath, err := f.columnIndex(name)
	if err != nil {
		return nil, err
	}

	maxDL, err := f.pr.SchemaHandler.MaxDefinitionLevel(common.StrToPath(inPath))
	if err != nil {
		return nil, fmt.Errorf("resolving definition level for column %q: %w", name, err)
	}

	total := f.leafValueCount(idx)
	vals, rls, dls, err := f.pr.ReadColumnByIndex(int64(idx), total)
	if err != nil {
		return nil, fmt.Errorf("reading column %q from %q: %w", name, f.path, err)
	}

	rows, err := assembleRows(vals, rls, dls, maxDL)
	if err != nil {
		return nil, fmt.Errorf("assembling column %q from %q: %w", name, f.path, err)
	}
	if int64(len(rows)) != f.NumRows() {
		return nil, fmt.Errorf(
			"column %q in %q has %d rows, file has %d",
			name, f.path, len(rows), f.NumRows(),
		)
	}
	return rows, nil
}

// columnIndex locates the leaf column whose top-level field name
// matches the external (source) column name.
func (f *File) columnIndex(name string) (int, string, error) {
	sh := f.pr.SchemaHandler
	for i, inPath := range sh.ValueColumns {
		exPath, ok := sh.InPathToExPath[inPath]
		if !ok {
			continue
		}
		segs := common.StrToPath(exPath)
		if len(segs) >= 2 && segs[1] == name {
			return i, inPath, nil
		}
	}
	// Polars and pandas keep source names verbatim, but fall back to a
	// case-insensitive match for files written by Go struct tags.
	for i, inPath := range sh.ValueColumns {
		exPath, ok := sh.InPathToExPath[inPath]
		if !ok {
			continue
		}
		segs := common.StrToPath(exPath)
		if len(segs) >= 2 && strings.EqualFold(segs[1], name) {
			return i, inPath, nil
		}
	}
	return 0, "", fmt.Errorf("column %q not found in %q", name, f.path)
}

// leafValueCount sums the value counts (nulls included) for the leaf
// column across all row groups, which is exactly how many level
// entries a full column read yields.
func (f *File) leafValueCount(idx int) int64 {
	var total int64
	for _, rg := range f.pr.Footer.RowGroups {
		if idx < len(rg.Columns) {
			total += rg.Columns[idx].MetaData.NumValues
		}
	}
	return total
}

// assembleRows folds a flat (values, repetition levels, definition
// levels) column read back into per-row lists. A repetition level of
// zero starts a new row; a definition level below maxDL means the
// slot holds no value. Rows that end up with no values are nil.
func assembleRows(vals []interface{}, rls, dls []int32, maxDL int32) ([][]float32, error) {
	if len(vals) != len(rls) || len(vals) != len(dls) {
		return nil, fmt.Errorf(
			"level length mismatch: %d values, %d repetition, %d definition",
			len(vals), len(rls), len(dls),
		)
	}

	var rows [][]float32
	for i := range vals {
		if rls[i] == 0 {
			rows = append(rows, nil)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("value %d has nonzero repetition level before any row", i)
		}
		if dls[i] < maxDL {
			continue // null column or empty list for this row
		}
		v, err := toFloat32(vals[i])
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		last := len(rows) - 1
		rows[last] = append(rows[last], v)
	}
	return rows, nil
}

func toFloat32(v interface{}) (float32, error) {
	switch x := v.(type) {
	case float32:
		return x, nil
	case float64:
		return float32(x), nil
	case int32:
		return float32(x), nil
	case int64:
		return float32(x), nil
	case nil:
		return 0, fmt.Errorf("unexpected null at max definition level")
	default:
		return 0, fmt.Errorf("unsupported element type %T", v)
	}
}
