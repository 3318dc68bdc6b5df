// Package dataset builds windowed, shard-aware time-series datasets
// out of directories of columnar files, persists them, and wraps the
// persisted records behind trainable and evaluable sequence views.
package dataset

import "fmt"

// Record is one derived multivariate time-series observation: one
// record per selected source row.
type Record struct {
	ItemID string
	Start  float32
	Freq   string
	// Target holds one row per non-null value column of the source
	// row. Rows with no non-null columns carry an empty matrix, so
	// record shapes may differ within one dataset.
	Target [][]float32
}

// Features describes the output schema of a generator, persisted next
// to the records so a loaded dataset is self-describing.
type Features struct {
	Fields []Field `json:"fields"`
}

// Field is a single named feature and its type label.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func recordFeatures() Features {
	return Features{
		Fields: []Field{
			{Name: "item_id", Type: "string"},
			{Name: "start", Type: "float32"},
			{Name: "freq", Type: "string"},
			{Name: "target", Type: "list<list<float32>>"},
		},
	}
}

// Sample is the unit handed to transformations. Window is zero for
// training datasets; evaluation datasets set it to the forecast
// window the sample belongs to.
type Sample struct {
	Record
	Window int
}

// Transformation turns a raw persisted sample into whatever the
// downstream training or evaluation loop consumes.
type Transformation interface {
	Apply(Sample) (Sample, error)
}

// TransformFunc adapts a plain function to the Transformation
// interface.
type TransformFunc func(Sample) (Sample, error)

func (f TransformFunc) Apply(s Sample) (Sample, error) { return f(s) }

// Identity returns samples unchanged. Useful as a placeholder entry
// in a transform map.
func Identity() Transformation {
	return TransformFunc(func(s Sample) (Sample, error) { return s, nil })
}

// reshape folds a flat sequence into a matrix with the given row
// count and an inferred column count. A zero row count yields an
// empty matrix; it is never a division by zero.
func reshape(flat []float32, rows int) ([][]float32, error) {
	if rows == 0 {
		if len(flat) != 0 {
			return nil, fmt.Errorf("cannot reshape %d values into 0 rows", len(flat))
		}
		return [][]float32{}, nil
	}
	if len(flat)%rows != 0 {
		return nil, fmt.Errorf("cannot reshape %d values into %d even rows", len(flat), rows)
	}
	cols := len(flat) / rows
	out := make([][]float32, rows)
	for i := range out {
		out[i] = flat[i*cols : (i+1)*cols]
	}
	return out, nil
}

func flatten(target [][]float32) ([]float32, int) {
	var n int
	for _, row := range target {
		n += len(row)
	}
	flat := make([]float32, 0, n)
	for _, row := range target {
		flat = append(flat, row...)
	}
	return flat, len(target)
}
