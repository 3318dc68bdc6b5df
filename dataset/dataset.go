package dataset

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SampleTimeSeries selects how a training dataset remaps requested
// indices onto records.
type SampleTimeSeries int

const (
	// SampleNone reads records by their requested index.
	SampleNone SampleTimeSeries = iota
	// SampleUniform draws a record uniformly at random per access.
	SampleUniform
	// SampleProportional draws a record with probability proportional
	// to the number of values in its target matrix, so longer series
	// are visited more often.
	SampleProportional
)

// TimeSeriesDataset is the trainable view over a persisted dataset:
// weighted length, optional stochastic index remapping, and a
// transformation applied per access.
type TimeSeriesDataset struct {
	indexer   *Indexer
	transform Transformation
	weight    float64
	sampler   *recordSampler
}

// NewTimeSeriesDataset wraps indexer with transform. weight scales
// the reported length; sample selects the index remapping strategy.
func NewTimeSeriesDataset(
	indexer *Indexer,
	transform Transformation,
	weight float64,
	sample SampleTimeSeries,
) (*TimeSeriesDataset, error) {
	if weight <= 0 {
		return nil, fmt.Errorf("dataset weight must be positive, got %v", weight)
	}
	ds := &TimeSeriesDataset{
		indexer:   indexer,
		transform: transform,
		weight:    weight,
	}
	switch sample {
	case SampleNone:
	case SampleUniform:
		weights := make([]float64, indexer.Len())
		for i := range weights {
			weights[i] = 1
		}
		ds.sampler = newRecordSampler(weights)
	case SampleProportional:
		weights := make([]float64, indexer.Len())
		for i := range weights {
			weights[i] = float64(indexer.targetSize(i))
		}
		ds.sampler = newRecordSampler(weights)
	default:
		return nil, fmt.Errorf("unknown sampling strategy %d", sample)
	}
	return ds, nil
}

// Len is the number of samples one epoch exposes: the record count
// scaled by the dataset weight.
func (ds *TimeSeriesDataset) Len() int {
	return int(float64(ds.indexer.Len()) * ds.weight)
}

func (ds *TimeSeriesDataset) Get(i int) (Sample, error) {
	if i < 0 || i >= ds.Len() {
		return Sample{}, fmt.Errorf("sample index %d out of range [0, %d)", i, ds.Len())
	}
	idx := i % ds.indexer.Len()
	if ds.sampler != nil {
		var err error
		idx, err = ds.sampler.next()
		if err != nil {
			return Sample{}, err
		}
	}
	rec, err := ds.indexer.Get(idx)
	if err != nil {
		return Sample{}, err
	}
	return ds.transform.Apply(Sample{Record: rec})
}

// EvalDataset is the evaluable view: every record appears once per
// forecast window, and the window index rides along on the sample for
// the evaluation transform to slice on.
type EvalDataset struct {
	windows   int
	indexer   *Indexer
	transform Transformation
}

func NewEvalDataset(windows int, indexer *Indexer, transform Transformation) (*EvalDataset, error) {
	if windows < 0 {
		return nil, fmt.Errorf("window count must be non-negative, got %d", windows)
	}
	return &EvalDataset{windows: windows, indexer: indexer, transform: transform}, nil
}

func (ds *EvalDataset) Len() int {
	return ds.windows * ds.indexer.Len()
}

func (ds *EvalDataset) Get(i int) (Sample, error) {
	if i < 0 || i >= ds.Len() {
		return Sample{}, fmt.Errorf("sample index %d out of range [0, %d)", i, ds.Len())
	}
	var (
		n      = ds.indexer.Len()
		window = i / n
		item   = i % n
	)
	rec, err := ds.indexer.Get(item)
	if err != nil {
		return Sample{}, err
	}
	return ds.transform.Apply(Sample{Record: rec, Window: window})
}

// recordSampler draws record indices with replacement according to a
// fixed weight vector. sampleuv.Weighted samples without replacement,
// so the drawn weight is restored after every take.
type recordSampler struct {
	weights []float64
	w       sampleuv.Weighted
}

func newRecordSampler(weights []float64) *recordSampler {
	return &recordSampler{
		weights: weights,
		w:       sampleuv.NewWeighted(weights, rand.NewSource(uint64(len(weights)))),
	}
}

func (rs *recordSampler) next() (int, error) {
	idx, ok := rs.w.Take()
	if !ok {
		return 0, fmt.Errorf("sampler exhausted: all record weights are zero")
	}
	rs.w.Reweight(idx, rs.weights[idx])
	return idx, nil
}
