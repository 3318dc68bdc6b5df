package parquet

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
)

func TestAssembleRows(t *testing.T) {
	// Typical layout for an optional list of floats: maxDL 3, a null
	// row encoded as a single (rl=0, dl=0) entry.
	tests := []struct {
		name  string
		vals  []interface{}
		rls   []int32
		dls   []int32
		maxDL int32
		want  [][]float32
	}{
		{
			name:  "single row",
			vals:  []interface{}{float32(1), float32(2), float32(3)},
			rls:   []int32{0, 1, 1},
			dls:   []int32{3, 3, 3},
			maxDL: 3,
			want:  [][]float32{{1, 2, 3}},
		},
		{
			name:  "null row between value rows",
			vals:  []interface{}{float32(1), float32(2), nil, float32(5)},
			rls:   []int32{0, 1, 0, 0},
			dls:   []int32{3, 3, 0, 3},
			maxDL: 3,
			want:  [][]float32{{1, 2}, nil, {5}},
		},
		{
			name:  "empty list counts as null",
			vals:  []interface{}{nil},
			rls:   []int32{0},
			dls:   []int32{1},
			maxDL: 3,
			want:  [][]float32{nil},
		},
		{
			name:  "float64 elements",
			vals:  []interface{}{float64(1.5), float64(2.5)},
			rls:   []int32{0, 0},
			dls:   []int32{3, 3},
			maxDL: 3,
			want:  [][]float32{{1.5}, {2.5}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := assembleRows(tt.vals, tt.rls, tt.dls, tt.maxDL)
			if err != nil {
				t.Fatalf("assembleRows failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("assembleRows = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssembleRowsLengthMismatch(t *testing.T) {
	_, err := assembleRows([]interface{}{float32(1)}, []int32{0, 0}, []int32{3}, 3)
	if err == nil {
		t.Fatal("expected error for mismatched level lengths")
	}
}

type testRow struct {
	Ts   []float32 `parquet:"name=ts, type=LIST, valuetype=FLOAT"`
	Temp []float32 `parquet:"name=temp, type=LIST, valuetype=FLOAT, repetitiontype=OPTIONAL"`
}

func writeTestFile(t *testing.T, path string, rows []testRow) {
	t.Helper()
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		t.Fatalf("creating test file: %v", err)
	}
	pw, err := writer.NewParquetWriter(fw, new(testRow), 1)
	if err != nil {
		t.Fatalf("creating test writer: %v", err)
	}
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			t.Fatalf("writing test row: %v", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		t.Fatalf("finalizing test file: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("closing test file: %v", err)
	}
}

func TestFloatListColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.parquet")
	writeTestFile(t, path, []testRow{
		{Ts: []float32{100, 101}, Temp: []float32{1, 2}},
		{Ts: []float32{200, 201}, Temp: nil},
		{Ts: []float32{300, 301}, Temp: []float32{5, 6}},
	})

	f, err := Open(path)
	if err != nil {
		t.Fatalf("opening test file: %v", err)
	}
	defer f.Close()

	if got := f.NumRows(); got != 3 {
		t.Fatalf("NumRows = %d, want 3", got)
	}

	temp, err := f.FloatListColumn("temp")
	if err != nil {
		t.Fatalf("reading temp column: %v", err)
	}
	want := [][]float32{{1, 2}, nil, {5, 6}}
	if !reflect.DeepEqual(temp, want) {
		t.Errorf("temp column = %v, want %v", temp, want)
	}

	ts, err := f.FloatListColumn("ts")
	if err != nil {
		t.Fatalf("reading ts column: %v", err)
	}
	if len(ts) != 3 || ts[1][0] != 200 {
		t.Errorf("ts column = %v", ts)
	}
}

func TestFloatListColumnMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.parquet")
	writeTestFile(t, path, []testRow{{Ts: []float32{1}}})

	f, err := Open(path)
	if err != nil {
		t.Fatalf("opening test file: %v", err)
	}
	defer f.Close()

	if _, err := f.FloatListColumn("no_such_column"); err == nil {
		t.Fatal("expected error for missing column")
	}
}
