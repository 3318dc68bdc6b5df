package dataset

import (
	"reflect"
	"testing"
)

func TestStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()

	records := []Record{
		{ItemID: "a_0", Start: 1, Freq: "H", Target: [][]float32{{1, 2}, {3, 4}}},
		{ItemID: "a_1", Start: 2, Freq: "H", Target: [][]float32{{5, 6, 7}}},
		{ItemID: "a_2", Start: 3, Freq: "H", Target: [][]float32{}},
	}

	w, err := newDatasetWriter(dir)
	if err != nil {
		t.Fatalf("creating writer: %v", err)
	}
	if err := w.appendBatch(records); err != nil {
		t.Fatalf("appending batch: %v", err)
	}
	info, err := w.finish("unit", "H", recordFeatures())
	if err != nil {
		t.Fatalf("finishing dataset: %v", err)
	}

	if info.DatasetName != "unit" {
		t.Errorf("info.DatasetName = %q, want %q", info.DatasetName, "unit")
	}
	if info.NumRecords != 3 {
		t.Errorf("info.NumRecords = %d, want 3", info.NumRecords)
	}
	if info.NumShards != 1 {
		t.Errorf("info.NumShards = %d, want 1", info.NumShards)
	}
	if info.BuildID == "" {
		t.Error("info.BuildID is empty")
	}

	loaded, loadedInfo, err := openDataset(dir)
	if err != nil {
		t.Fatalf("opening dataset: %v", err)
	}
	if loadedInfo.BuildID != info.BuildID {
		t.Errorf("loaded BuildID = %q, want %q", loadedInfo.BuildID, info.BuildID)
	}
	if len(loaded) != len(records) {
		t.Fatalf("loaded %d records, want %d", len(loaded), len(records))
	}
	for i, rec := range loaded {
		if rec.ItemID != records[i].ItemID || rec.Start != records[i].Start || rec.Freq != records[i].Freq {
			t.Errorf("record %d = %+v, want %+v", i, rec, records[i])
		}
		if len(rec.Target) != len(records[i].Target) {
			t.Errorf("record %d target has %d rows, want %d",
				i, len(rec.Target), len(records[i].Target))
			continue
		}
		for r := range rec.Target {
			if !reflect.DeepEqual(rec.Target[r], records[i].Target[r]) {
				t.Errorf("record %d target row %d = %v, want %v",
					i, r, rec.Target[r], records[i].Target[r])
			}
		}
	}
}

func TestReadInfoMissing(t *testing.T) {
	if _, err := ReadInfo(t.TempDir()); err == nil {
		t.Fatal("expected error for missing info file")
	}
}

func TestMultipleBatchesStayContiguous(t *testing.T) {
	dir := t.TempDir()
	w, err := newDatasetWriter(dir)
	if err != nil {
		t.Fatalf("creating writer: %v", err)
	}
	if err := w.appendBatch([]Record{
		{ItemID: "s1_0", Start: 1, Freq: "H", Target: [][]float32{{1}}},
		{ItemID: "s1_1", Start: 2, Freq: "H", Target: [][]float32{{2}}},
	}); err != nil {
		t.Fatalf("appending first batch: %v", err)
	}
	if err := w.appendBatch([]Record{
		{ItemID: "s2_0", Start: 3, Freq: "H", Target: [][]float32{{3}}},
	}); err != nil {
		t.Fatalf("appending second batch: %v", err)
	}
	info, err := w.finish("multi", "D", recordFeatures())
	if err != nil {
		t.Fatalf("finishing dataset: %v", err)
	}
	if info.NumShards != 2 || info.NumRecords != 3 {
		t.Fatalf("info = %+v, want 2 shards and 3 records", info)
	}

	loaded, _, err := openDataset(dir)
	if err != nil {
		t.Fatalf("opening dataset: %v", err)
	}
	// Within a shard, order is preserved.
	if loaded[0].ItemID != "s1_0" || loaded[1].ItemID != "s1_1" {
		t.Errorf("shard records out of order: %v %v", loaded[0].ItemID, loaded[1].ItemID)
	}
}
