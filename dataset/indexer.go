package dataset

import "fmt"

// Indexer provides random access over the records of one persisted
// dataset, the shared backend for both dataset views.
type Indexer struct {
	records []Record
	info    Info
}

// OpenIndexer loads the persisted dataset at dir.
func OpenIndexer(dir string) (*Indexer, error) {
	records, info, err := openDataset(dir)
	if err != nil {
		return nil, err
	}
	return &Indexer{records: records, info: info}, nil
}

func (ix *Indexer) Len() int { return len(ix.records) }

func (ix *Indexer) Info() Info { return ix.info }

func (ix *Indexer) Get(i int) (Record, error) {
	if i < 0 || i >= len(ix.records) {
		return Record{}, fmt.Errorf("record index %d out of range [0, %d)", i, len(ix.records))
	}
	return ix.records[i], nil
}

// targetSize is the total number of values in a record's target
// matrix, used to weight proportional sampling.
func (ix *Indexer) targetSize(i int) int {
	var n int
	for _, row := range ix.records[i].Target {
		n += len(row)
	}
	return n
}
