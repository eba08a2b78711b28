package store

import (
	"context"
	"sort"
)

// Table is the id-keyed geotag table built by the compaction pass and
// consumed by the ranking pass. Put on an existing id overwrites it.
type Table interface {
	Close() error

	Put(ctx context.Context, id uint64, rec GeoRecord) error
	Get(ctx context.Context, id uint64) (GeoRecord, bool, error)
	Len(ctx context.Context) (int, error)

	// Each visits every record in ascending id order. Returning an error
	// from fn stops the iteration and is returned as is.
	Each(ctx context.Context, fn func(id uint64, rec GeoRecord) error) error
}

// GeoRecord is the compacted form of one geotag row. The photo URL is not
// stored; DomainNum, URLNum1 and URLNum2 rebuild it from the URL template.
type GeoRecord struct {
	Time      int32 // capture time, Unix seconds
	Latitude  float64
	Longitude float64
	DomainNum uint8  // server digit, 0-9
	URLNum1   uint16 // path segment, 1-4 digits
	URLNum2   uint64 // 10 hex digit secret
}

// IDSet is a set of photo ids.
type IDSet map[uint64]struct{}

// NewIDSet creates a set holding ids.
func NewIDSet(ids ...uint64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id.
func (s IDSet) Add(id uint64) { s[id] = struct{}{} }

// Has reports whether id is in the set. A nil set contains nothing.
func (s IDSet) Has(id uint64) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []uint64 {
	out := make([]uint64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
