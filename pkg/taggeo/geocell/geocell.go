// Package geocell summarises where geotagged photos were taken by counting
// them per S2 cell.
//
// S2 cells are a hierarchical partition of the sphere (https://s2geometry.io/).
// Level 10 cells are roughly 10km across at the equator; each level up
// halves the edge length.
package geocell

import (
	"context"
	"sort"

	"github.com/golang/geo/s2"

	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

// DefaultLevel is the cell level used when none is given.
const DefaultLevel = 10

// Cell is one S2 cell with the number of photos inside it.
type Cell struct {
	ID    s2.CellID
	Count int
}

// Token returns the compact hex token of the cell.
func (c Cell) Token() string { return c.ID.ToToken() }

// Center returns the cell centre.
func (c Cell) Center() s2.LatLng { return c.ID.LatLng() }

// Histogram counts points per cell at a fixed level.
type Histogram struct {
	level  int
	counts map[s2.CellID]int
	total  int
}

// NewHistogram creates a histogram at level, clamped to [0, s2.MaxLevel].
func NewHistogram(level int) *Histogram {
	if level < 0 {
		level = 0
	}
	if level > s2.MaxLevel {
		level = s2.MaxLevel
	}
	return &Histogram{level: level, counts: make(map[s2.CellID]int)}
}

// Level returns the cell level.
func (h *Histogram) Level() int { return h.level }

// Add counts one point given in degrees.
func (h *Histogram) Add(lat, lng float64) {
	ll := s2.LatLngFromDegrees(lat, lng)
	cell := s2.CellIDFromLatLng(ll).Parent(h.level)
	h.counts[cell]++
	h.total++
}

// Total returns the number of points added.
func (h *Histogram) Total() int { return h.total }

// Len returns the number of distinct cells.
func (h *Histogram) Len() int { return len(h.counts) }

// Top returns the k busiest cells, most photos first; ties in cell id
// order. k <= 0 returns every cell.
func (h *Histogram) Top(k int) []Cell {
	cells := make([]Cell, 0, len(h.counts))
	for id, n := range h.counts {
		cells = append(cells, Cell{ID: id, Count: n})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Count != cells[j].Count {
			return cells[i].Count > cells[j].Count
		}
		return cells[i].ID < cells[j].ID
	})
	if k > 0 && len(cells) > k {
		cells = cells[:k]
	}
	return cells
}

// FromTable builds a histogram over every record of table.
func FromTable(ctx context.Context, table store.Table, level int) (*Histogram, error) {
	h := NewHistogram(level)
	err := table.Each(ctx, func(_ uint64, rec store.GeoRecord) error {
		h.Add(rec.Latitude, rec.Longitude)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}
