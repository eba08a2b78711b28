// Package sample extracts a small coherent test set from the source files:
// the first N geotag rows and the tag rows of exactly those photos.
package sample

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/taggeo/taggeo/internal/progress"
	"github.com/taggeo/taggeo/pkg/taggeo/ingest"
	"github.com/taggeo/taggeo/pkg/taggeo/parse"
	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

var errEnough = errors.New("sample complete")

// Sample holds source lines copied verbatim.
type Sample struct {
	GeoLines []string
	TagLines []string
	IDs      store.IDSet
}

// TakeGeoTags keeps the first n lines of r that fit the geotag grammar.
// The exclusion filter is not applied; the sample mirrors the source.
func TakeGeoTags(r io.Reader, g *parse.Grammar, n int, counter *progress.Counter) (*Sample, error) {
	s := &Sample{IDs: make(store.IDSet)}
	if n <= 0 {
		return s, nil
	}

	err := ingest.EachLine(r, counter, func(line string) error {
		id, _, err := g.ParseGeoLine(line, nil)
		if err != nil {
			return nil
		}
		s.GeoLines = append(s.GeoLines, line)
		s.IDs.Add(id)
		if len(s.GeoLines) >= n {
			return errEnough
		}
		return nil
	})
	if err != nil && !errors.Is(err, errEnough) {
		return nil, fmt.Errorf("sample geotags: %w", err)
	}
	return s, nil
}

// CollectTags keeps every tag source line whose id is in the sample,
// tagged or not.
func (s *Sample) CollectTags(r io.Reader, counter *progress.Counter) error {
	err := ingest.EachLine(r, counter, func(line string) error {
		tl, ok := parse.ParseTagLine(line)
		if ok && s.IDs.Has(tl.ID) {
			s.TagLines = append(s.TagLines, line)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sample tags: %w", err)
	}
	return nil
}

// WriteLines writes lines, one per line.
func WriteLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		bw.WriteString(l)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
