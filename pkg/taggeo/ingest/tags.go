package ingest

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/taggeo/taggeo/internal/progress"
	"github.com/taggeo/taggeo/pkg/taggeo/parse"
	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

// TagIndex is the inverted index tag -> photo ids. Ids keep file order and
// may repeat. Untagged ids are kept apart and never appear under a tag.
type TagIndex struct {
	Tags     map[string][]uint64
	Untagged []uint64
}

// NewTagIndex creates an empty index.
func NewTagIndex() *TagIndex {
	return &TagIndex{Tags: make(map[string][]uint64)}
}

// Add records one parsed tag line.
func (x *TagIndex) Add(l parse.TagLine) {
	if l.Untagged || l.Tag == parse.NoTag {
		x.Untagged = append(x.Untagged, l.ID)
		return
	}
	x.Tags[l.Tag] = append(x.Tags[l.Tag], l.ID)
}

// Names returns the tag names in ascending order.
func (x *TagIndex) Names() []string {
	names := make([]string, 0, len(x.Tags))
	for name := range x.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UntaggedSet returns the untagged ids as a set.
func (x *TagIndex) UntaggedSet() store.IDSet {
	return store.NewIDSet(x.Untagged...)
}

// TagStats summarises one aggregation pass.
type TagStats struct {
	Lines    int64
	Ignored  int64
	Tags     int
	Untagged int
}

// AggregateTags reads tag source lines from r into a TagIndex. Lines that
// do not parse are logged and skipped.
func AggregateTags(r io.Reader, counter *progress.Counter) (*TagIndex, TagStats, error) {
	idx := NewTagIndex()
	var stats TagStats

	err := EachLine(r, counter, func(line string) error {
		stats.Lines++
		tl, ok := parse.ParseTagLine(line)
		if !ok {
			stats.Ignored++
			log.Printf("Ignored : %s", line)
			return nil
		}
		idx.Add(tl)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("read tags: %w", err)
	}

	stats.Tags = len(idx.Tags)
	stats.Untagged = len(idx.Untagged)

	log.Printf("Entries: %s", humanize.Comma(int64(stats.Tags)))
	log.Printf("%s: %s", parse.NoTag, humanize.Comma(int64(stats.Untagged)))

	return idx, stats, nil
}
