package rank

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

// DefaultTopN is the number of most recent ids kept per tag.
const DefaultTopN = 100

// ErrMissingGeoTag reports a tagged id with no row in the geotag table.
var ErrMissingGeoTag = errors.New("tagged id has no geotag")

// MissingError carries the offending tag and id. It matches ErrMissingGeoTag.
type MissingError struct {
	Tag string
	ID  uint64
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("tag %q: id %d has no geotag", e.Tag, e.ID)
}

// Is makes errors.Is(err, ErrMissingGeoTag) hold.
func (e *MissingError) Is(target error) bool { return target == ErrMissingGeoTag }

// Ranker selects the most recent ids of every tag.
type Ranker struct {
	TopN int // <= 0 means DefaultTopN

	// Strict turns an id missing from the geotag table into an error.
	// Otherwise the id is dropped with a warning.
	Strict bool
}

// Result is the output of the ultimate stage.
type Result struct {
	Tags    map[string][]uint64 // tag -> at most TopN ids, newest first
	IDs     []uint64            // ascending union of all retained ids, no duplicates
	Missing int                 // ids dropped because they had no geotag
}

// Rank orders every tag's ids by descending capture time, keeping file order
// on ties, truncates each list to TopN, and collects the deduplicated union.
func (r Ranker) Rank(ctx context.Context, tags map[string][]uint64, table store.Table) (Result, error) {
	topN := r.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	res := Result{Tags: make(map[string][]uint64, len(tags))}
	seen := make(store.IDSet)

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	type candidate struct {
		id   uint64
		time int32
	}

	for _, name := range names {
		ids := tags[name]
		cands := make([]candidate, 0, len(ids))
		for _, id := range ids {
			rec, ok, err := table.Get(ctx, id)
			if err != nil {
				return Result{}, fmt.Errorf("lookup %d: %w", id, err)
			}
			if !ok {
				if r.Strict {
					return Result{}, &MissingError{Tag: name, ID: id}
				}
				res.Missing++
				log.Printf("Warning: tag %q references id %d with no geotag, skipped", name, id)
				continue
			}
			cands = append(cands, candidate{id: id, time: rec.Time})
		}

		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].time > cands[j].time
		})
		if len(cands) > topN {
			cands = cands[:topN]
		}

		kept := make([]uint64, len(cands))
		for i, c := range cands {
			kept[i] = c.id
			seen.Add(c.id)
		}
		res.Tags[name] = kept
	}

	res.IDs = seen.Sorted()
	return res, nil
}
