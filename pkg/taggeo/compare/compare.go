// Package compare checks id coverage between a tag file and a geotag file.
package compare

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/taggeo/taggeo/internal/progress"
	"github.com/taggeo/taggeo/pkg/taggeo/codec"
	"github.com/taggeo/taggeo/pkg/taggeo/ingest"
	"github.com/taggeo/taggeo/pkg/taggeo/parse"
	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

// Result is the set difference between the two id sets.
type Result struct {
	TagIDs  int      // distinct ids referenced by tags
	GeoIDs  int      // distinct ids with a geotag row
	TagOnly []uint64 // tagged ids without a geotag row, ascending
	GeoOnly []uint64 // geotag ids no tag references, ascending
}

// Compare computes both set differences.
func Compare(tagIDs, geoIDs store.IDSet) Result {
	res := Result{TagIDs: len(tagIDs), GeoIDs: len(geoIDs)}

	tagOnly := make(store.IDSet)
	for id := range tagIDs {
		if !geoIDs.Has(id) {
			tagOnly.Add(id)
		}
	}
	geoOnly := make(store.IDSet)
	for id := range geoIDs {
		if !tagIDs.Has(id) {
			geoOnly.Add(id)
		}
	}

	res.TagOnly = tagOnly.Sorted()
	res.GeoOnly = geoOnly.Sorted()
	return res
}

// TagIDs collects every id referenced by a tag in a preprocessed tag file
// (NO_TAG ids are not references) or an ultimate tag file. The format is
// picked from the first line.
func TagIDs(r io.Reader, counter *progress.Counter) (store.IDSet, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read tag file: %w", err)
	}
	full := io.MultiReader(strings.NewReader(first), br)

	var tags map[string][]uint64
	if codec.IsTagIndexHeader(first) {
		var idx *ingest.TagIndex
		if idx, err = codec.ReadTagIndex(full, counter); err != nil {
			return nil, err
		}
		tags = idx.Tags
	} else {
		if tags, err = codec.ReadUltimateTags(full, counter); err != nil {
			return nil, err
		}
	}

	ids := make(store.IDSet)
	for _, list := range tags {
		for _, id := range list {
			ids.Add(id)
		}
	}
	return ids, nil
}

// GeoIDs collects the leading id column of a geotag file, preprocessed or raw.
// Lines without a leading id are logged and skipped.
func GeoIDs(r io.Reader, counter *progress.Counter) (store.IDSet, error) {
	ids := make(store.IDSet)
	err := ingest.EachLine(r, counter, func(line string) error {
		id, ok := parse.LeadingID(line)
		if !ok {
			log.Printf("Ignored : %s", line)
			return nil
		}
		ids.Add(id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read geotag file: %w", err)
	}
	return ids, nil
}
