package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/dustin/go-humanize"

	"github.com/taggeo/taggeo/internal/progress"
	"github.com/taggeo/taggeo/pkg/taggeo/parse"
	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

// GeoStats summarises one compaction pass.
type GeoStats struct {
	Lines    int64
	Parsed   int64 // rows put into the table, duplicates included
	Excluded int64
	Ignored  int64
	// Matched the grammar but the path segment had a leading zero; not in Ignored.
	LeadingZero int64
	Retained    int // distinct ids in the table afterwards
}

// CompactGeoTags parses geotag source lines from r and puts every record
// whose id is not in excluded into table. A repeated id overwrites the
// earlier row. Non-matching lines are logged; excluded ones are not.
func CompactGeoTags(ctx context.Context, r io.Reader, g *parse.Grammar, excluded store.IDSet, table store.Table, counter *progress.Counter) (GeoStats, error) {
	var stats GeoStats

	err := EachLine(r, counter, func(line string) error {
		stats.Lines++
		id, rec, err := g.ParseGeoLine(line, excluded)
		switch {
		case err == nil:
		case errors.Is(err, parse.ErrExcluded):
			stats.Excluded++
			return nil
		case errors.Is(err, parse.ErrLeadingZero):
			stats.LeadingZero++
			log.Printf("Dropped : %s (%v)", line, err)
			return nil
		case errors.Is(err, parse.ErrNoMatch):
			stats.Ignored++
			log.Printf("Ignored : %s (%v)", line, err)
			return nil
		default:
			return err
		}

		if err := table.Put(ctx, id, rec); err != nil {
			return fmt.Errorf("store geotag %d: %w", id, err)
		}
		stats.Parsed++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("read geotags: %w", err)
	}

	n, err := table.Len(ctx)
	if err != nil {
		return stats, err
	}
	stats.Retained = n

	log.Printf("Retained: %s, excluded: %s, ignored: %s, leading zero path: %s",
		humanize.Comma(int64(stats.Retained)),
		humanize.Comma(stats.Excluded),
		humanize.Comma(stats.Ignored),
		humanize.Comma(stats.LeadingZero))

	return stats, nil
}
