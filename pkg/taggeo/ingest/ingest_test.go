package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/taggeo/taggeo/pkg/taggeo/parse"
	"github.com/taggeo/taggeo/pkg/taggeo/store"
	"github.com/taggeo/taggeo/pkg/taggeo/store/memstore"
)

func TestEachLine(t *testing.T) {
	long := strings.Repeat("9", readerSize*2)
	input := "a\r\nb\n\n" + long + "\nlast"

	var got []string
	err := EachLine(strings.NewReader(input), nil, func(line string) error {
		got = append(got, line)
		return nil
	})
	if err != nil {
		t.Fatalf("EachLine: %v", err)
	}

	want := []string{"a", "b", "", long, "last"}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d mismatch (len %d vs %d)", i, len(got[i]), len(want[i]))
		}
	}
}

func TestAggregateTags(t *testing.T) {
	input := "1,vacation\n2,\n3,vacation\nbroken\n4,\"\"\"new york\"\"\"\n2,\n"

	idx, stats, err := AggregateTags(strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("AggregateTags: %v", err)
	}

	if stats.Lines != 6 || stats.Ignored != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Tags != 2 || stats.Untagged != 2 {
		t.Errorf("expected 2 tags and 2 untagged, got %+v", stats)
	}

	vac := idx.Tags["vacation"]
	if len(vac) != 2 || vac[0] != 1 || vac[1] != 3 {
		t.Errorf("vacation = %v, want [1 3]", vac)
	}
	if ny := idx.Tags["new york"]; len(ny) != 1 || ny[0] != 4 {
		t.Errorf("new york = %v", ny)
	}

	// Duplicates are kept at this stage
	if len(idx.Untagged) != 2 || idx.Untagged[0] != 2 || idx.Untagged[1] != 2 {
		t.Errorf("untagged = %v, want [2 2]", idx.Untagged)
	}
	if _, ok := idx.Tags[parse.NoTag]; ok {
		t.Error("untagged ids must not be mixed into the tag index")
	}

	names := idx.Names()
	if len(names) != 2 || names[0] != "new york" || names[1] != "vacation" {
		t.Errorf("names = %v", names)
	}
}

func geoLine(id, ts, lat, lon, url string) string {
	return id + `,"` + ts + `",` + lat + "," + lon + "," + url
}

func TestAggregateTagsLiteralNoTag(t *testing.T) {
	idx, stats, err := AggregateTags(strings.NewReader("5,NO_TAG\n6,\n7,sea\n"), nil)
	if err != nil {
		t.Fatalf("AggregateTags: %v", err)
	}
	if _, ok := idx.Tags[parse.NoTag]; ok {
		t.Errorf("a tag spelled NO_TAG must join the untagged bucket, tags = %v", idx.Tags)
	}
	if len(idx.Untagged) != 2 || idx.Untagged[0] != 5 || idx.Untagged[1] != 6 {
		t.Errorf("untagged = %v, want [5 6]", idx.Untagged)
	}
	if stats.Tags != 1 || stats.Untagged != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestCompactGeoTagsLeadingZeroCountedApart(t *testing.T) {
	ctx := context.Background()
	lines := []string{
		geoLine("11111111", "2011-01-01 00:00:00", "1", "2", "http://farm1.static.flickr.com/10/11111111_0000000001.jpg"),
		geoLine("22222222", "2011-01-01 00:00:00", "1", "2", "http://farm1.static.flickr.com/010/22222222_0000000002.jpg"),
		"garbage line",
	}

	table := memstore.New()
	stats, err := CompactGeoTags(ctx, strings.NewReader(strings.Join(lines, "\n")), parse.DefaultGrammar(), nil, table, nil)
	if err != nil {
		t.Fatalf("CompactGeoTags: %v", err)
	}
	if stats.LeadingZero != 1 || stats.Ignored != 1 || stats.Retained != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if _, ok, _ := table.Get(ctx, 22222222); ok {
		t.Error("row with a leading zero path must not be stored")
	}
}

func TestCompactGeoTags(t *testing.T) {
	ctx := context.Background()
	lines := []string{
		geoLine("11111111", "2011-01-01 00:00:00", "1.5", "2.5", "http://farm1.static.flickr.com/10/11111111_0000000001.jpg"),
		geoLine("22222222", "2011-01-01 00:00:00", "3", "4", "http://farm2.static.flickr.com/20/22222222_0000000002.jpg"),
		"garbage line",
		geoLine("33333333", "2011-01-01 00:00:00", "5", "6", "http://farm3.static.flickr.com/30/33333333_0000000003.jpg"),
		geoLine("11111111", "2011-01-02 00:00:00", "7", "8", "http://farm4.static.flickr.com/40/11111111_0000000004.jpg"),
	}

	table := memstore.New()
	excluded := store.NewIDSet(22222222)

	stats, err := CompactGeoTags(ctx, strings.NewReader(strings.Join(lines, "\n")), parse.DefaultGrammar(), excluded, table, nil)
	if err != nil {
		t.Fatalf("CompactGeoTags: %v", err)
	}

	if stats.Lines != 5 || stats.Parsed != 3 || stats.Excluded != 1 || stats.Ignored != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Retained != 2 {
		t.Errorf("expected 2 distinct ids, got %d", stats.Retained)
	}

	if _, ok, _ := table.Get(ctx, 22222222); ok {
		t.Error("excluded id must not be stored")
	}

	rec, ok, _ := table.Get(ctx, 11111111)
	if !ok {
		t.Fatal("id 11111111 missing")
	}
	if rec.DomainNum != 4 || rec.URLNum1 != 40 || rec.Time != 1293840000+86400 {
		t.Errorf("later duplicate should overwrite, got %+v", rec)
	}
}
