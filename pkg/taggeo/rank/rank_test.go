package rank

import (
	"context"
	"errors"
	"testing"

	"github.com/taggeo/taggeo/pkg/taggeo/store"
	"github.com/taggeo/taggeo/pkg/taggeo/store/memstore"
)

func tableWithTimes(t *testing.T, times map[uint64]int32) store.Table {
	t.Helper()
	ctx := context.Background()
	table := memstore.New()
	for id, ts := range times {
		if err := table.Put(ctx, id, store.GeoRecord{Time: ts}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	return table
}

func TestRankOrdersByRecency(t *testing.T) {
	table := tableWithTimes(t, map[uint64]int32{1: 10, 2: 30, 3: 20})
	tags := map[string][]uint64{"sea": {1, 2, 3}}

	res, err := Ranker{}.Rank(context.Background(), tags, table)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	got := res.Tags["sea"]
	want := []uint64{2, 3, 1}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRankStableOnTies(t *testing.T) {
	table := tableWithTimes(t, map[uint64]int32{5: 100, 4: 100, 9: 100, 1: 200})
	tags := map[string][]uint64{"tie": {5, 4, 9, 1}}

	res, err := Ranker{}.Rank(context.Background(), tags, table)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	want := []uint64{1, 5, 4, 9}
	got := res.Tags["tie"]
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ties should keep file order: got %v, want %v", got, want)
		}
	}
}

func TestRankTruncatesToTopN(t *testing.T) {
	times := make(map[uint64]int32)
	var ids []uint64
	for i := uint64(1); i <= 250; i++ {
		times[i] = int32(i)
		ids = append(ids, i)
	}
	table := tableWithTimes(t, times)

	res, err := Ranker{}.Rank(context.Background(), map[string][]uint64{"big": ids}, table)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	got := res.Tags["big"]
	if len(got) != DefaultTopN {
		t.Fatalf("expected %d ids, got %d", DefaultTopN, len(got))
	}
	if got[0] != 250 || got[DefaultTopN-1] != 151 {
		t.Errorf("expected newest 250..151, got first %d last %d", got[0], got[len(got)-1])
	}

	res, _ = Ranker{TopN: 3}.Rank(context.Background(), map[string][]uint64{"big": ids}, table)
	if len(res.Tags["big"]) != 3 {
		t.Errorf("custom TopN ignored: %v", res.Tags["big"])
	}
}

func TestRankDeduplicatesAcrossTags(t *testing.T) {
	table := tableWithTimes(t, map[uint64]int32{1: 1, 2: 2, 3: 3, 4: 4})
	tags := map[string][]uint64{
		"a": {1, 2, 3},
		"b": {3, 4},
		"c": {2, 3},
	}

	res, err := Ranker{}.Rank(context.Background(), tags, table)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	want := []uint64{1, 2, 3, 4}
	if len(res.IDs) != len(want) {
		t.Fatalf("IDs = %v, want %v", res.IDs, want)
	}
	for i := range want {
		if res.IDs[i] != want[i] {
			t.Fatalf("IDs = %v, want %v", res.IDs, want)
		}
	}

	// Still once per tag in the tag output
	for _, name := range []string{"a", "b", "c"} {
		found := false
		for _, id := range res.Tags[name] {
			if id == 3 {
				found = true
			}
		}
		if !found {
			t.Errorf("id 3 should remain under tag %q", name)
		}
	}
}

func TestRankResultIsSubset(t *testing.T) {
	table := tableWithTimes(t, map[uint64]int32{10: 5, 11: 7, 12: 6})
	tags := map[string][]uint64{"x": {10, 11, 12}}

	res, _ := Ranker{TopN: 2}.Rank(context.Background(), tags, table)
	orig := store.NewIDSet(tags["x"]...)
	var prev int32 = 1<<31 - 1
	for _, id := range res.Tags["x"] {
		if !orig.Has(id) {
			t.Errorf("id %d not in the input list", id)
		}
		rec, _, _ := table.Get(context.Background(), id)
		if rec.Time > prev {
			t.Errorf("not sorted by descending time: %v", res.Tags["x"])
		}
		prev = rec.Time
	}
}

func TestRankMissingSkipsByDefault(t *testing.T) {
	table := tableWithTimes(t, map[uint64]int32{1: 1})
	tags := map[string][]uint64{"t": {1, 2}}

	res, err := Ranker{}.Rank(context.Background(), tags, table)
	if err != nil {
		t.Fatalf("non-strict Rank should not fail: %v", err)
	}
	if res.Missing != 1 {
		t.Errorf("Missing = %d, want 1", res.Missing)
	}
	if len(res.Tags["t"]) != 1 || res.Tags["t"][0] != 1 {
		t.Errorf("missing id should be dropped, got %v", res.Tags["t"])
	}
	if len(res.IDs) != 1 {
		t.Errorf("IDs = %v", res.IDs)
	}
}

func TestRankMissingStrict(t *testing.T) {
	table := tableWithTimes(t, map[uint64]int32{1: 1})
	tags := map[string][]uint64{"t": {1, 2}}

	_, err := Ranker{Strict: true}.Rank(context.Background(), tags, table)
	if !errors.Is(err, ErrMissingGeoTag) {
		t.Fatalf("expected ErrMissingGeoTag, got %v", err)
	}
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingError, got %T", err)
	}
	if missing.Tag != "t" || missing.ID != 2 {
		t.Errorf("unexpected error detail %+v", missing)
	}
}
