package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec := store.GeoRecord{Time: 100, Latitude: 1.5, Longitude: -2.25, DomainNum: 3, URLNum1: 42, URLNum2: 0xab}
	if err := s.Put(ctx, 7, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected id 7 to be present")
	}
	if got != rec {
		t.Errorf("got %+v, want %+v", got, rec)
	}

	if _, ok, _ := s.Get(ctx, 8); ok {
		t.Error("id 8 should be absent")
	}
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	s.Put(ctx, 1, store.GeoRecord{Time: 1})
	s.Put(ctx, 1, store.GeoRecord{Time: 2})

	n, _ := s.Len(ctx)
	if n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
	got, _, _ := s.Get(ctx, 1)
	if got.Time != 2 {
		t.Errorf("later Put should win, got time %d", got.Time)
	}
}

func TestEachAscending(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []uint64{30, 10, 20} {
		s.Put(ctx, id, store.GeoRecord{Time: int32(id)})
	}

	var ids []uint64
	err := s.Each(ctx, func(id uint64, rec store.GeoRecord) error {
		if uint64(rec.Time) != id {
			t.Errorf("record mismatch for id %d", id)
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if len(ids) != 3 || ids[0] != 10 || ids[1] != 20 || ids[2] != 30 {
		t.Errorf("expected [10 20 30], got %v", ids)
	}
}

func TestEachStopsOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put(ctx, 1, store.GeoRecord{})
	s.Put(ctx, 2, store.GeoRecord{})

	stop := errors.New("stop")
	calls := 0
	err := s.Each(ctx, func(uint64, store.GeoRecord) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected stop error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
