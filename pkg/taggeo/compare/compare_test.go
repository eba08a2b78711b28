package compare

import (
	"strings"
	"testing"

	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

func TestCompareScenario(t *testing.T) {
	res := Compare(store.NewIDSet(1, 2, 3), store.NewIDSet(1, 2))

	if len(res.TagOnly) != 1 || res.TagOnly[0] != 3 {
		t.Errorf("TagOnly = %v, want [3]", res.TagOnly)
	}
	if len(res.GeoOnly) != 0 {
		t.Errorf("GeoOnly = %v, want []", res.GeoOnly)
	}
	if res.TagIDs != 3 || res.GeoIDs != 2 {
		t.Errorf("counts = %d/%d", res.TagIDs, res.GeoIDs)
	}
}

func TestCompareBothDirections(t *testing.T) {
	res := Compare(store.NewIDSet(5, 1, 9), store.NewIDSet(9, 7, 2))

	if len(res.TagOnly) != 2 || res.TagOnly[0] != 1 || res.TagOnly[1] != 5 {
		t.Errorf("TagOnly = %v", res.TagOnly)
	}
	if len(res.GeoOnly) != 2 || res.GeoOnly[0] != 2 || res.GeoOnly[1] != 7 {
		t.Errorf("GeoOnly = %v", res.GeoOnly)
	}
}

func TestTagIDsPreprocessed(t *testing.T) {
	ids, err := TagIDs(strings.NewReader("NO_TAG,1,4\nsea,2,1,2\ncity,2,2,3\n"), nil)
	if err != nil {
		t.Fatalf("TagIDs: %v", err)
	}
	if len(ids) != 3 || !ids.Has(1) || !ids.Has(3) {
		t.Errorf("ids = %v", ids.Sorted())
	}
	if ids.Has(4) {
		t.Error("NO_TAG ids are not tag references")
	}
}

func TestTagIDsUltimate(t *testing.T) {
	ids, err := TagIDs(strings.NewReader("city,2,3\nsea,1,2"), nil)
	if err != nil {
		t.Fatalf("TagIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("ids = %v", ids.Sorted())
	}
}

func TestTagIDsUltimateCommaNames(t *testing.T) {
	ids, err := TagIDs(strings.NewReader("paris, france,12345678\nroute,66,23456789,34567890\n"), nil)
	if err != nil {
		t.Fatalf("TagIDs: %v", err)
	}
	got := ids.Sorted()
	if len(got) != 3 || got[0] != 12345678 || got[2] != 34567890 || ids.Has(66) {
		t.Errorf("ids = %v", got)
	}
}

func TestGeoIDs(t *testing.T) {
	input := "1,100,0,0,1,1,0000000001\n" +
		`2,"2011-01-01 00:00:00",0,0,http://farm1.static.flickr.com/1/2_0000000001.jpg` + "\n" +
		"garbage\n"

	ids, err := GeoIDs(strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("GeoIDs: %v", err)
	}
	if len(ids) != 2 || !ids.Has(1) || !ids.Has(2) {
		t.Errorf("ids = %v", ids.Sorted())
	}
}
