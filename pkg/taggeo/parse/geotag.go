package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

// URLTemplate holds the fixed fragments of every photo URL:
//
//	<Prefix><domain digit><Common><path segment>/<id>_<10 hex digits><Suffix>
type URLTemplate struct {
	Prefix string `yaml:"prefix"`
	Common string `yaml:"common"`
	Suffix string `yaml:"suffix"`
}

// DefaultURLTemplate matches the static photo host layout of the dataset.
var DefaultURLTemplate = URLTemplate{
	Prefix: "http://farm",
	Common: ".static.flickr.com/",
	Suffix: ".jpg",
}

// URL rebuilds the photo URL of a compacted record.
func (t URLTemplate) URL(id uint64, rec store.GeoRecord) string {
	return fmt.Sprintf("%s%d%s%d/%d_%010x%s",
		t.Prefix, rec.DomainNum, t.Common, rec.URLNum1, id, rec.URLNum2, t.Suffix)
}

// timeLayout is the layout inside the quoted capture time column.
const timeLayout = "2006-01-02 15:04:05"

// Grammar is the compiled geotag line grammar for one URL template.
// It is immutable and safe for concurrent use.
type Grammar struct {
	tmpl URLTemplate
	geo  *regexp.Regexp
}

// NewGrammar compiles the geotag grammar for tmpl.
func NewGrammar(tmpl URLTemplate) (*Grammar, error) {
	expr := fmt.Sprintf(
		`^(\d{8,10}),(.+),(.+),(.+),%s(\d)%s(\d{1,4})/(\d{8,10})_([0-9a-f]{10})%s$`,
		regexp.QuoteMeta(tmpl.Prefix),
		regexp.QuoteMeta(tmpl.Common),
		regexp.QuoteMeta(tmpl.Suffix),
	)
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile geotag grammar: %w", err)
	}
	return &Grammar{tmpl: tmpl, geo: re}, nil
}

// DefaultGrammar returns the grammar for DefaultURLTemplate.
var DefaultGrammar = sync.OnceValue(func() *Grammar {
	g, err := NewGrammar(DefaultURLTemplate)
	if err != nil {
		panic(err)
	}
	return g
})

// Template returns the URL template the grammar was built from.
func (g *Grammar) Template() URLTemplate { return g.tmpl }

// Match reports whether line fits the geotag grammar, without converting fields.
func (g *Grammar) Match(line string) bool {
	return g.geo.MatchString(line)
}

// ParseGeoLine parses one geotag source line:
//
//	<id>,"<YYYY-MM-DD HH:MM:SS>",<lat>,<lon>,<photo URL>
//
// If the id is in excluded, it returns the id and ErrExcluded before any
// other field is converted. Every other failure wraps ErrNoMatch.
func (g *Grammar) ParseGeoLine(line string, excluded store.IDSet) (uint64, store.GeoRecord, error) {
	m := g.geo.FindStringSubmatch(line)
	if m == nil {
		return 0, store.GeoRecord{}, ErrNoMatch
	}

	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, store.GeoRecord{}, fmt.Errorf("%w: id %q: %v", ErrNoMatch, m[1], err)
	}
	if excluded.Has(id) {
		return id, store.GeoRecord{}, ErrExcluded
	}

	var rec store.GeoRecord

	rec.Time, err = parseQuotedTime(m[2])
	if err != nil {
		return id, store.GeoRecord{}, fmt.Errorf("%w: time: %v", ErrNoMatch, err)
	}
	if rec.Latitude, err = strconv.ParseFloat(m[3], 64); err != nil {
		return id, store.GeoRecord{}, fmt.Errorf("%w: latitude %q", ErrNoMatch, m[3])
	}
	if rec.Longitude, err = strconv.ParseFloat(m[4], 64); err != nil {
		return id, store.GeoRecord{}, fmt.Errorf("%w: longitude %q", ErrNoMatch, m[4])
	}

	// Single digit by grammar
	rec.DomainNum = m[5][0] - '0'

	seg := m[6]
	if len(seg) > 1 && seg[0] == '0' {
		// 0042 would come back as 42 and the URL could not be rebuilt
		return id, store.GeoRecord{}, fmt.Errorf("%w: %w: %q", ErrNoMatch, ErrLeadingZero, seg)
	}
	urlNum1, err := strconv.ParseUint(seg, 10, 16)
	if err != nil {
		return id, store.GeoRecord{}, fmt.Errorf("%w: path segment %q", ErrNoMatch, seg)
	}
	rec.URLNum1 = uint16(urlNum1)

	if m[7] != m[1] {
		return id, store.GeoRecord{}, fmt.Errorf("%w: URL id %s differs from id %s", ErrNoMatch, m[7], m[1])
	}

	if rec.URLNum2, err = strconv.ParseUint(m[8], 16, 64); err != nil {
		return id, store.GeoRecord{}, fmt.Errorf("%w: secret %q", ErrNoMatch, m[8])
	}

	return id, rec, nil
}

// parseQuotedTime parses `"2006-01-02 15:04:05"` as UTC and truncates the
// Unix seconds to 32 bits.
func parseQuotedTime(s string) (int32, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return 0, fmt.Errorf("%q is not quoted", s)
	}
	t, err := time.Parse(timeLayout, s[1:len(s)-1])
	if err != nil {
		return 0, err
	}
	return int32(t.Unix()), nil
}

// FormatGeoLine renders a record back into the source line format.
func (g *Grammar) FormatGeoLine(id uint64, rec store.GeoRecord) string {
	ts := time.Unix(int64(rec.Time), 0).UTC().Format(timeLayout)
	return fmt.Sprintf("%d,\"%s\",%s,%s,%s",
		id, ts,
		strconv.FormatFloat(rec.Latitude, 'f', -1, 64),
		strconv.FormatFloat(rec.Longitude, 'f', -1, 64),
		g.tmpl.URL(id, rec),
	)
}
