// Package parse turns raw lines of the tag and geotag source files into
// typed values.
//
// Both grammars are compiled once. A line that does not fit its grammar,
// or whose fields do not convert to their numeric types, yields ErrNoMatch
// (tag lines report ok=false); callers log and skip it.
package parse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// NoTag is the sentinel tag name for ids whose tag field was empty.
const NoTag = "NO_TAG"

var (
	// ErrNoMatch reports a line that does not fit the grammar.
	ErrNoMatch = errors.New("the line didn't match the grammar")

	// ErrExcluded reports a geotag line whose id is in the exclusion set.
	// It is expected filtering, not a failure.
	ErrExcluded = errors.New("id is in NO_TAG")

	// ErrLeadingZero reports a URL path segment written with a leading
	// zero. The numeric field could not rebuild it, so the line is dropped.
	// It always comes wrapped together with ErrNoMatch.
	ErrLeadingZero = errors.New("path segment has a leading zero")
)

var tagPattern = regexp.MustCompile(`^(\d+),(.*)$`)

const tripleQuote = `"""`

// TagLine is one parsed tag assignment.
type TagLine struct {
	Tag      string
	ID       uint64
	Untagged bool // tag field was empty or NoTag itself; Tag is NoTag
}

// ParseTagLine parses "<id>,<tag>". A tag wrapped in triple double quotes
// is unwrapped, anything else is kept verbatim. A tag spelled NO_TAG joins
// the untagged bucket.
func ParseTagLine(line string) (TagLine, bool) {
	m := tagPattern.FindStringSubmatch(line)
	if m == nil {
		return TagLine{}, false
	}

	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return TagLine{}, false
	}

	tag := unquoteTag(m[2])
	if m[2] == "" || tag == NoTag {
		return TagLine{Tag: NoTag, ID: id, Untagged: true}, true
	}
	return TagLine{Tag: tag, ID: id}, true
}

func unquoteTag(s string) string {
	if len(s) >= 2*len(tripleQuote) &&
		strings.HasPrefix(s, tripleQuote) &&
		strings.HasSuffix(s, tripleQuote) {
		return s[len(tripleQuote) : len(s)-len(tripleQuote)]
	}
	return s
}

// FormatTagLine is the inverse of ParseTagLine for source-format lines.
func FormatTagLine(tag string, id uint64) string {
	idStr := strconv.FormatUint(id, 10)
	if tag == "" || tag == NoTag {
		return idStr + ","
	}
	return idStr + "," + tripleQuote + tag + tripleQuote
}

// IsPhotoID reports whether s has the shape of a photo id: 8 to 10 digits.
func IsPhotoID(s string) bool {
	if len(s) < 8 || len(s) > 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// LeadingID returns the digits before the first comma as an id.
func LeadingID(line string) (uint64, bool) {
	head, _, found := strings.Cut(line, ",")
	if !found || head == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
