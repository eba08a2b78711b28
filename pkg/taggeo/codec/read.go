package codec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/taggeo/taggeo/internal/progress"
	"github.com/taggeo/taggeo/pkg/taggeo/ingest"
	"github.com/taggeo/taggeo/pkg/taggeo/parse"
	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

var (
	// ErrNoTagHeader reports a preprocessed tag file whose first line is not NO_TAG.
	ErrNoTagHeader = errors.New("preprocessed tag file must start with a NO_TAG line")

	// ErrMalformedRow reports a line that does not fit the preprocessed formats.
	ErrMalformedRow = errors.New("malformed row")
)

// IsTagIndexHeader reports whether line is the NO_TAG line of a preprocessed tag file.
func IsTagIndexHeader(line string) bool {
	return strings.HasPrefix(line, parse.NoTag+",")
}

// ReadTagIndex reads a preprocessed tag file. The count column tells where
// a tag name containing commas ends.
func ReadTagIndex(r io.Reader, counter *progress.Counter) (*ingest.TagIndex, error) {
	idx := ingest.NewTagIndex()
	first := true

	err := ingest.EachLine(r, counter, func(line string) error {
		name, ids, err := parseCountedLine(line)
		if first {
			first = false
			if !IsTagIndexHeader(line) || err != nil || name != parse.NoTag {
				return ErrNoTagHeader
			}
			idx.Untagged = ids
			return nil
		}
		if err != nil {
			return err
		}
		idx.Tags[name] = append(idx.Tags[name], ids...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read tag index: %w", err)
	}
	if first {
		return nil, fmt.Errorf("read tag index: %w", ErrNoTagHeader)
	}
	return idx, nil
}

// ReadUntagged reads only the NO_TAG line of a preprocessed tag file.
func ReadUntagged(r io.Reader) (store.IDSet, error) {
	line, err := bufio.NewReaderSize(r, writerSize).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read NO_TAG line: %w", err)
	}
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

	if !IsTagIndexHeader(line) {
		return nil, ErrNoTagHeader
	}
	name, ids, err := parseCountedLine(line)
	if err != nil || name != parse.NoTag {
		return nil, ErrNoTagHeader
	}
	return store.NewIDSet(ids...), nil
}

// parseCountedLine splits "<name>,<count>,<ids>". A tag name may contain
// commas, so several splits can be consistent: the count field equals the
// number of ids after it and every one of them parses. The leftmost split
// whose ids all have the photo id shape wins; failing that, the leftmost
// consistent split.
func parseCountedLine(line string) (string, []uint64, error) {
	parts := strings.Split(line, ",")

	fallback := -1
	var fallbackIDs []uint64
	for k := 1; k+1 < len(parts); k++ {
		n, err := strconv.Atoi(parts[k])
		if err != nil {
			continue
		}
		rest := parts[k+1:]
		if n == 0 && len(rest) == 1 && rest[0] == "" {
			return strings.Join(parts[:k], ","), nil, nil
		}
		if n != len(rest) {
			continue
		}
		ids, err := parseIDs(rest)
		if err != nil {
			continue
		}
		if allPhotoIDs(rest) {
			return strings.Join(parts[:k], ","), ids, nil
		}
		if fallback < 0 {
			fallback, fallbackIDs = k, ids
		}
	}
	if fallback >= 0 {
		return strings.Join(parts[:fallback], ","), fallbackIDs, nil
	}
	return "", nil, fmt.Errorf("%w: %.80q", ErrMalformedRow, line)
}

// splitUltimateLine splits "<name>,<ids>". The ids are the trailing run of
// fields with the photo id shape; when there is none, the trailing run of
// plain numbers. A line ending in a comma names a tag with no ids.
func splitUltimateLine(line string) (string, []uint64, error) {
	parts := strings.Split(line, ",")
	last := len(parts) - 1
	if last < 1 {
		return "", nil, fmt.Errorf("%w: %.80q", ErrMalformedRow, line)
	}
	if parts[last] == "" {
		return strings.Join(parts[:last], ","), nil, nil
	}

	j := trailingRun(parts, parse.IsPhotoID)
	if j > last {
		j = trailingRun(parts, isNumber)
	}
	if j > last {
		return "", nil, fmt.Errorf("%w: %.80q", ErrMalformedRow, line)
	}
	ids, err := parseIDs(parts[j:])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %.80q", ErrMalformedRow, line)
	}
	return strings.Join(parts[:j], ","), ids, nil
}

// trailingRun returns the start of the longest run of fields at the end
// of parts matching ok, keeping parts[0] for the name.
func trailingRun(parts []string, ok func(string) bool) int {
	j := len(parts)
	for j > 1 && ok(parts[j-1]) {
		j--
	}
	return j
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func allPhotoIDs(fields []string) bool {
	for _, f := range fields {
		if !parse.IsPhotoID(f) {
			return false
		}
	}
	return true
}

// ReadUltimateTags reads <tag>,<ids> lines; see splitUltimateLine for how
// a tag name containing commas is told apart from the ids.
func ReadUltimateTags(r io.Reader, counter *progress.Counter) (map[string][]uint64, error) {
	tags := make(map[string][]uint64)
	err := ingest.EachLine(r, counter, func(line string) error {
		name, ids, err := splitUltimateLine(line)
		if err != nil {
			return err
		}
		tags[name] = append(tags[name], ids...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read ultimate tags: %w", err)
	}
	return tags, nil
}

func parseIDs(fields []string) ([]uint64, error) {
	ids := make([]uint64, len(fields))
	for i, f := range fields {
		id, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// ParseGeoRow parses one preprocessed geotag row.
func ParseGeoRow(line string) (uint64, store.GeoRecord, error) {
	f := strings.Split(line, ",")
	if len(f) != 7 {
		return 0, store.GeoRecord{}, fmt.Errorf("%w: expected 7 fields, got %d", ErrMalformedRow, len(f))
	}

	var (
		rec  store.GeoRecord
		errs []error
	)
	id, err := strconv.ParseUint(f[0], 10, 64)
	errs = append(errs, err)
	t, err := strconv.ParseInt(f[1], 10, 32)
	errs = append(errs, err)
	rec.Time = int32(t)
	rec.Latitude, err = strconv.ParseFloat(f[2], 64)
	errs = append(errs, err)
	rec.Longitude, err = strconv.ParseFloat(f[3], 64)
	errs = append(errs, err)
	d, err := strconv.ParseUint(f[4], 10, 8)
	if err == nil && d > 9 {
		err = fmt.Errorf("domain %d is not a single digit", d)
	}
	errs = append(errs, err)
	rec.DomainNum = uint8(d)
	p, err := strconv.ParseUint(f[5], 10, 16)
	errs = append(errs, err)
	rec.URLNum1 = uint16(p)
	rec.URLNum2, err = strconv.ParseUint(f[6], 16, 64)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return 0, store.GeoRecord{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	return id, rec, nil
}

// ReadGeoTags loads preprocessed geotag rows into table. Malformed rows
// are logged and skipped. It returns the number of rows stored and skipped.
func ReadGeoTags(ctx context.Context, r io.Reader, table store.Table, counter *progress.Counter) (stored, ignored int64, err error) {
	err = ingest.EachLine(r, counter, func(line string) error {
		id, rec, err := ParseGeoRow(line)
		if err != nil {
			ignored++
			log.Printf("Ignored : %s (%v)", line, err)
			return nil
		}
		if err := table.Put(ctx, id, rec); err != nil {
			return err
		}
		stored++
		return nil
	})
	if err != nil {
		return stored, ignored, fmt.Errorf("read geotags: %w", err)
	}
	return stored, ignored, nil
}
