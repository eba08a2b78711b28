// Package codec reads and writes the preprocessed and ultimate file formats:
//
//	tag_pp:          NO_TAG,<count>,<ids>   then   <tag>,<count>,<ids>
//	tag_ultimate:    <tag>,<ids>            (no count, no NO_TAG line)
//	geotag_pp / geotag_ultimate:
//	                 <id>,<time>,<lat>,<lon>,<domain>,<path>,<10 hex digits>
package codec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/taggeo/taggeo/pkg/taggeo/ingest"
	"github.com/taggeo/taggeo/pkg/taggeo/parse"
	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

const writerSize = 1 << 20

// WriteTagIndex writes the preprocessed tag file. The NO_TAG line always
// comes first, even when empty; tags follow in ascending name order. Ids
// filed under a tag named NO_TAG are written on the NO_TAG line.
func WriteTagIndex(w io.Writer, idx *ingest.TagIndex) error {
	bw := bufio.NewWriterSize(w, writerSize)
	var buf []byte

	untagged := idx.Untagged
	if extra := idx.Tags[parse.NoTag]; len(extra) > 0 {
		untagged = append(slices.Clip(untagged), extra...)
	}
	buf = appendCountedLine(buf[:0], parse.NoTag, untagged)
	bw.Write(buf)
	for _, name := range idx.Names() {
		if name == parse.NoTag {
			continue
		}
		buf = appendCountedLine(buf[:0], name, idx.Tags[name])
		bw.Write(buf)
	}
	return bw.Flush()
}

// WriteUltimateTags writes <tag>,<ids> lines in ascending tag order.
func WriteUltimateTags(w io.Writer, tags map[string][]uint64) error {
	idx := ingest.TagIndex{Tags: tags}
	bw := bufio.NewWriterSize(w, writerSize)
	var buf []byte

	for _, name := range idx.Names() {
		buf = append(buf[:0], name...)
		buf = append(buf, ',')
		buf = appendIDs(buf, tags[name])
		buf = append(buf, '\n')
		bw.Write(buf)
	}
	return bw.Flush()
}

// WriteGeoTags writes one row per id in ids, in the given order. With nil
// ids it writes the whole table in ascending id order. An id absent from
// the table is an error. It returns the number of rows written.
func WriteGeoTags(ctx context.Context, w io.Writer, table store.Table, ids []uint64) (int, error) {
	bw := bufio.NewWriterSize(w, writerSize)
	var buf []byte
	n := 0

	if ids == nil {
		err := table.Each(ctx, func(id uint64, rec store.GeoRecord) error {
			buf = AppendGeoRow(buf[:0], id, rec)
			buf = append(buf, '\n')
			n++
			_, err := bw.Write(buf)
			return err
		})
		if err != nil {
			return n, err
		}
		return n, bw.Flush()
	}

	for _, id := range ids {
		rec, ok, err := table.Get(ctx, id)
		if err != nil {
			return n, err
		}
		if !ok {
			return n, fmt.Errorf("write geotags: id %d not in table", id)
		}
		buf = AppendGeoRow(buf[:0], id, rec)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// AppendGeoRow appends the preprocessed row for id, without a newline.
// The secret is always 10 lowercase hex digits, zero padded.
func AppendGeoRow(b []byte, id uint64, rec store.GeoRecord) []byte {
	b = strconv.AppendUint(b, id, 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(rec.Time), 10)
	b = append(b, ',')
	b = strconv.AppendFloat(b, rec.Latitude, 'f', -1, 64)
	b = append(b, ',')
	b = strconv.AppendFloat(b, rec.Longitude, 'f', -1, 64)
	b = append(b, ',')
	b = strconv.AppendUint(b, uint64(rec.DomainNum), 10)
	b = append(b, ',')
	b = strconv.AppendUint(b, uint64(rec.URLNum1), 10)
	return fmt.Appendf(b, ",%010x", rec.URLNum2)
}

// FormatGeoRow returns the preprocessed row for id.
func FormatGeoRow(id uint64, rec store.GeoRecord) string {
	return string(AppendGeoRow(nil, id, rec))
}

func appendCountedLine(b []byte, name string, ids []uint64) []byte {
	b = append(b, name...)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(len(ids)), 10)
	b = append(b, ',')
	b = appendIDs(b, ids)
	return append(b, '\n')
}

func appendIDs(b []byte, ids []uint64) []byte {
	for i, id := range ids {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendUint(b, id, 10)
	}
	return b
}

// WriteFileAtomic writes path through fn. Output goes to a temporary file
// in the same directory which is renamed over path only after fn, flush,
// sync and close all succeed.
func WriteFileAtomic(path string, fn func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fn(tmp); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
