package ingest

import (
	"bufio"
	"io"
	"strings"

	"github.com/taggeo/taggeo/internal/progress"
)

// readerSize fits typical lines in one read; NO_TAG lines of a
// preprocessed tag file can be far longer and are assembled by ReadString.
const readerSize = 1 << 20

// EachLine calls fn for every line of r with the line terminator removed.
// Lines have no length limit. counter may be nil.
func EachLine(r io.Reader, counter *progress.Counter, fn func(line string) error) error {
	br := bufio.NewReaderSize(r, readerSize)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			counter.Add()
			if fnErr := fn(line); fnErr != nil {
				return fnErr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
