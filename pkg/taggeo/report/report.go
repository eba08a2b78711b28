package report

import (
	"crypto/rand"
	"io"
	"log"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

// Builder starts stage reports with unique, time-ordered run ids.
type Builder struct {
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a report builder
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Report describes one finished stage run.
type Report struct {
	RunID   string           `yaml:"run_id"`
	Stage   string           `yaml:"stage"`
	Started time.Time        `yaml:"started"`
	Elapsed time.Duration    `yaml:"elapsed"`
	Counts  map[string]int64 `yaml:"counts"`
	Outputs []string         `yaml:"outputs,omitempty"`

	now func() time.Time
}

// Start opens a report for stage.
func (b *Builder) Start(stage string) *Report {
	started := b.now()
	return &Report{
		RunID:   ulid.MustNew(ulid.Timestamp(started), b.entropy).String(),
		Stage:   stage,
		Started: started.UTC(),
		Counts:  make(map[string]int64),
		now:     b.now,
	}
}

// Set records a named count.
func (r *Report) Set(name string, n int64) { r.Counts[name] = n }

// Output records a written file.
func (r *Report) Output(path string) { r.Outputs = append(r.Outputs, path) }

// Finish stamps the elapsed time.
func (r *Report) Finish() {
	r.Elapsed = r.now().Sub(r.Started)
}

// Log prints the report, counts in name order.
func (r *Report) Log() {
	names := make([]string, 0, len(r.Counts))
	for name := range r.Counts {
		names = append(names, name)
	}
	sort.Strings(names)

	log.Printf("%s run %s finished in %s", r.Stage, r.RunID, r.Elapsed.Round(time.Millisecond))
	for _, name := range names {
		log.Printf("  %s: %s", name, humanize.Comma(r.Counts[name]))
	}
	for _, out := range r.Outputs {
		log.Printf("  wrote %s", out)
	}
}

// WriteYAML encodes the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
