package taggeo

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/taggeo/taggeo/internal/progress"
	"github.com/taggeo/taggeo/pkg/taggeo/codec"
	"github.com/taggeo/taggeo/pkg/taggeo/compare"
	"github.com/taggeo/taggeo/pkg/taggeo/config"
	"github.com/taggeo/taggeo/pkg/taggeo/geocell"
	"github.com/taggeo/taggeo/pkg/taggeo/ingest"
	"github.com/taggeo/taggeo/pkg/taggeo/report"
	"github.com/taggeo/taggeo/pkg/taggeo/sample"
	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

// Stage names used in reports
const (
	StageTagPP    = "tag-pp"
	StageGeotagPP = "geotag-pp"
	StageUltimate = "ultimate"
	StageGenTest  = "gen-test"
	StageHikaku   = "hikaku"
	StageCells    = "cells"
)

// Sample file names written by GenTest
const (
	SampleTagFile    = "tag.csv"
	SampleGeotagFile = "geotag.csv"
)

// Processor is the facade running each stage of the pipeline. Every stage
// reads its inputs to completion before it creates any output file.
type Processor struct {
	comp    *config.Components
	reports *report.Builder
}

// Options configures a Processor
type Options struct {
	Components *config.Components // nil means built-in defaults
	Reports    *report.Builder    // nil means a fresh builder
}

// New creates a Processor with the given dependencies
func New(opts Options) (*Processor, error) {
	comp := opts.Components
	if comp == nil {
		var err error
		if comp, err = config.Build(config.Default()); err != nil {
			return nil, err
		}
	}
	reports := opts.Reports
	if reports == nil {
		reports = report.New()
	}
	return &Processor{comp: comp, reports: reports}, nil
}

// Config returns the configuration the processor runs with.
func (p *Processor) Config() *config.Config { return p.comp.Config }

// TagPP aggregates the raw tag file into the preprocessed tag file.
func (p *Processor) TagPP(ctx context.Context, tagPath, outPath string) (*report.Report, error) {
	rep := p.reports.Start(StageTagPP)

	var (
		idx   *ingest.TagIndex
		stats ingest.TagStats
	)
	err := p.scanFile(tagPath, func(r io.Reader, c *progress.Counter) error {
		var err error
		idx, stats, err = ingest.AggregateTags(r, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := codec.WriteFileAtomic(outPath, func(w io.Writer) error {
		return codec.WriteTagIndex(w, idx)
	}); err != nil {
		return nil, err
	}

	rep.Set("lines", stats.Lines)
	rep.Set("ignored", stats.Ignored)
	rep.Set("tags", int64(stats.Tags))
	rep.Set("untagged", int64(stats.Untagged))
	rep.Output(outPath)
	rep.Finish()
	return rep, nil
}

// GeotagPP compacts the raw geotag file, dropping ids listed on the
// NO_TAG line of the preprocessed tag file.
func (p *Processor) GeotagPP(ctx context.Context, tagPPPath, geotagPath, outPath string) (*report.Report, error) {
	rep := p.reports.Start(StageGeotagPP)

	var excluded store.IDSet
	err := p.scanFile(tagPPPath, func(r io.Reader, _ *progress.Counter) error {
		var err error
		excluded, err = codec.ReadUntagged(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read untagged ids: %w", err)
	}

	table, err := p.comp.OpenTable(ctx)
	if err != nil {
		return nil, err
	}
	defer table.Close()

	var stats ingest.GeoStats
	err = p.scanFile(geotagPath, func(r io.Reader, c *progress.Counter) error {
		var err error
		stats, err = ingest.CompactGeoTags(ctx, r, p.comp.Grammar, excluded, table, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := codec.WriteFileAtomic(outPath, func(w io.Writer) error {
		_, err := codec.WriteGeoTags(ctx, w, table, nil)
		return err
	}); err != nil {
		return nil, err
	}

	rep.Set("lines", stats.Lines)
	rep.Set("excluded", stats.Excluded)
	rep.Set("ignored", stats.Ignored)
	rep.Set("leading_zero", stats.LeadingZero)
	rep.Set("retained", int64(stats.Retained))
	rep.Output(outPath)
	rep.Finish()
	return rep, nil
}

// Ultimate ranks every tag's ids by capture time, keeps the newest TopN,
// and writes the reduced tag and geotag files. File names come from the
// configuration.
func (p *Processor) Ultimate(ctx context.Context) (*report.Report, error) {
	rep := p.reports.Start(StageUltimate)
	u := p.comp.Config.Ultimate

	var idx *ingest.TagIndex
	err := p.scanFile(u.Path(u.TagPP), func(r io.Reader, c *progress.Counter) error {
		var err error
		idx, err = codec.ReadTagIndex(r, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	table, err := p.comp.OpenTable(ctx)
	if err != nil {
		return nil, err
	}
	defer table.Close()

	var stored, ignored int64
	err = p.scanFile(u.Path(u.GeotagPP), func(r io.Reader, c *progress.Counter) error {
		var err error
		stored, ignored, err = codec.ReadGeoTags(ctx, r, table, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	res, err := p.comp.Ranker.Rank(ctx, idx.Tags, table)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	tagOut, geoOut := u.Path(u.TagOut), u.Path(u.GeotagOut)
	if err := codec.WriteFileAtomic(tagOut, func(w io.Writer) error {
		return codec.WriteUltimateTags(w, res.Tags)
	}); err != nil {
		return nil, err
	}
	if err := codec.WriteFileAtomic(geoOut, func(w io.Writer) error {
		_, err := codec.WriteGeoTags(ctx, w, table, res.IDs)
		return err
	}); err != nil {
		return nil, err
	}

	rep.Set("tags", int64(len(res.Tags)))
	rep.Set("geotags_read", stored)
	rep.Set("ignored", ignored)
	rep.Set("missing", int64(res.Missing))
	rep.Set("retained", int64(len(res.IDs)))
	rep.Output(tagOut)
	rep.Output(geoOut)
	rep.Finish()
	return rep, nil
}

// GenTest copies the first n matching geotag lines and the tag lines of
// the same photos into toDir, which is created if needed.
func (p *Processor) GenTest(ctx context.Context, tagPath, geotagPath, toDir string, n int) (*report.Report, error) {
	rep := p.reports.Start(StageGenTest)

	var s *sample.Sample
	err := p.scanFile(geotagPath, func(r io.Reader, c *progress.Counter) error {
		var err error
		s, err = sample.TakeGeoTags(r, p.comp.Grammar, n, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = p.scanFile(tagPath, func(r io.Reader, c *progress.Counter) error {
		return s.CollectTags(r, c)
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(toDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", toDir, err)
	}
	geoOut := filepath.Join(toDir, SampleGeotagFile)
	tagOut := filepath.Join(toDir, SampleTagFile)
	if err := codec.WriteFileAtomic(geoOut, func(w io.Writer) error {
		return sample.WriteLines(w, s.GeoLines)
	}); err != nil {
		return nil, err
	}
	if err := codec.WriteFileAtomic(tagOut, func(w io.Writer) error {
		return sample.WriteLines(w, s.TagLines)
	}); err != nil {
		return nil, err
	}

	rep.Set("geotag_lines", int64(len(s.GeoLines)))
	rep.Set("tag_lines", int64(len(s.TagLines)))
	rep.Output(geoOut)
	rep.Output(tagOut)
	rep.Finish()
	return rep, nil
}

// Hikaku compares the ids referenced by a tag file with the ids present in
// a geotag file.
func (p *Processor) Hikaku(ctx context.Context, tagPath, geotagPath string) (compare.Result, *report.Report, error) {
	rep := p.reports.Start(StageHikaku)

	var tagIDs, geoIDs store.IDSet
	err := p.scanFile(tagPath, func(r io.Reader, c *progress.Counter) error {
		var err error
		tagIDs, err = compare.TagIDs(r, c)
		return err
	})
	if err != nil {
		return compare.Result{}, nil, err
	}
	err = p.scanFile(geotagPath, func(r io.Reader, c *progress.Counter) error {
		var err error
		geoIDs, err = compare.GeoIDs(r, c)
		return err
	})
	if err != nil {
		return compare.Result{}, nil, err
	}

	res := compare.Compare(tagIDs, geoIDs)
	rep.Set("tag_ids", int64(res.TagIDs))
	rep.Set("geotag_ids", int64(res.GeoIDs))
	rep.Set("tag_only", int64(len(res.TagOnly)))
	rep.Set("geotag_only", int64(len(res.GeoOnly)))
	rep.Finish()
	return res, rep, nil
}

// Cells loads a preprocessed geotag file and counts rows per S2 cell at
// level. It returns the top busiest cells; top <= 0 returns all of them.
func (p *Processor) Cells(ctx context.Context, geotagPPPath string, level, top int) ([]geocell.Cell, *report.Report, error) {
	rep := p.reports.Start(StageCells)

	table, err := p.comp.OpenTable(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer table.Close()

	var stored, ignored int64
	err = p.scanFile(geotagPPPath, func(r io.Reader, c *progress.Counter) error {
		var err error
		stored, ignored, err = codec.ReadGeoTags(ctx, r, table, c)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	h, err := geocell.FromTable(ctx, table, level)
	if err != nil {
		return nil, nil, fmt.Errorf("count cells: %w", err)
	}

	rep.Set("geotags_read", stored)
	rep.Set("ignored", ignored)
	rep.Set("cells", int64(h.Len()))
	rep.Finish()
	return h.Top(top), rep, nil
}

// scanFile opens path and hands it to fn with a progress counter, closing
// the file before returning.
func (p *Processor) scanFile(path string, fn func(r io.Reader, c *progress.Counter) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	counter := progress.New(filepath.Base(path), p.comp.Config.ProgressInterval)
	if err := fn(f, counter); err != nil {
		return err
	}
	counter.Done()
	return nil
}
