package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/taggeo/taggeo/pkg/taggeo"
	"github.com/taggeo/taggeo/pkg/taggeo/codec"
	"github.com/taggeo/taggeo/pkg/taggeo/config"
	"github.com/taggeo/taggeo/pkg/taggeo/geocell"
	"github.com/taggeo/taggeo/pkg/taggeo/report"
)

const usageText = `Usage: taggeo [global flags] <command> [args]

Commands:
  tag-pp <tag> <to>                       aggregate tags into the preprocessed tag file
  geotag-pp <tag_pp> <geotag> <to>        compact geotags, dropping untagged photos
  ultimate [-dir d]                       keep the newest photos of every tag
  gen-test <tag> <geotag> <to_dir> <num>  extract a small coherent sample
  hikaku <tag> <geotag>                   compare the id sets of a tag and a geotag file
  cells [-level n] [-top k] <geotag_pp>   count photos per S2 cell

Global flags:
`

var errUsage = errors.New("usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Fatalf("taggeo: %v", err)
	}
}

// app carries the global flags into each subcommand.
type app struct {
	stdout     io.Writer
	configPath string
	strict     bool
	topN       int
	store      string
	reportPath string
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	a := &app{stdout: stdout}

	global := flag.NewFlagSet("taggeo", flag.ContinueOnError)
	global.StringVar(&a.configPath, "config", "", "YAML configuration file (optional)")
	global.BoolVar(&a.strict, "strict", false, "fail when a tagged photo has no geotag instead of skipping it")
	global.IntVar(&a.topN, "top-n", 0, "photos kept per tag by ultimate (0 = from config)")
	global.StringVar(&a.store, "store", "", "geotag table backend: memory or sqlite (empty = from config)")
	global.StringVar(&a.reportPath, "report", "", "write the stage report as YAML to this file")
	global.Usage = func() {
		fmt.Fprint(global.Output(), usageText)
		global.PrintDefaults()
	}

	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return errUsage
	}

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "tag-pp":
		return a.tagPP(ctx, cmdArgs)
	case "geotag-pp":
		return a.geotagPP(ctx, cmdArgs)
	case "ultimate":
		return a.ultimate(ctx, cmdArgs)
	case "gen-test":
		return a.genTest(ctx, cmdArgs)
	case "hikaku":
		return a.hikaku(ctx, cmdArgs)
	case "cells":
		return a.cells(ctx, cmdArgs)
	default:
		fmt.Fprintf(global.Output(), "unknown command %q\n\n", cmd)
		global.Usage()
		return errUsage
	}
}

// processor builds a Processor from the configuration file, the global
// flags and then extra.
func (a *app) processor(extra func(*config.Config)) (*taggeo.Processor, error) {
	loader := config.Loader{
		ConfigPath: a.configPath,
		Apply: func(c *config.Config) {
			if a.strict {
				c.Rank.Strict = true
			}
			if a.topN != 0 {
				c.Rank.TopN = a.topN
			}
			if a.store != "" {
				c.Store.Driver = a.store
			}
			if extra != nil {
				extra(c)
			}
		},
	}

	components, err := loader.Load()
	if err != nil {
		return nil, err
	}
	return taggeo.New(taggeo.Options{Components: components})
}

// finish logs rep and writes it when -report is set.
func (a *app) finish(rep *report.Report) error {
	rep.Log()
	if a.reportPath == "" {
		return nil
	}
	return codec.WriteFileAtomic(a.reportPath, rep.WriteYAML)
}

// parseArgs parses fs allowing flags before, between and after the
// positional arguments, and checks their number.
func parseArgs(fs *flag.FlagSet, args []string, want int, usage string) ([]string, error) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: taggeo %s\n", usage)
		fs.PrintDefaults()
	}

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, errUsage
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	if len(positional) != want {
		fs.Usage()
		return nil, errUsage
	}
	return positional, nil
}

func (a *app) tagPP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tag-pp", flag.ContinueOnError)
	pos, err := parseArgs(fs, args, 2, "tag-pp <tag> <to>")
	if err != nil {
		return err
	}

	p, err := a.processor(nil)
	if err != nil {
		return err
	}
	rep, err := p.TagPP(ctx, pos[0], pos[1])
	if err != nil {
		return err
	}
	return a.finish(rep)
}

func (a *app) geotagPP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("geotag-pp", flag.ContinueOnError)
	pos, err := parseArgs(fs, args, 3, "geotag-pp <tag_pp> <geotag> <to>")
	if err != nil {
		return err
	}

	p, err := a.processor(nil)
	if err != nil {
		return err
	}
	rep, err := p.GeotagPP(ctx, pos[0], pos[1], pos[2])
	if err != nil {
		return err
	}
	return a.finish(rep)
}

func (a *app) ultimate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ultimate", flag.ContinueOnError)
	dir := fs.String("dir", "", "directory holding the input and output files (empty = from config)")
	if _, err := parseArgs(fs, args, 0, "ultimate [-dir d]"); err != nil {
		return err
	}

	p, err := a.processor(func(c *config.Config) {
		if *dir != "" {
			c.Ultimate.Dir = *dir
		}
	})
	if err != nil {
		return err
	}
	rep, err := p.Ultimate(ctx)
	if err != nil {
		return err
	}
	return a.finish(rep)
}

func (a *app) genTest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gen-test", flag.ContinueOnError)
	pos, err := parseArgs(fs, args, 4, "gen-test <tag> <geotag> <to_dir> <num>")
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(pos[3])
	if err != nil || n < 0 {
		return fmt.Errorf("gen-test: num must be a non-negative integer, got %q", pos[3])
	}

	p, err := a.processor(nil)
	if err != nil {
		return err
	}
	rep, err := p.GenTest(ctx, pos[0], pos[1], pos[2], n)
	if err != nil {
		return err
	}
	return a.finish(rep)
}

func (a *app) hikaku(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("hikaku", flag.ContinueOnError)
	pos, err := parseArgs(fs, args, 2, "hikaku <tag> <geotag>")
	if err != nil {
		return err
	}

	p, err := a.processor(nil)
	if err != nil {
		return err
	}
	res, rep, err := p.Hikaku(ctx, pos[0], pos[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "ids in %s: %s\n", pos[0], humanize.Comma(int64(res.TagIDs)))
	fmt.Fprintf(a.stdout, "ids in %s: %s\n", pos[1], humanize.Comma(int64(res.GeoIDs)))
	fmt.Fprintf(a.stdout, "only in %s: %s\n", pos[0], humanize.Comma(int64(len(res.TagOnly))))
	for _, id := range res.TagOnly {
		fmt.Fprintln(a.stdout, id)
	}
	fmt.Fprintf(a.stdout, "only in %s: %s\n", pos[1], humanize.Comma(int64(len(res.GeoOnly))))
	for _, id := range res.GeoOnly {
		fmt.Fprintln(a.stdout, id)
	}
	return a.finish(rep)
}

func (a *app) cells(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cells", flag.ContinueOnError)
	level := fs.Int("level", geocell.DefaultLevel, "S2 cell level (0-30)")
	top := fs.Int("top", 20, "number of cells to print (0 = all)")
	pos, err := parseArgs(fs, args, 1, "cells [-level n] [-top k] <geotag_pp>")
	if err != nil {
		return err
	}

	p, err := a.processor(nil)
	if err != nil {
		return err
	}
	cells, rep, err := p.Cells(ctx, pos[0], *level, *top)
	if err != nil {
		return err
	}

	for _, c := range cells {
		center := c.Center()
		fmt.Fprintf(a.stdout, "%s\t%.5f\t%.5f\t%s\n",
			c.Token(), center.Lat.Degrees(), center.Lng.Degrees(), humanize.Comma(int64(c.Count)))
	}
	return a.finish(rep)
}
