package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kk-code-lab/bigtext/internal/document"
	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
	"github.com/kk-code-lab/bigtext/internal/logging"
	"github.com/kk-code-lab/bigtext/internal/textsource"
)

type scanReport struct {
	Path       string
	Encoding   fsutil.Encoding
	LineEnding fsutil.LineEnding
	BOM        bool
	Mapped     bool
	Bytes      int64
	Chunks     int
	Lines      int64
	Chars      int64
	Elapsed    time.Duration
	// Err holds decode failures of single chunks; the rest of the file
	// was still indexed.
	Err error
}

func newScanCommand(e *env) *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "scan FILE...",
		Short: "Index files and report encoding, line ending and size",
		Long: `Open each file the way the editor would: small files are decoded at once,
large ones are memory-mapped and scanned in batches while progress is shown.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), e, args, jobs)
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "files scanned at once (default: number of CPUs)")
	return cmd
}

func runScan(ctx context.Context, e *env, paths []string, jobs int) error {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	progress := newProgressLine(e.stderr)
	reports := make([]scanReport, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			report, err := scanFile(gctx, e, path, func(p document.LoadProgress) {
				if p.TotalBytes > 0 && !p.Done {
					progress.Set("scanning %s %d%% (%d lines)", path, p.ScannedBytes*100/p.TotalBytes, p.Lines)
				}
			})
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	err := g.Wait()
	progress.Clear()
	if err != nil {
		return err
	}

	styles := NewStyles(IsColorEnabled(e.color, e.stdout))
	for i, r := range reports {
		if i > 0 {
			_, _ = fmt.Fprintln(e.stdout)
		}
		printScanReport(e, styles, r)
	}
	return nil
}

func scanFile(ctx context.Context, e *env, path string, onProgress func(document.LoadProgress)) (scanReport, error) {
	started := time.Now()
	doc, err := document.Open(ctx, path, e.cfg.DocumentOptions(e.logger))
	if err != nil {
		return scanReport{}, err
	}
	defer func() {
		_ = doc.Close()
	}()

	report := scanReport{Path: path}
	if err := doc.Load(ctx, onProgress); err != nil {
		if !errors.Is(err, textsource.ErrEncoding) {
			return scanReport{}, err
		}
		report.Err = err
		e.logger.Warn("file has undecodable chunks", logging.FieldPath, path, logging.FieldError, err)
	}

	pt := doc.Table()
	report.Encoding = doc.Encoding()
	report.LineEnding = doc.LineEnding()
	report.BOM = doc.HasBOM()
	report.Lines = pt.LineCount()
	report.Chars = pt.Len()
	if m := doc.Mapped(); m != nil {
		report.Mapped = true
		report.Bytes = m.TotalBytes()
		report.Chunks = m.ChunkCount()
	} else if info, err := os.Stat(path); err == nil {
		report.Bytes = info.Size()
	}
	report.Elapsed = time.Since(started)
	return report, nil
}

func printScanReport(e *env, styles *Styles, r scanReport) {
	field := func(label string, value any) {
		_, _ = fmt.Fprintf(e.stdout, "  %s %v\n", styles.Label.Render(fmt.Sprintf("%-12s", label+":")), value)
	}

	_, _ = fmt.Fprintln(e.stdout, styles.Path.Render(r.Path))
	field("encoding", r.Encoding)
	field("bom", r.BOM)
	field("line ending", r.LineEnding)
	field("bytes", r.Bytes)
	field("characters", r.Chars)
	field("lines", r.Lines)
	if r.Mapped {
		field("chunks", r.Chunks)
	}
	field("elapsed", styles.Dim.Render(r.Elapsed.Round(time.Millisecond).String()))
	if r.Err != nil {
		field("warning", styles.Warn.Render(r.Err.Error()))
	}
}
