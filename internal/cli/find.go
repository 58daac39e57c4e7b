package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kk-code-lab/bigtext/internal/document"
	"github.com/kk-code-lab/bigtext/internal/logging"
	"github.com/kk-code-lab/bigtext/internal/search"
	"github.com/kk-code-lab/bigtext/internal/textsource"
	"github.com/kk-code-lab/bigtext/internal/textutil"
)

type findFlags struct {
	ignoreCase bool
	wholeWord  bool
	regex      bool
	hidden     bool
	noIgnore   bool
	count      bool
	jobs       int
}

func newFindCommand(e *env) *cobra.Command {
	var flags findFlags

	cmd := &cobra.Command{
		Use:   "find PATTERN PATH...",
		Short: "Search files or directory trees for a pattern",
		Long: `Search for a literal or regular expression. A file argument is opened as a
document and searched with progress; a directory is walked honouring
.gitignore, .ignore and .bigtextignore files.

Exits with status 1 when nothing matches.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd.Context(), e, args[0], args[1:], flags)
		},
	}
	cmd.Flags().BoolVarP(&flags.ignoreCase, "ignore-case", "i", false, "match case-insensitively")
	cmd.Flags().BoolVarP(&flags.wholeWord, "word", "w", false, "match whole words only")
	cmd.Flags().BoolVarP(&flags.regex, "regex", "e", false, "treat PATTERN as a regular expression")
	cmd.Flags().BoolVar(&flags.hidden, "hidden", false, "search hidden files and directories")
	cmd.Flags().BoolVar(&flags.noIgnore, "no-ignore", false, "do not read ignore files")
	cmd.Flags().BoolVarP(&flags.count, "count", "c", false, "print only the number of matches per file")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 0, "files searched at once (default: from config)")
	return cmd
}

func runFind(ctx context.Context, e *env, pattern string, paths []string, flags findFlags) error {
	opts := search.Options{
		Pattern:   pattern,
		MatchCase: !flags.ignoreCase,
		WholeWord: flags.wholeWord,
		UseRegex:  flags.regex,
	}
	engine := search.NewEngine(e.cfg.EngineConfig(e.logger))
	fopts := e.cfg.FileOptions()
	fopts.IncludeHidden = fopts.IncludeHidden || flags.hidden
	fopts.NoIgnore = fopts.NoIgnore || flags.noIgnore
	if flags.jobs > 0 {
		fopts.Jobs = flags.jobs
	}

	progress := newProgressLine(e.stderr)
	var results []search.Result
	showPaths := len(paths) > 1
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			progress.Clear()
			return &textsource.IOError{Op: "stat", Path: path, Err: err}
		}

		var found []search.Result
		if info.IsDir() {
			showPaths = true
			total := 0
			fopts.OnResults = func(batch []search.Result) {
				total += len(batch)
				progress.Set("searching %s: %d matches", path, total)
			}
			found, err = engine.FindInFiles(ctx, path, opts, fopts)
		} else {
			found, err = findInDocument(ctx, e, engine, path, opts, func(percent int) {
				progress.Set("searching %s %d%%", path, percent)
			})
		}
		if err != nil {
			progress.Clear()
			return err
		}
		results = append(results, found...)
	}
	progress.Clear()

	e.logger.Debug("find finished", logging.FieldPattern, pattern, logging.FieldMatches, len(results))
	if len(results) == 0 {
		return ErrNoMatches
	}

	styles := NewStyles(IsColorEnabled(e.color, e.stdout))
	if flags.count {
		printCounts(e, styles, results)
		return nil
	}
	for _, group := range search.GroupByLine(results) {
		_, _ = fmt.Fprintln(e.stdout, formatLine(styles, group, showPaths, e.cfg.Search.TabWidth))
	}
	return nil
}

// findInDocument opens path as a document, waits for its scan and runs a
// background search over it, cancelling the search when ctx ends.
func findInDocument(ctx context.Context, e *env, engine *search.Engine, path string, opts search.Options, progress func(int)) ([]search.Result, error) {
	doc, err := document.Open(ctx, path, e.cfg.DocumentOptions(e.logger))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = doc.Close()
	}()
	if err := doc.Load(ctx, nil); err != nil && !errors.Is(err, textsource.ErrEncoding) {
		return nil, err
	}

	searcher := search.NewSearcher(engine)
	done := make(chan search.Update, 1)
	searcher.FindAllAsync(doc.Table(), opts, func(u search.Update) {
		if u.Done {
			done <- u
			return
		}
		progress(u.Percent)
	})

	var final search.Update
	select {
	case final = <-done:
	case <-ctx.Done():
		searcher.Cancel()
		final = <-done
	}
	searcher.Wait()

	for i := range final.Results {
		final.Results[i].FilePath = path
	}
	return final.Results, final.Err
}

func printCounts(e *env, styles *Styles, results []search.Result) {
	path := results[0].FilePath
	n := 0
	flush := func() {
		_, _ = fmt.Fprintf(e.stdout, "%s:%d\n", styles.Path.Render(path), n)
	}
	for _, r := range results {
		if r.FilePath != path {
			flush()
			path, n = r.FilePath, 0
		}
		n++
	}
	flush()
}

// formatLine renders "path:line:column: text" with the matches highlighted.
// Line and column are one-based.
func formatLine(styles *Styles, group search.LineMatches, showPath bool, tabWidth int) string {
	var b strings.Builder
	if showPath {
		b.WriteString(styles.Path.Render(group.FilePath))
		b.WriteByte(':')
	}
	b.WriteString(styles.LineNo.Render(fmt.Sprint(group.Line + 1)))
	b.WriteByte(':')
	b.WriteString(fmt.Sprint(group.Column + 1))
	b.WriteString(": ")
	b.WriteString(highlight(styles, group.LineText, group.Spans, tabWidth))
	return b.String()
}

// highlight styles the rune spans of line. Tabs are expanded relative to the
// start of the line, so each segment is expanded together with its prefix.
func highlight(styles *Styles, line string, spans []search.MatchSpan, tabWidth int) string {
	line = strings.TrimRight(line, "\r\n")
	runes := []rune(line)
	var b strings.Builder
	expandedPrefix := ""
	prev := 0
	emit := func(end int, style func(string) string) {
		end = min(end, len(runes))
		if end <= prev {
			return
		}
		expanded := textutil.ExpandTabs(string(runes[:end]), tabWidth)
		segment := expanded[len(expandedPrefix):]
		expandedPrefix = expanded
		prev = end
		b.WriteString(style(textutil.SanitizeLine(segment, 0)))
	}
	plain := func(s string) string { return s }
	for _, span := range spans {
		emit(span.Start, plain)
		emit(span.End+1, func(s string) string { return styles.Match.Render(s) })
	}
	emit(len(runes), plain)
	return b.String()
}
