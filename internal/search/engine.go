package search

import (
	"context"
	"time"

	"github.com/kk-code-lab/bigtext/internal/logging"
	"github.com/kk-code-lab/bigtext/internal/textsource"
)

// Engine runs searches over text sources.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine; zero Config fields take their defaults.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

var defaultEngine = NewEngine(Config{})

// FindNext searches src with the default engine.
func FindNext(src textsource.Source, from int64, opts Options) (*Result, error) {
	return defaultEngine.FindNext(src, from, opts)
}

// FindAll searches src with the default engine.
func FindAll(ctx context.Context, src textsource.Source, opts Options, progress func(int)) ([]Result, error) {
	return defaultEngine.FindAll(ctx, src, opts, progress)
}

// FindNext returns the first match starting at or after from. With
// WrapAround it continues from the start of src. It returns nil when
// nothing matches.
func (e *Engine) FindNext(src textsource.Source, from int64, opts Options) (*Result, error) {
	length := src.Len()
	if from < 0 || from > length {
		return nil, &textsource.RangeError{Offset: from, Len: length}
	}
	m, err := compile(opts, e.cfg)
	if err != nil {
		return nil, err
	}

	lines := newLineResolver(src, e.cfg.TabWidth)
	var found *Result
	emit := func(pos int64, n int) (bool, error) {
		r, err := lines.result(pos, n)
		if err != nil {
			return false, err
		}
		found = &r
		return false, nil
	}

	ctx := context.Background()
	if err := e.scan(ctx, src, m, opts.WholeWord, from, length, nil, emit); err != nil {
		return nil, err
	}
	if found == nil && opts.WrapAround && from > 0 {
		if err := e.scan(ctx, src, m, opts.WholeWord, 0, from, nil, emit); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// FindAll returns every non-overlapping match in ascending order. progress,
// when set, receives percentages 0 to 100 as they change. If ctx is
// cancelled between windows the matches found so far are returned together
// with an error matching both ErrCancelled and the context error.
func (e *Engine) FindAll(ctx context.Context, src textsource.Source, opts Options, progress func(int)) ([]Result, error) {
	m, err := compile(opts, e.cfg)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	length := src.Len()
	reporter := newProgressReporter(length, progress)
	lines := newLineResolver(src, e.cfg.TabWidth)

	var results []Result
	err = e.scan(ctx, src, m, opts.WholeWord, 0, length, reporter.update, func(pos int64, n int) (bool, error) {
		r, err := lines.result(pos, n)
		if err != nil {
			return false, err
		}
		results = append(results, r)
		return true, nil
	})
	if err != nil {
		return results, err
	}
	reporter.finish()

	e.cfg.Logger.Debug("search finished",
		logging.FieldPattern, opts.Pattern,
		logging.FieldMatches, len(results),
		logging.FieldWindow, e.cfg.WindowSize,
		logging.FieldDuration, time.Since(started))
	return results, nil
}

// scan emits matches starting in [start, end). Windows hold WindowSize
// starting positions; each window's text reaches past its end by the
// matcher's overlap, and a match starting beyond the window is left to the
// next one. lastEnd keeps the emitted matches from overlapping.
func (e *Engine) scan(ctx context.Context, src textsource.Source, m matcher, wholeWord bool,
	start, end int64, progress func(int64), emit func(pos int64, n int) (bool, error)) error {
	length := src.Len()
	step := e.cfg.WindowSize
	lastEnd := start

	for winStart := start; winStart < end; winStart += step {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		keepEnd := min(winStart+step, end)
		ctxStart := max(0, winStart-m.leftContext())
		textEnd := min(keepEnd+m.overlap()+1, length)
		text, err := src.Text(ctxStart, textEnd-ctxStart)
		if err != nil {
			return err
		}

		w := newWindow(text, ctxStart)
		from := int(max(lastEnd, winStart) - ctxStart)
		for {
			pos, n, err := m.next(w, from)
			if err != nil {
				return err
			}
			if pos < 0 {
				break
			}
			abs := ctxStart + int64(pos)
			if abs >= keepEnd {
				break
			}
			if wholeWord && !w.isWholeWord(pos, n) {
				from = pos + 1
				continue
			}
			more, err := emit(abs, n)
			if err != nil || !more {
				return err
			}
			lastEnd = abs + int64(n)
			from = pos + n
		}
		if progress != nil {
			progress(keepEnd - start)
		}
	}
	return nil
}

type progressReporter struct {
	total int64
	last  int
	fn    func(int)
}

func newProgressReporter(total int64, fn func(int)) *progressReporter {
	r := &progressReporter{total: total, last: -1, fn: fn}
	r.report(0)
	return r
}

func (r *progressReporter) update(scanned int64) {
	if r.total <= 0 {
		return
	}
	r.report(int(scanned * 100 / r.total))
}

func (r *progressReporter) finish() { r.report(100) }

func (r *progressReporter) report(percent int) {
	if r.fn == nil || percent <= r.last {
		return
	}
	r.last = percent
	r.fn(percent)
}
