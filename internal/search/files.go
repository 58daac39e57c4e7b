package search

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
	"github.com/kk-code-lab/bigtext/internal/logging"
	"github.com/kk-code-lab/bigtext/internal/textsource"
)

// DefaultFileMemoryThreshold is the size above which FindInFiles maps a file
// instead of decoding it into memory.
const DefaultFileMemoryThreshold = 16 << 20

// FileOptions configures FindInFiles.
type FileOptions struct {
	// Jobs bounds the number of files searched at once. Zero means GOMAXPROCS.
	Jobs int

	// NoIgnore disables .gitignore, .ignore and .bigtextignore handling.
	NoIgnore        bool
	IncludeHidden   bool
	MemoryThreshold int64

	// OnResults, when set, receives batches of results as files finish.
	// Batches arrive in completion order, not path order.
	OnResults func([]Result)
}

func (o FileOptions) withDefaults() FileOptions {
	if o.Jobs <= 0 {
		o.Jobs = runtime.GOMAXPROCS(0)
	}
	if o.MemoryThreshold <= 0 {
		o.MemoryThreshold = DefaultFileMemoryThreshold
	}
	return o
}

// FindInFiles searches every text file under root, or root itself when it is
// a file. Binary files are skipped, as are files that cannot be read or
// decoded. Results are ordered by path and then offset.
func FindInFiles(ctx context.Context, root string, opts Options, fopts FileOptions) ([]Result, error) {
	return defaultEngine.FindInFiles(ctx, root, opts, fopts)
}

// FindInFiles is the engine form of the package-level FindInFiles.
func (e *Engine) FindInFiles(ctx context.Context, root string, opts Options, fopts FileOptions) ([]Result, error) {
	if _, err := compile(opts, e.cfg); err != nil {
		return nil, err
	}
	fopts = fopts.withDefaults()
	info, err := os.Stat(root)
	if err != nil {
		return nil, &textsource.IOError{Op: "stat", Path: root, Err: err}
	}

	var acc *resultAccumulator
	if fopts.OnResults != nil {
		acc = newResultAccumulator(fopts.OnResults)
	}

	var mu sync.Mutex
	var results []Result
	files := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fopts.Jobs)
	submit := func(path string) {
		files++
		g.Go(func() error {
			found, err := e.searchFile(gctx, path, opts, fopts.MemoryThreshold)
			if err != nil {
				if errors.Is(err, ErrCancelled) {
					return err
				}
				e.cfg.Logger.Warn("skipping file", logging.FieldPath, path, logging.FieldError, err)
				return nil
			}
			if len(found) == 0 {
				return nil
			}
			mu.Lock()
			results = append(results, found...)
			mu.Unlock()
			acc.Add(found)
			return nil
		})
	}

	var walkErr error
	if info.IsDir() {
		w := newWalker(root, fopts.IncludeHidden, !fopts.NoIgnore)
		walkErr = w.walk(gctx, func(fullPath, _ string) error {
			submit(fullPath)
			return nil
		})
	} else {
		submit(root)
	}
	waitErr := g.Wait()
	acc.FlushRemaining()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FilePath != results[j].FilePath {
			return results[i].FilePath < results[j].FilePath
		}
		return results[i].Offset < results[j].Offset
	})
	e.cfg.Logger.Debug("file search finished",
		logging.FieldPath, root,
		logging.FieldFiles, files,
		logging.FieldMatches, len(results))

	if err := ctx.Err(); err != nil {
		return results, cancelled(err)
	}
	if waitErr != nil {
		return results, waitErr
	}
	return results, walkErr
}

func (e *Engine) searchFile(ctx context.Context, path string, opts Options, threshold int64) ([]Result, error) {
	src, closeFn, err := openFileSource(path, threshold, e.cfg)
	if err != nil || src == nil {
		return nil, err
	}
	defer closeFn()

	results, err := e.FindAll(ctx, src, opts, nil)
	for i := range results {
		results[i].FilePath = path
	}
	return results, err
}

// openFileSource returns nil for files that do not look like text.
func openFileSource(path string, threshold int64, cfg Config) (textsource.Source, func(), error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, &textsource.IOError{Op: "stat", Path: path, Err: err}
	}

	if info.Size() <= threshold {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, &textsource.IOError{Op: "read", Path: path, Err: err}
		}
		if !fsutil.IsTextFile(path, data) {
			return nil, nil, nil
		}
		text, enc, err := fsutil.DecodeBytes(data)
		if err != nil {
			return nil, nil, &textsource.EncodingError{Encoding: enc, Err: err}
		}
		return textsource.NewMemoryNormalized(text), func() {}, nil
	}

	sample, err := fsutil.ReadTextSample(path)
	if err != nil {
		return nil, nil, &textsource.IOError{Op: "read", Path: path, Err: err}
	}
	if !fsutil.IsTextFile(path, sample) {
		return nil, nil, nil
	}
	m, err := textsource.OpenMapped(path, textsource.MappedOptions{Normalize: true, Logger: cfg.Logger})
	if err != nil {
		return nil, nil, err
	}
	return m, func() { _ = m.Close() }, nil
}
