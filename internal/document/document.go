// Package document ties a file to the piece table that edits it: it picks an
// in-memory or mapped source, drives the incremental scan of large files and
// swaps in a fresh table at every scan checkpoint.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/viant/afs"

	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
	"github.com/kk-code-lab/bigtext/internal/logging"
	"github.com/kk-code-lab/bigtext/internal/piecetable"
	"github.com/kk-code-lab/bigtext/internal/textsource"
)

// DefaultMemoryThreshold is the largest file decoded fully into memory.
const DefaultMemoryThreshold = 16 << 20

// Options configures Open.
type Options struct {
	// KeepLineEndings stores CR and CRLF as-is instead of folding them to LF.
	KeepLineEndings bool

	MemoryThreshold  int64
	ChunkSize        int
	CacheBytes       int64
	FirstBatchChunks int
	BatchChunks      int

	// Encoding overrides detection when set.
	Encoding *fsutil.Encoding

	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.MemoryThreshold <= 0 {
		o.MemoryThreshold = DefaultMemoryThreshold
	}
	if o.FirstBatchChunks <= 0 {
		o.FirstBatchChunks = textsource.FirstBatchChunks
	}
	if o.BatchChunks <= 0 {
		o.BatchChunks = textsource.BatchChunks
	}
	o.Logger = logging.OrDefault(o.Logger)
	return o
}

// LoadProgress is reported after every scan batch.
type LoadProgress struct {
	ScannedBytes int64
	TotalBytes   int64
	Lines        int64
	Done         bool
}

// Document is an open file and its current piece table.
type Document struct {
	path       string
	encoding   fsutil.Encoding
	bom        bool
	lineEnding fsutil.LineEnding
	normalized bool
	mapped     *textsource.Mapped
	opts       Options
	logger     *log.Logger

	table  atomic.Pointer[piecetable.PieceTable]
	loaded atomic.Bool
}

// Open opens path. Files up to opts.MemoryThreshold are decoded at once and
// ready for editing; larger files are mapped and stay read-only until Load
// completes.
func Open(ctx context.Context, path string, opts Options) (*Document, error) {
	opts = opts.withDefaults()
	info, err := os.Stat(path)
	if err != nil {
		return nil, &textsource.IOError{Op: "stat", Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &textsource.IOError{Op: "open", Path: path, Err: errors.New("is a directory")}
	}
	if info.Size() <= opts.MemoryThreshold {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &textsource.IOError{Op: "read", Path: path, Err: err}
		}
		return fromBytes(path, data, opts)
	}

	mapped, err := textsource.OpenMapped(path, textsource.MappedOptions{
		Normalize:  !opts.KeepLineEndings,
		DeferScan:  true,
		ChunkSize:  opts.ChunkSize,
		CacheBytes: opts.CacheBytes,
		Encoding:   opts.Encoding,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	pt, err := piecetable.NewWithOptions(mapped.Snapshot(), piecetable.Options{EditErr: textsource.ErrNotReady})
	if err != nil {
		_ = mapped.Close()
		return nil, err
	}
	d := &Document{
		path:       path,
		encoding:   mapped.Encoding(),
		bom:        mapped.HasBOM(),
		lineEnding: mapped.LineEnding(),
		normalized: mapped.Normalized(),
		mapped:     mapped,
		opts:       opts,
		logger:     opts.Logger,
	}
	d.table.Store(pt)
	d.logger.Debug("opened mapped document", logging.FieldPath, path, logging.FieldBytes, info.Size())
	return d, nil
}

// OpenURL opens a local path or downloads a remote URL (any scheme the afs
// storage service understands) into memory.
func OpenURL(ctx context.Context, url string, opts Options) (*Document, error) {
	if !strings.Contains(url, "://") {
		return Open(ctx, url, opts)
	}
	opts = opts.withDefaults()
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, &textsource.IOError{Op: "download", Path: url, Err: err}
	}
	return fromBytes(url, data, opts)
}

// New creates an untitled in-memory document.
func New(text string) *Document {
	d := &Document{
		encoding:   fsutil.EncodingUTF8,
		lineEnding: fsutil.DetectLineEnding(text),
		normalized: true,
		logger:     logging.Default(),
	}
	d.table.Store(piecetable.NewFromString(fsutil.NormalizeLineEndings(text)))
	d.loaded.Store(true)
	return d
}

func fromBytes(path string, data []byte, opts Options) (*Document, error) {
	sample := data
	if len(sample) > fsutil.EncodingSampleSize {
		sample = sample[:fsutil.EncodingSampleSize]
	}
	enc := fsutil.DetectEncoding(sample)
	if opts.Encoding != nil {
		enc = *opts.Encoding
	}
	text, err := fsutil.DecodeWith(data, enc)
	if err != nil {
		return nil, &textsource.EncodingError{Encoding: enc, Err: err}
	}

	d := &Document{
		path:       path,
		encoding:   enc,
		bom:        len(enc.BOM()) > 0 && bytes.HasPrefix(data, enc.BOM()),
		lineEnding: fsutil.DetectLineEnding(text),
		normalized: !opts.KeepLineEndings,
		opts:       opts,
		logger:     opts.Logger,
	}
	var src *textsource.Memory
	if d.normalized {
		src = textsource.NewMemoryNormalized(text)
	} else {
		src = textsource.NewMemory(text)
	}
	pt, err := piecetable.New(src)
	if err != nil {
		return nil, err
	}
	d.table.Store(pt)
	d.loaded.Store(true)
	d.logger.Debug("opened document",
		logging.FieldPath, path,
		logging.FieldEncoding, enc,
		logging.FieldLineEnd, d.lineEnding,
		logging.FieldChars, pt.Len())
	return d, nil
}

// Load scans a mapped document to the end, publishing a new read-only table
// after every batch and an editable one after the last. Chunks that fail to
// decode do not stop the scan; their errors are returned joined at the end.
func (d *Document) Load(ctx context.Context, progress func(LoadProgress)) error {
	if d.mapped == nil || d.loaded.Load() {
		pt, err := d.current()
		if err != nil {
			return err
		}
		if progress != nil {
			progress(LoadProgress{Lines: pt.LineCount(), Done: true})
		}
		return nil
	}

	var encErrs []error
	batch := d.opts.FirstBatchChunks
	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(textsource.ErrCancelled, err)
		}
		done, err := d.mapped.ScanNextBatch(batch)
		if err != nil {
			if !errors.Is(err, textsource.ErrEncoding) || errors.Is(err, textsource.ErrDisposed) {
				return err
			}
			encErrs = append(encErrs, err)
		}

		opts := piecetable.Options{}
		if !done {
			opts.EditErr = textsource.ErrNotReady
		}
		pt, err := piecetable.NewWithOptions(d.mapped.Snapshot(), opts)
		if err != nil {
			return err
		}
		d.Swap(pt)

		if progress != nil {
			progress(LoadProgress{
				ScannedBytes: d.mapped.ScannedBytes(),
				TotalBytes:   d.mapped.TotalBytes(),
				Lines:        pt.LineCount(),
				Done:         done,
			})
		}
		if done {
			d.loaded.Store(true)
			d.logger.Debug("document loaded",
				logging.FieldPath, d.path,
				logging.FieldLines, pt.LineCount(),
				logging.FieldChars, pt.Len())
			return errors.Join(encErrs...)
		}
		batch = d.opts.BatchChunks
	}
}

// Table returns the current piece table. It is replaced, and the old one
// disposed, at every scan checkpoint and by Swap.
func (d *Document) Table() *piecetable.PieceTable { return d.table.Load() }

// Swap installs pt and disposes the previous table.
func (d *Document) Swap(pt *piecetable.PieceTable) {
	if old := d.table.Swap(pt); old != nil && old != pt {
		old.Dispose()
	}
}

// Loaded reports whether the whole file is indexed and editable.
func (d *Document) Loaded() bool { return d.loaded.Load() }

func (d *Document) current() (*piecetable.PieceTable, error) {
	pt := d.table.Load()
	if pt == nil {
		return nil, textsource.ErrDisposed
	}
	return pt, nil
}

// Insert edits the current table.
func (d *Document) Insert(offset int64, text string) error {
	pt, err := d.current()
	if err != nil {
		return err
	}
	return pt.Insert(offset, text)
}

// Delete edits the current table.
func (d *Document) Delete(start, length int64) error {
	pt, err := d.current()
	if err != nil {
		return err
	}
	return pt.Delete(start, length)
}

// Path returns the file path or URL, empty for untitled documents.
func (d *Document) Path() string { return d.path }

// Encoding returns the encoding used to decode and save the file.
func (d *Document) Encoding() fsutil.Encoding { return d.encoding }

// SetEncoding changes the encoding used by Save.
func (d *Document) SetEncoding(enc fsutil.Encoding) { d.encoding = enc }

// HasBOM reports whether the file started with a byte-order mark.
func (d *Document) HasBOM() bool { return d.bom }

// LineEnding returns the line-ending style restored on save.
func (d *Document) LineEnding() fsutil.LineEnding { return d.lineEnding }

// SetLineEnding changes the line-ending style restored on save.
func (d *Document) SetLineEnding(l fsutil.LineEnding) { d.lineEnding = l }

// Mapped returns the mapped source of a large document, or nil.
func (d *Document) Mapped() *textsource.Mapped { return d.mapped }

// Close disposes the table and unmaps the file.
func (d *Document) Close() error {
	if pt := d.table.Swap(nil); pt != nil {
		pt.Dispose()
	}
	if d.mapped != nil {
		if err := d.mapped.Close(); err != nil {
			return fmt.Errorf("close %s: %w", d.path, err)
		}
	}
	return nil
}
