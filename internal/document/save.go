package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/transform"

	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
	"github.com/kk-code-lab/bigtext/internal/logging"
	"github.com/kk-code-lab/bigtext/internal/textsource"
)

// saveWindow is the number of characters read from the table per write.
const saveWindow = 1 << 20

// Save writes the current content to w in the document's encoding, with its
// byte-order mark and original line-ending style.
func (d *Document) Save(w io.Writer) error {
	pt, err := d.current()
	if err != nil {
		return err
	}
	if bom := d.encoding.BOM(); d.bom && len(bom) > 0 {
		if _, err := w.Write(bom); err != nil {
			return err
		}
	}

	sink := &trackingWriter{w: w}
	var closers []io.Closer
	var out io.Writer = sink
	if codec := d.encoding.Codec(); codec != nil {
		enc := transform.NewWriter(out, codec.NewEncoder())
		closers = append(closers, enc)
		out = enc
	}
	if d.normalized && d.lineEnding != fsutil.LineEndingLF {
		le := transform.NewWriter(out, fsutil.LineEndingTransformer(d.lineEnding))
		closers = append(closers, le)
		out = le
	}

	length := pt.Len()
	for pos := int64(0); pos < length; pos += saveWindow {
		text, err := pt.Text(pos, min(int64(saveWindow), length-pos))
		if err != nil {
			return err
		}
		if _, err := io.WriteString(out, text); err != nil {
			return sink.classify(d.encoding, err)
		}
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			return sink.classify(d.encoding, err)
		}
	}
	return nil
}

// trackingWriter remembers failures of the destination so they can be told
// apart from encoder failures.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}

func (t *trackingWriter) classify(enc fsutil.Encoding, err error) error {
	if t.err != nil {
		return t.err
	}
	return fmt.Errorf("encode as %s: %w: %w", enc, textsource.ErrEncoding, err)
}

// SaveFile writes the document to path through a temporary file in the same
// directory, replacing path only when the write succeeded.
func (d *Document) SaveFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &textsource.IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := d.Save(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return &textsource.IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &textsource.IOError{Op: "rename", Path: path, Err: err}
	}
	d.logger.Debug("saved document", logging.FieldPath, path, logging.FieldEncoding, d.encoding)
	return nil
}
