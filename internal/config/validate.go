package config

import (
	"errors"
	"fmt"
	"strings"

	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
)

const (
	minChunkSize = 64
	maxChunkSize = 1 << 30
	maxTabWidth  = 16
)

// ValidationError describes one invalid setting.
type ValidationError struct {
	// Field is the YAML path of the setting, e.g. "scan.chunk_size".
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// Validate reports every invalid setting, joined.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, field string, value any, msg string) {
		if !ok {
			errs = append(errs, &ValidationError{Field: field, Value: value, Message: msg})
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		check(false, "log.level", c.Log.Level, "must be debug, info, warn or error")
	}

	check(c.Scan.ChunkSize >= minChunkSize && c.Scan.ChunkSize <= maxChunkSize,
		"scan.chunk_size", c.Scan.ChunkSize, fmt.Sprintf("must be between %d and %d", minChunkSize, maxChunkSize))
	check(c.Scan.CacheBytes >= 0, "scan.cache_bytes", c.Scan.CacheBytes, "must not be negative")
	check(c.Scan.FirstBatchChunks >= 1, "scan.first_batch_chunks", c.Scan.FirstBatchChunks, "must be at least 1")
	check(c.Scan.BatchChunks >= 1, "scan.batch_chunks", c.Scan.BatchChunks, "must be at least 1")

	check(c.Search.WindowSize >= 1, "search.window_size", c.Search.WindowSize, "must be at least 1")
	check(c.Search.RegexOverlap >= 0, "search.regex_overlap", c.Search.RegexOverlap, "must not be negative")
	check(c.Search.RegexTimeout > 0, "search.regex_timeout", c.Search.RegexTimeout, "must be positive")
	check(c.Search.TabWidth >= 1 && c.Search.TabWidth <= maxTabWidth,
		"search.tab_width", c.Search.TabWidth, fmt.Sprintf("must be between 1 and %d", maxTabWidth))
	check(c.Search.Jobs >= 0, "search.jobs", c.Search.Jobs, "must not be negative")

	check(c.Document.MemoryThreshold >= 0, "document.memory_threshold", c.Document.MemoryThreshold, "must not be negative")
	if c.Document.Encoding != "" {
		_, err := fsutil.ParseEncoding(c.Document.Encoding)
		check(err == nil, "document.encoding", c.Document.Encoding, "unknown encoding")
	}

	return errors.Join(errs...)
}
