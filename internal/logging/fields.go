package logging

// Field name constants for structured logging.
const (
	FieldError    = "error"
	FieldPath     = "path"
	FieldEncoding = "encoding"
	FieldLineEnd  = "line_ending"
	FieldDuration = "duration"

	// Scan fields.
	FieldChunk        = "chunk"
	FieldChunks       = "chunks"
	FieldBytes        = "bytes"
	FieldScannedBytes = "scanned_bytes"
	FieldLines        = "lines"
	FieldChars        = "chars"

	// Cache fields.
	FieldCacheHits      = "cache_hits"
	FieldCacheMisses    = "cache_misses"
	FieldCacheEvictions = "cache_evictions"

	// Search fields.
	FieldPattern = "pattern"
	FieldMatches = "matches"
	FieldWindow  = "window"
	FieldFiles   = "files"
	FieldPercent = "percent"

	// Version fields.
	FieldVersion = "version"
	FieldCommit  = "commit"
	FieldBuilt   = "built"
)
