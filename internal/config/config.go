// Package config loads bigtext settings from YAML files and BIGTEXT_*
// environment variables and converts them into package options.
package config

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/kk-code-lab/bigtext/internal/document"
	fsutil "github.com/kk-code-lab/bigtext/internal/fs"
	"github.com/kk-code-lab/bigtext/internal/search"
	"github.com/kk-code-lab/bigtext/internal/textsource"
)

// Config is the full set of user settings.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Scan     ScanConfig     `yaml:"scan"`
	Search   SearchConfig   `yaml:"search"`
	Document DocumentConfig `yaml:"document"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ScanConfig tunes the incremental scan of mapped files.
type ScanConfig struct {
	ChunkSize            int   `yaml:"chunk_size"`
	CacheBytes           int64 `yaml:"cache_bytes"`
	FirstBatchChunks     int   `yaml:"first_batch_chunks"`
	BatchChunks          int   `yaml:"batch_chunks"`
	NormalizeLineEndings bool  `yaml:"normalize_line_endings"`
}

// SearchConfig tunes the search engine and file walks.
type SearchConfig struct {
	WindowSize    int64         `yaml:"window_size"`
	RegexOverlap  int64         `yaml:"regex_overlap"`
	RegexTimeout  time.Duration `yaml:"regex_timeout"`
	TabWidth      int           `yaml:"tab_width"`
	Jobs          int           `yaml:"jobs"`
	IncludeHidden bool          `yaml:"include_hidden"`
	NoIgnore      bool          `yaml:"no_ignore"`
}

// DocumentConfig controls how files are opened.
type DocumentConfig struct {
	MemoryThreshold int64 `yaml:"memory_threshold"`
	// Encoding forces a codec by name; empty means detect.
	Encoding string `yaml:"encoding"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Scan: ScanConfig{
			ChunkSize:            textsource.DefaultChunkSize,
			CacheBytes:           textsource.DefaultCacheBytes,
			FirstBatchChunks:     textsource.FirstBatchChunks,
			BatchChunks:          textsource.BatchChunks,
			NormalizeLineEndings: true,
		},
		Search: SearchConfig{
			WindowSize:   search.DefaultWindowSize,
			RegexOverlap: search.DefaultRegexOverlap,
			RegexTimeout: search.DefaultRegexTimeout,
			TabWidth:     4,
		},
		Document: DocumentConfig{
			MemoryThreshold: document.DefaultMemoryThreshold,
		},
	}
}

// DocumentOptions converts the settings for document.Open.
func (c *Config) DocumentOptions(logger *log.Logger) document.Options {
	opts := document.Options{
		KeepLineEndings:  !c.Scan.NormalizeLineEndings,
		MemoryThreshold:  c.Document.MemoryThreshold,
		ChunkSize:        c.Scan.ChunkSize,
		CacheBytes:       c.Scan.CacheBytes,
		FirstBatchChunks: c.Scan.FirstBatchChunks,
		BatchChunks:      c.Scan.BatchChunks,
		Logger:           logger,
	}
	if c.Document.Encoding != "" {
		if enc, err := fsutil.ParseEncoding(c.Document.Encoding); err == nil {
			opts.Encoding = &enc
		}
	}
	return opts
}

// EngineConfig converts the settings for search.NewEngine.
func (c *Config) EngineConfig(logger *log.Logger) search.Config {
	return search.Config{
		WindowSize:   c.Search.WindowSize,
		RegexOverlap: c.Search.RegexOverlap,
		RegexTimeout: c.Search.RegexTimeout,
		TabWidth:     c.Search.TabWidth,
		Logger:       logger,
	}
}

// FileOptions converts the settings for search.FindInFiles.
func (c *Config) FileOptions() search.FileOptions {
	return search.FileOptions{
		Jobs:            c.Search.Jobs,
		NoIgnore:        c.Search.NoIgnore,
		IncludeHidden:   c.Search.IncludeHidden,
		MemoryThreshold: c.Document.MemoryThreshold,
	}
}
