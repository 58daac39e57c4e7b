package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// envVarPrefix is the prefix for all bigtext environment variables.
const envVarPrefix = "BIGTEXT_"

type envFieldType int

const (
	envTypeString envFieldType = iota
	envTypeBool
	envTypeInt
	envTypeDuration
)

type envMapping struct {
	typ envFieldType
	set func(cfg *Config, v any)
}

// envMappings maps variable names without the prefix to config fields.
var envMappings = map[string]envMapping{
	"LOG_LEVEL":          {envTypeString, func(c *Config, v any) { c.Log.Level = v.(string) }},
	"CHUNK_SIZE":         {envTypeInt, func(c *Config, v any) { c.Scan.ChunkSize = int(v.(int64)) }},
	"CACHE_BYTES":        {envTypeInt, func(c *Config, v any) { c.Scan.CacheBytes = v.(int64) }},
	"FIRST_BATCH_CHUNKS": {envTypeInt, func(c *Config, v any) { c.Scan.FirstBatchChunks = int(v.(int64)) }},
	"BATCH_CHUNKS":       {envTypeInt, func(c *Config, v any) { c.Scan.BatchChunks = int(v.(int64)) }},
	"NORMALIZE":          {envTypeBool, func(c *Config, v any) { c.Scan.NormalizeLineEndings = v.(bool) }},
	"WINDOW_SIZE":        {envTypeInt, func(c *Config, v any) { c.Search.WindowSize = v.(int64) }},
	"REGEX_OVERLAP":      {envTypeInt, func(c *Config, v any) { c.Search.RegexOverlap = v.(int64) }},
	"REGEX_TIMEOUT":      {envTypeDuration, func(c *Config, v any) { c.Search.RegexTimeout = v.(time.Duration) }},
	"TAB_WIDTH":          {envTypeInt, func(c *Config, v any) { c.Search.TabWidth = int(v.(int64)) }},
	"JOBS":               {envTypeInt, func(c *Config, v any) { c.Search.Jobs = int(v.(int64)) }},
	"INCLUDE_HIDDEN":     {envTypeBool, func(c *Config, v any) { c.Search.IncludeHidden = v.(bool) }},
	"NO_IGNORE":          {envTypeBool, func(c *Config, v any) { c.Search.NoIgnore = v.(bool) }},
	"MEMORY_THRESHOLD":   {envTypeInt, func(c *Config, v any) { c.Document.MemoryThreshold = v.(int64) }},
	"ENCODING":           {envTypeString, func(c *Config, v any) { c.Document.Encoding = v.(string) }},
}

// LoadFromEnv applies BIGTEXT_* overrides to cfg. Empty variables are
// ignored.
func LoadFromEnv(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	for suffix, mapping := range envMappings {
		name := envVarPrefix + suffix
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		parsed, err := parseEnvValue(mapping.typ, value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q: %w", name, value, err)
		}
		mapping.set(cfg, parsed)
	}
	return nil
}

func parseEnvValue(typ envFieldType, value string) (any, error) {
	switch typ {
	case envTypeBool:
		return strconv.ParseBool(value)
	case envTypeInt:
		return strconv.ParseInt(value, 10, 64)
	case envTypeDuration:
		return time.ParseDuration(value)
	default:
		return value, nil
	}
}
