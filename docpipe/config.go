// CLAUDE:SUMMARY Configuration for the document conversion pipeline, sized in whole megabytes like the ingestion config.
package docpipe

import "log/slog"

// Config configures the document pipeline.
type Config struct {
	// MaxFileMB caps the size of a source file, in whole megabytes
	// (default 100). The same unit the ingestion config uses, so the value
	// passes through unconverted.
	MaxFileMB int `json:"max_file_mb" yaml:"max_file_mb"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileMB <= 0 {
		c.MaxFileMB = 100
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) maxBytes() int64 {
	return int64(c.MaxFileMB) * 1024 * 1024
}
