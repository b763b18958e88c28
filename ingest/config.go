// CLAUDE:SUMMARY Ingestion configuration: inclusion/exclusion rules, pool sizing, run-history DB path.
package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls enumeration, exclusion and execution of an ingestion run.
type Config struct {
	// IncludeFolders is the allow-list of top-level folders under the source
	// root. Empty means every top-level folder is included.
	IncludeFolders []string `yaml:"include_folders"`

	// ExcludeFolders blocks any file whose relative path has a component
	// equal to or containing one of these names.
	ExcludeFolders []string `yaml:"exclude_folders"`

	// ExcludeFilePrefixes blocks files whose base name starts with one of
	// these prefixes (editor temp files, figure exports).
	ExcludeFilePrefixes []string `yaml:"exclude_file_prefixes"`

	// ExcludePathPatterns blocks files whose relative path contains one of
	// these substrings.
	ExcludePathPatterns []string `yaml:"exclude_path_patterns"`

	// MaxFileMB caps the size of a single source file. Larger files are
	// recorded as conversion failures, not fatal errors.
	MaxFileMB int `yaml:"max_file_mb"`

	// ParallelThreshold is the candidate count above which the worker pool
	// is used. At or below it, files are processed sequentially: pool
	// startup cost dominates for small batches.
	ParallelThreshold int `yaml:"parallel_threshold"`

	// WorkerFraction is the fraction of available parallelism given to the
	// pool, capped at the file count.
	WorkerFraction float64 `yaml:"worker_fraction"`

	// DBPath is the run-history SQLite database. Empty disables run history.
	DBPath string `yaml:"db_path"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Defaults fills zero values with the standard settings.
func (c *Config) Defaults() {
	if c.ExcludeFolders == nil {
		c.ExcludeFolders = []string{"_files"}
	}
	if c.ExcludeFilePrefixes == nil {
		c.ExcludeFilePrefixes = []string{"fig_", "~$"}
	}
	if c.MaxFileMB <= 0 {
		c.MaxFileMB = 100
	}
	if c.ParallelThreshold <= 0 {
		c.ParallelThreshold = 10
	}
	if c.WorkerFraction <= 0 {
		c.WorkerFraction = 0.7
	}
}

// Validate rejects settings that would make a run misbehave.
func (c *Config) Validate() error {
	if c.WorkerFraction <= 0 || c.WorkerFraction > 1 {
		return fmt.Errorf("worker_fraction must be in (0, 1], got %g", c.WorkerFraction)
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be positive, got %d", c.MaxFileMB)
	}
	return nil
}
