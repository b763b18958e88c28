// CLAUDE:SUMMARY Source-tree enumeration: walks the source root and applies inclusion/exclusion rules.
package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

var supportedExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
	".html": true,
	".htm":  true,
}

// Included reports whether relPath's first component is in the allow-list.
// An empty allow-list includes everything.
func (c *Config) Included(relPath string) bool {
	if len(c.IncludeFolders) == 0 {
		return true
	}
	first := relPath
	if i := strings.IndexByte(relPath, '/'); i >= 0 {
		first = relPath[:i]
	}
	for _, folder := range c.IncludeFolders {
		if first == folder {
			return true
		}
	}
	return false
}

// Excluded applies the folder, prefix and pattern block-lists to a relative
// path. A folder rule matches when a path component equals the rule name or
// contains it as a substring.
func (c *Config) Excluded(relPath string) bool {
	parts := strings.Split(relPath, "/")
	for _, name := range c.ExcludeFolders {
		for _, part := range parts {
			if part == name || strings.Contains(part, name) {
				return true
			}
		}
	}
	base := parts[len(parts)-1]
	for _, prefix := range c.ExcludeFilePrefixes {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	for _, pattern := range c.ExcludePathPatterns {
		if strings.Contains(relPath, pattern) {
			return true
		}
	}
	return false
}

// Scan enumerates candidate source files under sourceRoot. It returns
// slash-separated paths relative to the root, sorted, after applying the
// extension filter and the config's inclusion and exclusion rules.
func Scan(sourceRoot string, cfg *Config) ([]string, error) {
	var files []string
	err := filepath.WalkDir(sourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !cfg.Included(rel) || cfg.Excluded(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", sourceRoot, err)
	}
	sort.Strings(files)
	return files, nil
}
