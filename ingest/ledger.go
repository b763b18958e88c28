// CLAUDE:SUMMARY Rejection ledger: the failed_date_parsing.txt file next to the destination root.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LedgerPath returns where the ledger for a destination root lives: in the
// parent directory, so it is never mistaken for a converted document.
func LedgerPath(destRoot string) string {
	return filepath.Join(filepath.Dir(destRoot), "failed_date_parsing.txt")
}

// WriteLedger writes the rejection ledger: a comment header naming the
// exclusion rules in force, then the sorted, deduplicated relative paths.
// Entries matching an exclusion rule are dropped; they were never candidates
// and listing them would send a reviewer chasing files the run never owed.
// The file is rewritten whole on every run.
func WriteLedger(path string, cfg *Config, entries []string) error {
	var b strings.Builder
	b.WriteString("# Files that failed date parsing from filename or were not found in the destination tree\n")
	b.WriteString("# Expected format: YYYY-MM-DD_filename.txt\n")
	b.WriteString("# Date parsing is done from filename only (no content reading)\n")
	b.WriteString("#\n")
	b.WriteString("# Excluded files (not included in this list):\n")
	for _, name := range cfg.ExcludeFolders {
		fmt.Fprintf(&b, "# - Folders named or containing: %s\n", name)
	}
	for _, prefix := range cfg.ExcludeFilePrefixes {
		fmt.Fprintf(&b, "# - Files starting with: %s\n", prefix)
	}
	for _, pattern := range cfg.ExcludePathPatterns {
		fmt.Fprintf(&b, "# - Paths containing: %s\n", pattern)
	}
	b.WriteString("\n")

	seen := make(map[string]bool)
	var kept []string
	for _, rel := range entries {
		if seen[rel] || cfg.Excluded(rel) {
			continue
		}
		seen[rel] = true
		kept = append(kept, rel)
	}
	sort.Strings(kept)
	for _, rel := range kept {
		b.WriteString(rel)
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write ledger %s: %w", path, err)
	}
	return nil
}
