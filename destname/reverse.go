// CLAUDE:SUMMARY Reverse resolution from a destination path back to its source file, date-filtered then name tie-broken.
package destname

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hazyhaar/docnorm/datesolve"
)

// destNameRe splits a destination filename into its date prefix and stem.
var destNameRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_(.*)\.txt$`)

// sourceExtensions are the formats a destination file can originate from.
var sourceExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
	".html": true,
	".htm":  true,
}

// FindSource maps a destination path back to the source file it was derived
// from. Sanitization is lossy, so the filename date is the authoritative
// filter: only candidates in the mirrored source folder whose own filename
// resolves to the same date are considered. Among those, an exact sanitized
// stem match wins, then a prefix relationship in either direction (truncation
// can have shortened either side), then the first candidate.
//
// FindSource never fails: any internal error is reported as not found.
func FindSource(destPath, destRoot, sourceRoot string) (string, bool) {
	m := destNameRe.FindStringSubmatch(filepath.Base(destPath))
	if m == nil {
		return "", false
	}
	date, ok := datesolve.ParseCanonical(m[1])
	if !ok {
		return "", false
	}
	destStem := m[2]

	relDir, err := filepath.Rel(destRoot, filepath.Dir(destPath))
	if err != nil {
		return "", false
	}
	srcDir := filepath.Join(sourceRoot, relDir)
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return "", false
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !sourceExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		res, ok := datesolve.FromFilename(name)
		if !ok || res.Partial || res.Date != date {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", false
	}
	if len(candidates) == 1 {
		return filepath.Join(srcDir, candidates[0]), true
	}

	for _, name := range candidates {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		s := Sanitize(stem, stageUnbounded)
		if s == destStem || strings.HasPrefix(s, destStem) || strings.HasPrefix(destStem, s) {
			return filepath.Join(srcDir, name), true
		}
	}
	return filepath.Join(srcDir, candidates[0]), true
}
