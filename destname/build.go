// CLAUDE:SUMMARY Destination path construction with three-stage escalating stem truncation against the 200-char ceiling.
package destname

import (
	"path/filepath"
	"strings"

	"github.com/hazyhaar/docnorm/datesolve"
)

const (
	// maxPathLen is the platform-safe ceiling for a full destination path.
	// Kept under the Windows MAX_PATH limit with room to spare.
	maxPathLen = 200

	// extension is the single canonical content type of the destination tree.
	extension = ".txt"

	// datePrefixLen is len("YYYY-MM-DD_").
	datePrefixLen = 11

	// safetyMargin keeps the exact-budget stage strictly under the ceiling.
	safetyMargin = 1

	// stageUnbounded and stageShort are the stem budgets of the first two
	// truncation stages. The third stage computes the exact remaining budget.
	stageUnbounded = 1000
	stageShort     = 50
)

// Build derives the destination path for a source file: destRoot, the source
// file's relative folder structure preserved verbatim, and a
// "YYYY-MM-DD_<sanitized-stem>.txt" filename.
//
// The stem is truncated in up to three escalating stages so the most
// descriptive name that fits wins: effectively unbounded first, then 50
// characters, then the exact budget left under the path-length ceiling.
// Build never fails and never returns a path the filesystem would reject for
// length (a heavily truncated name is returned instead).
//
// Build is a pure function of its inputs — no randomness, no timestamps — so
// the destination tree can always be re-derived from source + date.
func Build(relPath string, date datesolve.Date, destRoot string) string {
	base := filepath.Base(relPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := filepath.Join(destRoot, filepath.Dir(relPath))

	path := filepath.Join(dir, date.String()+"_"+Sanitize(stem, stageUnbounded)+extension)
	if len(path) <= maxPathLen {
		return path
	}

	path = filepath.Join(dir, date.String()+"_"+Sanitize(stem, stageShort)+extension)
	if len(path) <= maxPathLen {
		return path
	}

	budget := maxPathLen - len(dir) - len(string(filepath.Separator)) - safetyMargin - datePrefixLen - len(extension)
	if budget < 0 {
		budget = 0
	}
	return filepath.Join(dir, date.String()+"_"+Sanitize(stem, budget)+extension)
}
