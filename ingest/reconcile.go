// CLAUDE:SUMMARY Post-run reconciliation: rederive the accepted set from the destination tree, surface unaccounted files.
package ingest

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/hazyhaar/docnorm/destname"
)

var convertedNameRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_.*\.txt$`)

// claimConverted walks the destination tree and marks every source file that
// already has a converted counterpart as accepted. This is what makes the run
// report honest across restarts: files converted by an earlier run are part
// of the accepted set whether or not this run touched them.
func (c *Coordinator) claimConverted(destRoot, sourceRoot string, accepted map[string]bool) {
	_ = filepath.WalkDir(destRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !convertedNameRe.MatchString(d.Name()) {
			return nil
		}
		src, ok := destname.FindSource(path, destRoot, sourceRoot)
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(sourceRoot, src)
		if err != nil {
			return nil
		}
		accepted[filepath.ToSlash(rel)] = true
		return nil
	})
}

// reconcile returns the files in the universe that are neither accepted nor
// rejected for lack of a date, sorted. Conversion failures deliberately land
// here: the ledger must name every source file without a converted
// counterpart, whatever the reason.
func reconcile(universe []string, accepted, noDate map[string]bool) []string {
	var missing []string
	for _, rel := range universe {
		if !accepted[rel] && !noDate[rel] {
			missing = append(missing, rel)
		}
	}
	sort.Strings(missing)
	return missing
}
