package assignment

import (
	"bytes"
	"sort"

	"github.com/example/cleaner-scheduler/internal/domain/cleaner"
)

// Eligible keeps the active cleaners that share at least one specialization
// with requiredTags and list areaTag among their service areas. A cleaner
// without area tags serves nowhere. The result is ordered by id and is empty,
// not nil-with-error, when nobody qualifies.
func Eligible(cleaners []cleaner.Cleaner, requiredTags []string, areaTag string) []cleaner.Cleaner {
	out := make([]cleaner.Cleaner, 0, len(cleaners))
	for _, c := range cleaners {
		if !c.Active {
			continue
		}
		if !c.HasSpecialization(requiredTags) {
			continue
		}
		if !c.Serves(areaTag) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}
