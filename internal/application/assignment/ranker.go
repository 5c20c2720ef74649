package assignment

import (
	"bytes"
	"sort"
	"time"

	"github.com/example/cleaner-scheduler/internal/domain/cleaner"
)

// Candidate is an eligible, conflict-free cleaner with its ranking inputs.
type Candidate struct {
	Cleaner  cleaner.Cleaner
	Upcoming int
	Buffer   time.Duration
}

// Rank returns a copy of cands in selection order: fewest upcoming
// commitments, then smallest commute buffer, then cleaner id ascending.
// The id makes the order total, so equal snapshots always rank the same.
func Rank(cands []Candidate) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func less(a, b Candidate) bool {
	if a.Upcoming != b.Upcoming {
		return a.Upcoming < b.Upcoming
	}
	if a.Buffer != b.Buffer {
		return a.Buffer < b.Buffer
	}
	return bytes.Compare(a.Cleaner.ID[:], b.Cleaner.ID[:]) < 0
}
