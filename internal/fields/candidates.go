package fields

import (
	"regexp"
	"sort"
	"strings"

	"github.com/smartfill/smartfill/internal/domain"
)

var separatorRun = regexp.MustCompile(`[_-]+`)

// Candidate pairs a stored profile value with the keywords used to locate a
// control for it.
type Candidate struct {
	Key      string
	Keywords []string
	Value    string
	Custom   bool
}

// Candidates lists the fill candidates for p. Canonical fields come first in
// Table order, then one candidate per custom field sorted by key.
func Candidates(p *domain.Profile) []Candidate {
	if p == nil {
		return nil
	}

	out := make([]Candidate, 0, len(Table)+len(p.CustomFields))
	for _, entry := range Table {
		out = append(out, Candidate{
			Key:      entry.Key,
			Keywords: entry.Keywords,
			Value:    p.Get(entry.Key),
		})
	}

	keys := make([]string, 0, len(p.CustomFields))
	for k := range p.CustomFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		out = append(out, Candidate{
			Key:      k,
			Keywords: CustomKeywords(k),
			Value:    p.CustomFields[k],
			Custom:   true,
		})
	}
	return out
}

// CustomKeywords returns the spaced and raw lower-cased variants of a custom key.
func CustomKeywords(key string) []string {
	lower := strings.ToLower(key)
	return []string{separatorRun.ReplaceAllString(lower, " "), lower}
}

// Match reports whether any keyword of c occurs in the evidence pool, the
// same text InferKey reads.
func Match(c Candidate, ev Evidence) bool {
	return containsAny(ev.Pool(), c.Keywords)
}
