package orchestrator

import (
	"sort"

	"github.com/dusk-indust/profilegen/internal/profile"
)

// SortSections returns a copy of sections ordered by the position of each
// section's prompt name in canonical. Sections not listed keep their
// relative order after the listed ones.
func SortSections(sections []profile.Section, canonical []string) []profile.Section {
	rank := make(map[string]int, len(canonical))
	for i, name := range canonical {
		if _, dup := rank[name]; !dup {
			rank[name] = i
		}
	}
	pos := func(s profile.Section) int {
		if r, ok := rank[s.PromptFile]; ok {
			return r
		}
		return len(canonical)
	}

	out := make([]profile.Section, len(sections))
	copy(out, sections)
	sort.SliceStable(out, func(i, j int) bool { return pos(out[i]) < pos(out[j]) })
	return out
}
