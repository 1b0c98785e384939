// Package exclusion flags teams whose members asked not to be grouped together.
//
// Matching is substring based: an exclusion token such as "Yian" flags a
// teammate named "Yian Li". Short or common fragments ("Li", "An") can
// therefore flag teams by accident; reviewers see the flag, not a rejection.
package exclusion

import (
	"strings"

	"github.com/okian/teamalloc/internal/domain/model"
)

const separator = ", "

// Parse splits a free-text exclusion string into trimmed, non-empty tokens.
func Parse(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var tokens []string
	for _, tok := range strings.Split(s, separator) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Conflict describes one triggering exclusion.
type Conflict struct {
	StudentID  string
	Token      string
	ExcludedID string
}

// Conflicts returns every (member, other member) pair where one of the
// member's exclusion tokens occurs in the other member's full name.
func Conflicts(members []model.StudentRecord) []Conflict {
	var out []Conflict
	for i := range members {
		tokens := Parse(members[i].Exclusions)
		if len(tokens) == 0 {
			continue
		}
		for j := range members {
			if i == j {
				continue
			}
			name := members[j].FullName()
			for _, tok := range tokens {
				if strings.Contains(name, tok) {
					out = append(out, Conflict{
						StudentID:  members[i].ID,
						Token:      tok,
						ExcludedID: members[j].ID,
					})
				}
			}
		}
	}
	return out
}

// Flagged reports whether any member excludes another member of the team.
func Flagged(members []model.StudentRecord) bool {
	return len(Conflicts(members)) > 0
}
