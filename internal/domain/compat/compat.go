// Package compat decides whether two matching units may share a team.
package compat

import (
	"strings"

	"github.com/okian/teamalloc/internal/domain/model"
)

// Profile is the aggregate attribute set compared between two units.
type Profile struct {
	SpokenLanguages []string
	Experience      model.Experience
}

// ProfileOf returns the aggregate profile of a unit.
func ProfileOf(u *model.Unit) Profile {
	return Profile{SpokenLanguages: u.SpokenLanguages, Experience: u.Experience}
}

// Compatible reports whether a and b share at least one programming language
// with experience on both sides and at least one spoken language.
// The result does not depend on argument order.
func Compatible(a, b Profile) bool {
	return SharedProgrammingLanguage(a.Experience, b.Experience) &&
		SharedSpokenLanguage(a.SpokenLanguages, b.SpokenLanguages)
}

// Units is Compatible applied to two units.
func Units(a, b *model.Unit) bool {
	return Compatible(ProfileOf(a), ProfileOf(b))
}

// SharedProgrammingLanguage reports whether some language is above
// LevelNone in both profiles.
func SharedProgrammingLanguage(a, b model.Experience) bool {
	for i := range a {
		if a[i] > model.LevelNone && b[i] > model.LevelNone {
			return true
		}
	}
	return false
}

// SharedSpokenLanguage reports whether the two language sets intersect.
// Codes compare case-insensitively.
func SharedSpokenLanguage(a, b []string) bool {
	for _, x := range a {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		for _, y := range b {
			if strings.EqualFold(x, strings.TrimSpace(y)) {
				return true
			}
		}
	}
	return false
}
