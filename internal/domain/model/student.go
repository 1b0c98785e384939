// Package model contains domain models passed between layers.
package model

import "strings"

// Language is one of the fixed programming languages tracked at registration.
type Language int

// Tracked programming languages. NumLanguages must stay last.
const (
	Python Language = iota
	Java
	C
	CPP
	NumLanguages
)

var languageNames = [NumLanguages]string{"python", "java", "c", "cpp"}

// String returns the lower-case registration name of the language.
func (l Language) String() string {
	if l < 0 || l >= NumLanguages {
		return "unknown"
	}
	return languageNames[l]
}

// ParseLanguage maps a registration name to a Language.
func ParseLanguage(s string) (Language, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "c++" {
		return CPP, true
	}
	for i, name := range languageNames {
		if name == s {
			return Language(i), true
		}
	}
	return 0, false
}

// Level is a self-reported programming-experience level.
type Level int

// Experience levels, ordered so that max() picks the stronger one.
const (
	LevelNone Level = iota
	LevelSome
	LevelProficient
)

// String returns the registration name of the level.
func (l Level) String() string {
	switch l {
	case LevelSome:
		return "some"
	case LevelProficient:
		return "proficient"
	default:
		return "none"
	}
}

// ParseLevel maps a registration name to a Level. Unknown values map to LevelNone.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "some":
		return LevelSome
	case "proficient":
		return LevelProficient
	default:
		return LevelNone
	}
}

// Experience holds one Level per tracked programming language.
type Experience [NumLanguages]Level

// Merge returns the per-language maximum of e and o.
func (e Experience) Merge(o Experience) Experience {
	out := e
	for i := range out {
		if o[i] > out[i] {
			out[i] = o[i]
		}
	}
	return out
}

// Any reports whether at least one language is above LevelNone.
func (e Experience) Any() bool {
	for _, l := range e {
		if l > LevelNone {
			return true
		}
	}
	return false
}

// StudentRecord is a registered student as supplied by the roster provider.
// The allocator never mutates it.
type StudentRecord struct {
	ID           string
	UniversityID string
	ContestID    string

	ContestExperience int
	Rating1           float64
	Rating2           float64
	CompletedCourses  []int

	SpokenLanguages []string
	Experience      Experience

	// Preference lists 0-2 teammate IDs separated by commas, or "none".
	Preference string
	// Exclusions lists names to avoid separated by ", ".
	Exclusions string

	GivenName  string
	FamilyName string
}

// FullName joins given and family name.
func (s *StudentRecord) FullName() string {
	return strings.TrimSpace(s.GivenName + " " + s.FamilyName)
}

// University is a participating university within a contest.
type University struct {
	ID   string
	Name string
}
