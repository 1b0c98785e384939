// Package rostergen produces deterministic fake rosters for demos and
// property tests.
package rostergen

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/okian/teamalloc/internal/domain/model"
)

// Default generation parameters.
const (
	defaultSize      = 30
	defaultSeed      = 42
	defaultPairPct   = 15
	defaultTeamPct   = 5
	defaultMissPct   = 3
	defaultExclPct   = 10
	defaultNoExpPct  = 5
	maxContests      = 6
	maxRating        = 3000.0
	maxCourses       = 4
	maxCourseID      = 9
	percent          = 100
	missingRefPrefix = "ghost-"
)

var defaultLanguages = []string{"en", "en", "en", "fr", "zh", "es"}

// Config controls roster generation. Percentages are out of 100.
type Config struct {
	Size         int
	Seed         int64
	ContestID    string
	UniversityID string
	// IDPrefix is prepended to sequential student numbers.
	IDPrefix string
	// Languages is sampled for each student's spoken languages; duplicates
	// bias the draw.
	Languages []string

	PairPct         int // students requesting one partner
	TeamPct         int // students requesting two partners
	MissingPct      int // requests pointing at a non-existent student
	ExclusionPct    int // students excluding a random other student
	NoExperiencePct int // students with no programming experience
}

// Option applies a configuration option to Config.
type Option func(*Config)

// WithSize sets the number of students.
func WithSize(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.Size = n
		}
	}
}

// WithSeed sets the random seed. Zero is ignored so output stays reproducible.
func WithSeed(seed int64) Option {
	return func(c *Config) {
		if seed != 0 {
			c.Seed = seed
		}
	}
}

// WithUniversity sets contest and university identifiers on every record.
func WithUniversity(contestID, universityID string) Option {
	return func(c *Config) {
		c.ContestID = contestID
		c.UniversityID = universityID
		c.IDPrefix = universityID + "-"
	}
}

// WithLanguages sets the spoken-language pool.
func WithLanguages(langs ...string) Option {
	return func(c *Config) {
		if len(langs) > 0 {
			c.Languages = langs
		}
	}
}

// WithPreferenceRates sets pair, full-team and missing-reference percentages.
func WithPreferenceRates(pairPct, teamPct, missingPct int) Option {
	return func(c *Config) {
		c.PairPct, c.TeamPct, c.MissingPct = pairPct, teamPct, missingPct
	}
}

// WithExclusionRate sets the percentage of students with an exclusion.
func WithExclusionRate(pct int) Option {
	return func(c *Config) { c.ExclusionPct = pct }
}

// WithNoExperienceRate sets the percentage of students without experience.
func WithNoExperienceRate(pct int) Option {
	return func(c *Config) { c.NoExperiencePct = pct }
}

// NewConfig returns a Config with defaults and options applied.
func NewConfig(opts ...Option) Config {
	c := Config{
		Size:            defaultSize,
		Seed:            defaultSeed,
		ContestID:       "contest",
		UniversityID:    "uni",
		IDPrefix:        "s",
		Languages:       defaultLanguages,
		PairPct:         defaultPairPct,
		TeamPct:         defaultTeamPct,
		MissingPct:      defaultMissPct,
		ExclusionPct:    defaultExclPct,
		NoExperiencePct: defaultNoExpPct,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Generate builds a roster. The same Config always yields the same roster.
func Generate(opts ...Option) []model.StudentRecord {
	cfg := NewConfig(opts...)
	f := gofakeit.New(cfg.Seed)

	roster := make([]model.StudentRecord, cfg.Size)
	for i := range roster {
		roster[i] = student(f, &cfg, i)
	}

	for i := range roster {
		roll := f.Number(1, percent)
		switch {
		case roll <= cfg.MissingPct:
			roster[i].Preference = missingRefPrefix + roster[i].ID
		case roll <= cfg.MissingPct+cfg.TeamPct:
			roster[i].Preference = refs(f, roster, i, 2)
		case roll <= cfg.MissingPct+cfg.TeamPct+cfg.PairPct:
			roster[i].Preference = refs(f, roster, i, 1)
		default:
			if f.Bool() {
				roster[i].Preference = "none"
			}
		}
		if len(roster) > 1 && f.Number(1, percent) <= cfg.ExclusionPct {
			other := roster[(i+f.Number(1, len(roster)-1))%len(roster)]
			roster[i].Exclusions = other.GivenName
		}
	}
	return roster
}

func student(f *gofakeit.Faker, cfg *Config, i int) model.StudentRecord {
	s := model.StudentRecord{
		ID:                fmt.Sprintf("%s%d", cfg.IDPrefix, i+1),
		ContestID:         cfg.ContestID,
		UniversityID:      cfg.UniversityID,
		GivenName:         f.FirstName(),
		FamilyName:        f.LastName(),
		ContestExperience: f.Number(0, maxContests),
		Rating1:           f.Float64Range(0, maxRating),
		Rating2:           f.Float64Range(0, maxRating),
	}
	for n := f.Number(0, maxCourses); n > 0; n-- {
		s.CompletedCourses = append(s.CompletedCourses, f.Number(1, maxCourseID))
	}

	s.SpokenLanguages = []string{f.RandomString(cfg.Languages)}
	if f.Bool() {
		if second := f.RandomString(cfg.Languages); second != s.SpokenLanguages[0] {
			s.SpokenLanguages = append(s.SpokenLanguages, second)
		}
	}

	if f.Number(1, percent) > cfg.NoExperiencePct {
		for l := range s.Experience {
			s.Experience[l] = model.Level(f.Number(int(model.LevelNone), int(model.LevelProficient)))
		}
		if !s.Experience.Any() {
			s.Experience[model.Python] = model.LevelSome
		}
	}
	return s
}

// refs picks n distinct other students following i, wrapping around.
func refs(f *gofakeit.Faker, roster []model.StudentRecord, i, n int) string {
	if len(roster) <= n {
		return ""
	}
	start := f.Number(1, len(roster)-n)
	out := ""
	for k := 0; k < n; k++ {
		if k > 0 {
			out += ", "
		}
		out += roster[(i+start+k)%len(roster)].ID
	}
	return out
}
