// Package preference turns a roster with free-text teammate requests into
// matching units: solo students, requested pairs and requested full teams.
//
// Unresolvable requests never fail the batch. A reference to an unknown or
// already grouped student is dropped and the requester falls back to a
// smaller unit.
package preference

import (
	"strings"

	"github.com/okian/teamalloc/internal/domain/exclusion"
	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/okian/teamalloc/internal/domain/scoring"
)

const (
	maxReferences = model.MaxUnitSize - 1
	noneLiteral   = "none"
)

// Reason explains why a teammate reference was dropped.
type Reason string

// Drop reasons.
const (
	ReasonMissing  Reason = "missing"
	ReasonConsumed Reason = "consumed"
	ReasonSelf     Reason = "self"
	ReasonExtra    Reason = "extra"
)

// Degradation records a dropped teammate reference.
type Degradation struct {
	StudentID string
	Reference string
	Reason    Reason
}

// Observer receives dropped references as they are found.
type Observer func(Degradation)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithScorer sets the scorer used for unit scores.
func WithScorer(s scoring.Scorer) Option {
	return func(r *Resolver) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithObserver sets a callback for dropped references.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}

// Resolver builds units from a roster. A Resolver holds no per-call state
// and may be shared between concurrent calls.
type Resolver struct {
	scorer   scoring.Scorer
	observer Observer
}

// New creates a Resolver using the default score calculator unless overridden.
func New(opts ...Option) *Resolver {
	r := &Resolver{scorer: scoring.NewCalculator()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseReferences splits a preference string into distinct teammate IDs.
// Empty input and the literal "none" yield no references.
func ParseReferences(pref string) []string {
	var refs []string
	seen := make(map[string]struct{})
	for _, tok := range strings.Split(pref, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" || strings.EqualFold(tok, noneLiteral) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		refs = append(refs, tok)
	}
	return refs
}

// Resolve walks the roster once in order and emits one unit per student not
// already absorbed by an earlier student's request. Each student appears in
// exactly one unit; duplicate roster IDs after the first are ignored.
func (r *Resolver) Resolve(roster []model.StudentRecord) []model.Unit {
	index := make(map[string]int, len(roster))
	for i := range roster {
		if _, ok := index[roster[i].ID]; !ok {
			index[roster[i].ID] = i
		}
	}

	consumed := make(map[string]bool, len(roster))
	units := make([]model.Unit, 0, len(roster))
	for i := range roster {
		s := &roster[i]
		if consumed[s.ID] {
			continue
		}
		consumed[s.ID] = true

		members := []*model.StudentRecord{s}
		for _, ref := range ParseReferences(s.Preference) {
			switch {
			case ref == s.ID:
				r.report(s.ID, ref, ReasonSelf)
				continue
			case len(members) > maxReferences:
				r.report(s.ID, ref, ReasonExtra)
				continue
			}
			j, ok := index[ref]
			if !ok {
				r.report(s.ID, ref, ReasonMissing)
				continue
			}
			if consumed[ref] {
				r.report(s.ID, ref, ReasonConsumed)
				continue
			}
			consumed[ref] = true
			members = append(members, &roster[j])
		}
		units = append(units, r.build(members))
	}
	return units
}

func (r *Resolver) report(id, ref string, reason Reason) {
	if r.observer != nil {
		r.observer(Degradation{StudentID: id, Reference: ref, Reason: reason})
	}
}

// build aggregates member attributes into a unit.
func (r *Resolver) build(members []*model.StudentRecord) model.Unit {
	u := model.Unit{
		Members: make([]model.StudentRecord, 0, len(members)),
		Names:   make([]string, 0, len(members)),
	}
	langSeen := make(map[string]struct{})
	exclSeen := make(map[string]struct{})
	for _, m := range members {
		u.Members = append(u.Members, *m)
		u.Names = append(u.Names, m.FullName())
		u.Total += r.scorer.Score(m)
		u.Experience = u.Experience.Merge(m.Experience)

		for _, lang := range m.SpokenLanguages {
			key := strings.ToLower(strings.TrimSpace(lang))
			if key == "" {
				continue
			}
			if _, ok := langSeen[key]; ok {
				continue
			}
			langSeen[key] = struct{}{}
			u.SpokenLanguages = append(u.SpokenLanguages, lang)
		}

		for _, tok := range exclusion.Parse(m.Exclusions) {
			if _, ok := exclSeen[tok]; ok {
				continue
			}
			exclSeen[tok] = struct{}{}
			u.Exclusions = append(u.Exclusions, tok)
		}
	}
	u.Score = u.Total / float64(len(members))

	// A requested full team is final; only its internal conflicts matter.
	if u.Terminal() {
		u.Exclusions = nil
	}
	return u
}
