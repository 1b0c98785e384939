// Package allocator forms teams of three from resolved matching units.
//
// The procedure is a single greedy pass, not an optimal matcher:
//
//  1. Requested full teams (terminal units) become teams immediately.
//  2. The remaining units are ordered by score, highest first, ties kept in
//     resolution order.
//  3. The best remaining unit is popped. A pair takes the best compatible
//     single. A single looks for two more compatible singles and, failing
//     that, for a compatible pair that is still waiting. The pair fallback
//     keeps lower-scored pairs from starving behind stronger singles.
//  4. A unit that cannot be completed is set aside as a leftover and never
//     retried.
//
// Compatibility is checked on unit aggregates. A requested pair carries the
// merged experience of both members, so a member without experience is placed
// through a partner. Requested full teams skip the check entirely. Only a
// single without experience can never be matched.
//
// Every allocation works on its own pool; an Allocator can be shared.
package allocator

import (
	"fmt"

	"github.com/okian/teamalloc/internal/domain/compat"
	"github.com/okian/teamalloc/internal/domain/exclusion"
	"github.com/okian/teamalloc/internal/domain/model"
)

// CompatibilityFunc decides whether two units may be combined.
type CompatibilityFunc func(a, b *model.Unit) bool

// FlagFunc decides whether a finished team carries an exclusion conflict.
type FlagFunc func(members []model.StudentRecord) bool

// Result is the outcome of one allocation.
type Result struct {
	Teams     []model.Team
	Leftovers []model.Unit
}

// LeftoverStudents counts students that were not placed.
func (r *Result) LeftoverStudents() int {
	n := 0
	for i := range r.Leftovers {
		n += r.Leftovers[i].Size()
	}
	return n
}

// FlaggedTeams counts teams with an exclusion conflict.
func (r *Result) FlaggedTeams() int {
	n := 0
	for i := range r.Teams {
		if r.Teams[i].Flagged {
			n++
		}
	}
	return n
}

// Option applies a configuration option to the Allocator.
type Option func(*Allocator)

// WithCompatibility overrides the compatibility rule.
func WithCompatibility(f CompatibilityFunc) Option {
	return func(a *Allocator) {
		if f != nil {
			a.compatible = f
		}
	}
}

// WithFlagger overrides the exclusion flagger.
func WithFlagger(f FlagFunc) Option {
	return func(a *Allocator) {
		if f != nil {
			a.flag = f
		}
	}
}

// Allocator runs the greedy team formation.
type Allocator struct {
	compatible CompatibilityFunc
	flag       FlagFunc
}

// New creates an Allocator using the standard compatibility and exclusion rules.
func New(opts ...Option) *Allocator {
	a := &Allocator{
		compatible: compat.Units,
		flag:       exclusion.Flagged,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate forms teams from units. It fails only when the units break the
// resolution contract: a unit outside 1..3 members or a student present in
// two units.
func (a *Allocator) Allocate(units []model.Unit) (Result, error) {
	if err := validate(units); err != nil {
		return Result{}, err
	}

	var res Result
	waiting := make([]*model.Unit, 0, len(units))
	for i := range units {
		if units[i].Terminal() {
			res.Teams = append(res.Teams, a.team(&units[i]))
			continue
		}
		waiting = append(waiting, &units[i])
	}

	p := newPool(waiting)
	for p.len() > 0 {
		u := p.pop()
		var placed []*model.Unit
		switch u.Size() {
		case 2:
			placed = a.completePair(p, u)
		case 1:
			placed = a.completeSingle(p, u)
		}
		if placed == nil {
			res.Leftovers = append(res.Leftovers, *u)
			continue
		}
		res.Teams = append(res.Teams, a.team(append([]*model.Unit{u}, placed...)...))
	}
	return res, nil
}

// completePair takes the best waiting single compatible with pair.
func (a *Allocator) completePair(p *pool, pair *model.Unit) []*model.Unit {
	i := p.find(0, func(v *model.Unit) bool {
		return v.Size() == 1 && a.compatible(pair, v)
	})
	if i < 0 {
		return nil
	}
	return p.take(i)
}

// completeSingle looks for two singles compatible with u and with each
// other, trying every compatible second member in priority order. Rejected
// candidates stay in the pool. Without such a triple it falls back to the
// best compatible waiting pair.
func (a *Allocator) completeSingle(p *pool, u *model.Unit) []*model.Unit {
	single := func(v *model.Unit) bool { return v.Size() == 1 && a.compatible(u, v) }
	for i := p.find(0, single); i >= 0; i = p.find(i+1, single) {
		v := p.at(i)
		j := p.find(i+1, func(w *model.Unit) bool {
			return single(w) && a.compatible(v, w)
		})
		if j >= 0 {
			return p.take(i, j)
		}
	}

	i := p.find(0, func(v *model.Unit) bool {
		return v.Size() == 2 && a.compatible(u, v)
	})
	if i < 0 {
		return nil
	}
	return p.take(i)
}

// team merges units into a flagged-or-not Team.
func (a *Allocator) team(units ...*model.Unit) model.Team {
	var t model.Team
	var members []model.StudentRecord
	for _, u := range units {
		members = append(members, u.Members...)
		t.Names = append(t.Names, u.Names...)
		t.Score += u.Total
	}
	t.Members = make([]string, len(members))
	for i := range members {
		t.Members[i] = members[i].ID
	}
	t.Flagged = a.flag(members)
	return t
}

func validate(units []model.Unit) error {
	seen := make(map[string]struct{})
	for i := range units {
		if err := units[i].Validate(); err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
		for _, id := range units[i].IDs() {
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: %s", ErrDuplicateStudent, id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}
