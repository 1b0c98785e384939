package model

import (
	"errors"
	"fmt"
)

// MaxUnitSize is the number of student slots in a finished team.
const MaxUnitSize = 3

// ErrInvalidUnit reports a unit whose member count is outside 1..3.
var ErrInvalidUnit = errors.New("invalid unit")

// Unit is a resolved matching atom: a solo student, a requested pair or a
// requested full team.
type Unit struct {
	Members []StudentRecord
	// Score is the average of the members' individual scores.
	Score float64
	// Total is the sum of the members' individual scores.
	Total float64

	SpokenLanguages []string
	Experience      Experience
	// Exclusions is the union of member exclusion tokens. Always empty for
	// terminal units.
	Exclusions []string
	Names      []string
}

// Size returns the number of student slots the unit occupies.
func (u *Unit) Size() int { return len(u.Members) }

// Terminal reports whether the unit is already a full team.
func (u *Unit) Terminal() bool { return len(u.Members) == MaxUnitSize }

// IDs returns member identifiers in resolution order.
func (u *Unit) IDs() []string {
	ids := make([]string, len(u.Members))
	for i := range u.Members {
		ids[i] = u.Members[i].ID
	}
	return ids
}

// Validate checks the member-count invariant.
func (u *Unit) Validate() error {
	if n := len(u.Members); n < 1 || n > MaxUnitSize {
		return fmt.Errorf("%w: %d members", ErrInvalidUnit, n)
	}
	return nil
}
