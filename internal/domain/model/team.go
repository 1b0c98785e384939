package model

import "time"

// Team is a formed group of exactly three students.
type Team struct {
	Members []string
	Names   []string
	// Score is the sum of the three members' individual scores.
	Score   float64
	Flagged bool
}

// NamedTeam is a Team labelled by the caller before persistence.
type NamedTeam struct {
	Team
	Name string
}

// StoredTeam is a NamedTeam after the team sink assigned an identity.
type StoredTeam struct {
	NamedTeam
	ID           string
	ContestID    string
	UniversityID string
	CreatedAt    time.Time
}
