package sqlstore

import (
	"time"

	"github.com/okian/teamalloc/internal/domain/model"
)

type universityRow struct {
	Seq          uint   `gorm:"primaryKey;autoIncrement"`
	ContestID    string `gorm:"not null;uniqueIndex:idx_universities_contest_university"`
	UniversityID string `gorm:"not null;uniqueIndex:idx_universities_contest_university"`
	Name         string `gorm:"not null"`
	CreatedAt    time.Time
}

func (universityRow) TableName() string { return "universities" }

type studentRow struct {
	Seq               uint             `gorm:"primaryKey;autoIncrement"`
	ContestID         string           `gorm:"not null;uniqueIndex:idx_students_contest_student;index:idx_students_roster,priority:1"`
	StudentID         string           `gorm:"not null;uniqueIndex:idx_students_contest_student"`
	UniversityID      string           `gorm:"not null;index:idx_students_roster,priority:2"`
	TeamID            string           `gorm:"not null;default:'';index:idx_students_roster,priority:3"`
	GivenName         string
	FamilyName        string
	ContestExperience int
	Rating1           float64
	Rating2           float64
	CompletedCourses  []int            `gorm:"serializer:json"`
	SpokenLanguages   []string         `gorm:"serializer:json"`
	Experience        model.Experience `gorm:"serializer:json"`
	Preference        string
	Exclusions        string
	CreatedAt         time.Time
}

func (studentRow) TableName() string { return "students" }

type teamRow struct {
	Seq          uint     `gorm:"primaryKey;autoIncrement"`
	TeamID       string   `gorm:"not null;uniqueIndex"`
	ContestID    string   `gorm:"not null;index:idx_teams_scope,priority:1"`
	UniversityID string   `gorm:"not null;index:idx_teams_scope,priority:2"`
	Name         string   `gorm:"not null"`
	Members      []string `gorm:"serializer:json"`
	Names        []string `gorm:"serializer:json"`
	Score        float64
	Flagged      bool
	CreatedAt    time.Time
}

func (teamRow) TableName() string { return "teams" }

func fromStudent(s *model.StudentRecord) studentRow {
	return studentRow{
		ContestID:         s.ContestID,
		StudentID:         s.ID,
		UniversityID:      s.UniversityID,
		GivenName:         s.GivenName,
		FamilyName:        s.FamilyName,
		ContestExperience: s.ContestExperience,
		Rating1:           s.Rating1,
		Rating2:           s.Rating2,
		CompletedCourses:  s.CompletedCourses,
		SpokenLanguages:   s.SpokenLanguages,
		Experience:        s.Experience,
		Preference:        s.Preference,
		Exclusions:        s.Exclusions,
	}
}

func (r *studentRow) toModel() model.StudentRecord {
	return model.StudentRecord{
		ID:                r.StudentID,
		ContestID:         r.ContestID,
		UniversityID:      r.UniversityID,
		GivenName:         r.GivenName,
		FamilyName:        r.FamilyName,
		ContestExperience: r.ContestExperience,
		Rating1:           r.Rating1,
		Rating2:           r.Rating2,
		CompletedCourses:  r.CompletedCourses,
		SpokenLanguages:   r.SpokenLanguages,
		Experience:        r.Experience,
		Preference:        r.Preference,
		Exclusions:        r.Exclusions,
	}
}

func (r *teamRow) toModel() model.StoredTeam {
	return model.StoredTeam{
		NamedTeam: model.NamedTeam{
			Name: r.Name,
			Team: model.Team{
				Members: r.Members,
				Names:   r.Names,
				Score:   r.Score,
				Flagged: r.Flagged,
			},
		},
		ID:           r.TeamID,
		ContestID:    r.ContestID,
		UniversityID: r.UniversityID,
		CreatedAt:    r.CreatedAt,
	}
}
