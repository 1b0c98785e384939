// Package storetest holds the behaviour suite every repository.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/teamalloc/internal/adapters/repository"
	"github.com/okian/teamalloc/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) repository.Store

const contest = "icpc-2026"

func student(id, uni string) model.StudentRecord {
	return model.StudentRecord{
		ID:                id,
		ContestID:         contest,
		UniversityID:      uni,
		GivenName:         "Given",
		FamilyName:        id,
		ContestExperience: 2,
		Rating1:           1500,
		CompletedCourses:  []int{1, 2},
		SpokenLanguages:   []string{"en", "zh"},
		Experience:        model.Experience{model.LevelProficient, model.LevelSome},
		Preference:        "b, c",
		Exclusions:        "Somebody",
	}
}

func team(name string, ids ...string) model.NamedTeam {
	return model.NamedTeam{
		Name: name,
		Team: model.Team{Members: ids, Names: ids, Score: 42.5, Flagged: name == "flagged"},
	}
}

func seed(ctx context.Context, s repository.Store) {
	So(s.UpsertUniversity(ctx, contest, model.University{ID: "u1", Name: "Old Name"}), ShouldBeNil)
	So(s.UpsertUniversity(ctx, contest, model.University{ID: "u2", Name: "Second"}), ShouldBeNil)
	So(s.UpsertUniversity(ctx, contest, model.University{ID: "u1", Name: "First"}), ShouldBeNil)
	So(s.AddStudents(ctx, []model.StudentRecord{
		student("a", "u1"), student("b", "u1"), student("c", "u1"), student("d", "u1"),
		student("x", "u2"),
	}), ShouldBeNil)
}

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	Convey("Given a store with two registered universities", t, func() {
		s := newStore(t)
		seed(ctx, s)

		Convey("Then universities keep registration order and the latest name", func() {
			unis, err := s.Universities(ctx, contest)
			So(err, ShouldBeNil)
			So(unis, ShouldResemble, []model.University{{ID: "u1", Name: "First"}, {ID: "u2", Name: "Second"}})

			u, err := s.University(ctx, contest, "u2")
			So(err, ShouldBeNil)
			So(u.Name, ShouldEqual, "Second")
		})

		Convey("Then the roster round-trips every field in registration order", func() {
			roster, err := s.Roster(ctx, contest, "u1")
			So(err, ShouldBeNil)
			So(roster, ShouldHaveLength, 4)
			So(roster[0], ShouldResemble, student("a", "u1"))
			So(roster[3].ID, ShouldEqual, "d")
		})

		Convey("When teams are saved", func() {
			stored, err := s.SaveTeams(ctx, contest, "u1", []model.NamedTeam{team("First Team 1", "c", "a", "b")})
			So(err, ShouldBeNil)

			Convey("Then they get identities and keep their content", func() {
				So(stored, ShouldHaveLength, 1)
				So(stored[0].ID, ShouldNotBeEmpty)
				So(stored[0].ContestID, ShouldEqual, contest)
				So(stored[0].UniversityID, ShouldEqual, "u1")
				So(stored[0].Members, ShouldResemble, []string{"c", "a", "b"})
			})

			Convey("And placed students leave the roster", func() {
				roster, err := s.Roster(ctx, contest, "u1")
				So(err, ShouldBeNil)
				So(roster, ShouldHaveLength, 1)
				So(roster[0].ID, ShouldEqual, "d")
			})

			Convey("And they are listed and counted", func() {
				_, err := s.SaveTeams(ctx, contest, "u2", nil)
				So(err, ShouldBeNil)

				teams, err := s.Teams(ctx, contest, "u1")
				So(err, ShouldBeNil)
				So(teams, ShouldHaveLength, 1)
				So(teams[0].Name, ShouldEqual, "First Team 1")
				So(teams[0].Score, ShouldEqual, 42.5)

				n, err := s.CountTeams(ctx, contest, "u1")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				n, err = s.CountTeams(ctx, contest, "u2")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
				all, err := s.Teams(ctx, contest, "")
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 1)
			})

			Convey("And placing a member twice fails without partial writes", func() {
				_, err := s.SaveTeams(ctx, contest, "u1", []model.NamedTeam{
					team("flagged", "d", "a", "b"),
				})
				So(errors.Is(err, repository.ErrAlreadyPlaced), ShouldBeTrue)
				roster, _ := s.Roster(ctx, contest, "u1")
				So(roster, ShouldHaveLength, 1)
			})
		})

		Convey("When a batch names a member from another university", func() {
			_, err := s.SaveTeams(ctx, contest, "u1", []model.NamedTeam{team("t", "a", "b", "x")})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a team does not have three members", func() {
			_, err := s.SaveTeams(ctx, contest, "u1", []model.NamedTeam{team("t", "a", "b")})
			So(errors.Is(err, repository.ErrInvalidTeam), ShouldBeTrue)
		})

		Convey("When a student ID is registered twice", func() {
			err := s.AddStudents(ctx, []model.StudentRecord{student("a", "u2")})
			So(errors.Is(err, repository.ErrDuplicateStudent), ShouldBeTrue)
		})

		Convey("When a student names an unknown university", func() {
			err := s.AddStudents(ctx, []model.StudentRecord{student("z", "nowhere")})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given an empty store", t, func() {
		s := newStore(t)

		Convey("Then unknown contests and universities are not found", func() {
			_, err := s.Universities(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.Roster(ctx, "nope", "u1")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.University(ctx, "nope", "u1")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then invalid records are rejected", func() {
			So(errors.Is(s.UpsertUniversity(ctx, contest, model.University{}), repository.ErrInvalidUniversity), ShouldBeTrue)
			So(errors.Is(s.AddStudents(ctx, []model.StudentRecord{{}}), repository.ErrInvalidStudent), ShouldBeTrue)
		})
	})
}
