package rostergen_test

import (
	"testing"

	"github.com/okian/teamalloc/internal/rostergen"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("Given a generator configuration", t, func() {
		Convey("When generating twice with the same seed", func() {
			a := rostergen.Generate(rostergen.WithSize(40), rostergen.WithSeed(7))
			b := rostergen.Generate(rostergen.WithSize(40), rostergen.WithSeed(7))

			Convey("Then the rosters are identical", func() {
				So(a, ShouldResemble, b)
			})
		})

		Convey("When generating for a university", func() {
			roster := rostergen.Generate(rostergen.WithSize(10), rostergen.WithUniversity("c1", "u1"))

			Convey("Then records carry the identifiers and unique IDs", func() {
				So(roster, ShouldHaveLength, 10)
				ids := map[string]bool{}
				for _, s := range roster {
					So(s.ContestID, ShouldEqual, "c1")
					So(s.UniversityID, ShouldEqual, "u1")
					So(s.SpokenLanguages, ShouldNotBeEmpty)
					ids[s.ID] = true
				}
				So(ids, ShouldHaveLength, 10)
				So(ids["u1-1"], ShouldBeTrue)
			})
		})

		Convey("When every student must lack experience", func() {
			roster := rostergen.Generate(rostergen.WithSize(5), rostergen.WithNoExperienceRate(100))

			Convey("Then no experience is generated", func() {
				for _, s := range roster {
					So(s.Experience.Any(), ShouldBeFalse)
				}
			})
		})

		Convey("When nobody has preferences or exclusions", func() {
			roster := rostergen.Generate(
				rostergen.WithSize(12),
				rostergen.WithPreferenceRates(0, 0, 0),
				rostergen.WithExclusionRate(0),
			)

			Convey("Then preferences are empty or none", func() {
				for _, s := range roster {
					So(s.Preference == "" || s.Preference == "none", ShouldBeTrue)
					So(s.Exclusions, ShouldBeEmpty)
				}
			})
		})
	})
}
