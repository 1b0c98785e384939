package exclusion_test

import (
	"testing"

	"github.com/okian/teamalloc/internal/domain/exclusion"
	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func student(id, given, family, excl string) model.StudentRecord {
	return model.StudentRecord{ID: id, GivenName: given, FamilyName: family, Exclusions: excl}
}

func TestParse(t *testing.T) {
	convey.Convey("Given free-text exclusion strings", t, func() {
		convey.So(exclusion.Parse(""), convey.ShouldBeNil)
		convey.So(exclusion.Parse("   "), convey.ShouldBeNil)
		convey.So(exclusion.Parse("Yian Li, Bob"), convey.ShouldResemble, []string{"Yian Li", "Bob"})
		convey.So(exclusion.Parse("Bob, , Carol "), convey.ShouldResemble, []string{"Bob", "Carol"})
	})
}

func TestFlagged(t *testing.T) {
	convey.Convey("Given a team of three", t, func() {
		convey.Convey("When student A excludes Yian and B is Yian Li", func() {
			members := []model.StudentRecord{
				student("a", "Alice", "Smith", "Yian"),
				student("b", "Yian", "Li", ""),
				student("c", "Carl", "Jones", ""),
			}

			convey.Convey("Then the team is flagged", func() {
				convey.So(exclusion.Flagged(members), convey.ShouldBeTrue)
			})

			convey.Convey("And the conflict names both students", func() {
				conflicts := exclusion.Conflicts(members)
				convey.So(conflicts, convey.ShouldHaveLength, 1)
				convey.So(conflicts[0], convey.ShouldResemble, exclusion.Conflict{StudentID: "a", Token: "Yian", ExcludedID: "b"})
			})
		})

		convey.Convey("When nobody excludes a teammate", func() {
			members := []model.StudentRecord{
				student("a", "Alice", "Smith", "Zed Zedson"),
				student("b", "Yian", "Li", ""),
				student("c", "Carl", "Jones", "   "),
			}

			convey.Convey("Then the team is not flagged", func() {
				convey.So(exclusion.Flagged(members), convey.ShouldBeFalse)
				convey.So(exclusion.Conflicts(members), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a student excludes their own name", func() {
			members := []model.StudentRecord{
				student("a", "Alice", "Smith", "Alice"),
				student("b", "Yian", "Li", ""),
				student("c", "Carl", "Jones", ""),
			}

			convey.Convey("Then self matches are ignored", func() {
				convey.So(exclusion.Flagged(members), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the last member excludes the first by family name", func() {
			members := []model.StudentRecord{
				student("a", "Alice", "Smith", ""),
				student("b", "Yian", "Li", ""),
				student("c", "Carl", "Jones", "Bob, Smith"),
			}

			convey.Convey("Then the team is flagged", func() {
				convey.So(exclusion.Flagged(members), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When two members exclude each other", func() {
			members := []model.StudentRecord{
				student("a", "Alice", "Smith", "Carl"),
				student("b", "Yian", "Li", ""),
				student("c", "Carl", "Jones", "Alice Smith"),
			}

			convey.Convey("Then both conflicts are listed and the team is flagged", func() {
				conflicts := exclusion.Conflicts(members)
				convey.So(conflicts, convey.ShouldResemble, []exclusion.Conflict{
					{StudentID: "a", Token: "Carl", ExcludedID: "c"},
					{StudentID: "c", Token: "Alice Smith", ExcludedID: "a"},
				})
				convey.So(exclusion.Flagged(members), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a short token occurs inside an unrelated name", func() {
			members := []model.StudentRecord{
				student("a", "Alice", "Smith", "Li"),
				student("b", "Lisa", "Ng", ""),
				student("c", "Carl", "Jones", ""),
			}

			convey.Convey("Then substring matching flags it anyway", func() {
				convey.So(exclusion.Flagged(members), convey.ShouldBeTrue)
			})
		})
	})
}
