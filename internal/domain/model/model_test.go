package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/teamalloc/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestLanguages(t *testing.T) {
	convey.Convey("Given the tracked programming languages", t, func() {
		convey.Convey("When parsing registration names", func() {
			convey.Convey("Then known names resolve", func() {
				l, ok := model.ParseLanguage(" Python ")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(l, convey.ShouldEqual, model.Python)

				l, ok = model.ParseLanguage("c++")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(l, convey.ShouldEqual, model.CPP)
			})

			convey.Convey("And unknown names are rejected", func() {
				_, ok := model.ParseLanguage("cobol")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When printing languages and levels", func() {
			convey.So(model.Java.String(), convey.ShouldEqual, "java")
			convey.So(model.Language(42).String(), convey.ShouldEqual, "unknown")
			convey.So(model.ParseLevel("Proficient"), convey.ShouldEqual, model.LevelProficient)
			convey.So(model.ParseLevel("whatever"), convey.ShouldEqual, model.LevelNone)
			convey.So(model.LevelSome.String(), convey.ShouldEqual, "some")
		})
	})
}

func TestExperience(t *testing.T) {
	convey.Convey("Given two experience profiles", t, func() {
		a := model.Experience{model.LevelProficient, model.LevelNone, model.LevelSome, model.LevelNone}
		b := model.Experience{model.LevelNone, model.LevelSome, model.LevelProficient, model.LevelNone}

		convey.Convey("When merging them", func() {
			m := a.Merge(b)

			convey.Convey("Then each language keeps the stronger level", func() {
				convey.So(m, convey.ShouldResemble, model.Experience{
					model.LevelProficient, model.LevelSome, model.LevelProficient, model.LevelNone,
				})
			})

			convey.Convey("And the inputs are untouched", func() {
				convey.So(a[model.Java], convey.ShouldEqual, model.LevelNone)
			})
		})

		convey.Convey("When checking for any experience", func() {
			convey.So(a.Any(), convey.ShouldBeTrue)
			convey.So(model.Experience{}.Any(), convey.ShouldBeFalse)
		})
	})
}

func TestUnit(t *testing.T) {
	convey.Convey("Given units of different sizes", t, func() {
		one := model.Unit{Members: []model.StudentRecord{{ID: "1"}}}
		three := model.Unit{Members: []model.StudentRecord{{ID: "1"}, {ID: "2"}, {ID: "3"}}}
		empty := model.Unit{}
		four := model.Unit{Members: make([]model.StudentRecord, 4)}

		convey.Convey("Then size and terminal state follow the member count", func() {
			convey.So(one.Size(), convey.ShouldEqual, 1)
			convey.So(one.Terminal(), convey.ShouldBeFalse)
			convey.So(three.Terminal(), convey.ShouldBeTrue)
			convey.So(three.IDs(), convey.ShouldResemble, []string{"1", "2", "3"})
		})

		convey.Convey("Then only 1..3 members validate", func() {
			convey.So(one.Validate(), convey.ShouldBeNil)
			convey.So(three.Validate(), convey.ShouldBeNil)
			convey.So(errors.Is(empty.Validate(), model.ErrInvalidUnit), convey.ShouldBeTrue)
			convey.So(errors.Is(four.Validate(), model.ErrInvalidUnit), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a student record", t, func() {
		s := model.StudentRecord{GivenName: "Yian", FamilyName: "Li"}
		convey.So(s.FullName(), convey.ShouldEqual, "Yian Li")

		s.FamilyName = ""
		convey.So(s.FullName(), convey.ShouldEqual, "Yian")
	})

	convey.Convey("Given trigger stages", t, func() {
		convey.So(model.StageFinal.Valid(), convey.ShouldBeTrue)
		convey.So(model.Stage("late").Valid(), convey.ShouldBeFalse)
	})
}
