package compat_test

import (
	"testing"

	"github.com/okian/teamalloc/internal/domain/compat"
	"github.com/okian/teamalloc/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func profile(langs []string, exp ...model.Level) compat.Profile {
	var e model.Experience
	copy(e[:], exp)
	return compat.Profile{SpokenLanguages: langs, Experience: e}
}

func TestCompatible(t *testing.T) {
	Convey("Given two profiles", t, func() {
		Convey("When they share English and Python", func() {
			a := profile([]string{"en"}, model.LevelProficient)
			b := profile([]string{"fr", "EN"}, model.LevelSome)

			Convey("Then they are compatible", func() {
				So(compat.Compatible(a, b), ShouldBeTrue)
			})
		})

		Convey("When they share a spoken language but no programming language", func() {
			a := profile([]string{"en"}, model.LevelProficient, model.LevelNone)
			b := profile([]string{"en"}, model.LevelNone, model.LevelProficient)

			Convey("Then they are not compatible", func() {
				So(compat.Compatible(a, b), ShouldBeFalse)
			})
		})

		Convey("When they share a programming language but no spoken language", func() {
			a := profile([]string{"en"}, model.LevelSome)
			b := profile([]string{"fr"}, model.LevelSome)

			Convey("Then they are not compatible", func() {
				So(compat.Compatible(a, b), ShouldBeFalse)
			})
		})

		Convey("When one side has no experience at all", func() {
			a := profile([]string{"en"})
			b := profile([]string{"en"}, model.LevelProficient, model.LevelProficient, model.LevelProficient, model.LevelProficient)

			Convey("Then they are not compatible", func() {
				So(compat.Compatible(a, b), ShouldBeFalse)
			})
		})

		Convey("When spoken language lists contain blanks", func() {
			a := profile([]string{" ", ""}, model.LevelSome)
			b := profile([]string{""}, model.LevelSome)

			Convey("Then blanks never match", func() {
				So(compat.Compatible(a, b), ShouldBeFalse)
			})
		})
	})
}

func TestCompatibleIsSymmetric(t *testing.T) {
	Convey("Given every combination of a small profile space", t, func() {
		langSets := [][]string{nil, {"en"}, {"fr"}, {"en", "fr"}, {"de", "EN"}}
		levels := []model.Level{model.LevelNone, model.LevelSome, model.LevelProficient}

		var profiles []compat.Profile
		for _, langs := range langSets {
			for _, py := range levels {
				for _, java := range levels {
					for _, cpp := range levels {
						var e model.Experience
						e[model.Python], e[model.Java], e[model.CPP] = py, java, cpp
						profiles = append(profiles, compat.Profile{SpokenLanguages: langs, Experience: e})
					}
				}
			}
		}

		Convey("Then argument order never changes the result", func() {
			asymmetric := 0
			for i := range profiles {
				for j := range profiles {
					if compat.Compatible(profiles[i], profiles[j]) != compat.Compatible(profiles[j], profiles[i]) {
						asymmetric++
					}
				}
			}
			So(asymmetric, ShouldEqual, 0)
		})
	})
}

func TestUnits(t *testing.T) {
	Convey("Given two units", t, func() {
		a := &model.Unit{SpokenLanguages: []string{"en"}, Experience: model.Experience{model.LevelSome}}
		b := &model.Unit{SpokenLanguages: []string{"en"}, Experience: model.Experience{model.LevelProficient}}

		Convey("Then unit compatibility uses their aggregate profiles", func() {
			So(compat.Units(a, b), ShouldBeTrue)
			So(compat.Units(b, a), ShouldBeTrue)
		})
	})
}
