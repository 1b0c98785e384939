package scoring_test

import (
	"testing"

	"github.com/okian/teamalloc/internal/domain/model"
	scoring "github.com/okian/teamalloc/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCalculator_Score(t *testing.T) {
	Convey("Given a calculator with default weights", t, func() {
		calc := scoring.NewCalculator()

		Convey("When scoring a student with no history", func() {
			s := &model.StudentRecord{ID: "1"}

			Convey("Then the score is zero", func() {
				So(calc.Score(s), ShouldEqual, 0)
			})
		})

		Convey("When scoring a student with full history", func() {
			s := &model.StudentRecord{
				ID:                "2",
				ContestExperience: 2,
				Rating1:           1500,
				Rating2:           2000,
				CompletedCourses:  []int{1, 3},
			}

			Convey("Then every component is weighted", func() {
				// 2*5 + 1.5*4 + 2*4 + (1+3)*3
				So(calc.Score(s), ShouldAlmostEqual, 10+6+8+12, 1e-9)
			})
		})

		Convey("When two students differ only by course id", func() {
			low := &model.StudentRecord{CompletedCourses: []int{2}}
			high := &model.StudentRecord{CompletedCourses: []int{4}}

			Convey("Then the higher course id contributes proportionally more", func() {
				So(calc.Score(high), ShouldEqual, 2*calc.Score(low))
			})
		})
	})

	Convey("Given a calculator with custom weights", t, func() {
		calc := scoring.NewCalculator(
			scoring.WithWeights(scoring.Weights{Contest: 1, Rating1: 0, Rating2: 0, Course: 0}),
			scoring.WithCourseWeight(10),
		)

		Convey("Then options apply in order", func() {
			So(calc.Weights().Course, ShouldEqual, 10)
			So(calc.Weights().Contest, ShouldEqual, 1)
			So(calc.Score(&model.StudentRecord{ContestExperience: 3, CompletedCourses: []int{2}}), ShouldEqual, 23)
		})

		Convey("And the contest weight can be tuned alone", func() {
			c := scoring.NewCalculator(scoring.WithContestWeight(0))
			So(c.Score(&model.StudentRecord{ContestExperience: 9}), ShouldEqual, 0)
			So(c.Weights().Rating1, ShouldEqual, scoring.DefaultRating1Weight)
		})
	})
}
