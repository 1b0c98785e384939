// Package scoring computes a single strength score per registered student.
//
// The score is a weighted sum of contest history, two rating scales and the
// completed-course list. Completed courses contribute their numeric course ID
// times the course weight, so a higher course ID weighs more. That proxy for
// "more advanced course" is product policy carried over from the registration
// system and has never been validated.
package scoring

import "github.com/okian/teamalloc/internal/domain/model"

// Default weights.
const (
	DefaultContestWeight = 5.0
	DefaultRating1Weight = 4.0
	DefaultRating2Weight = 4.0
	DefaultCourseWeight  = 3.0

	// ratingScale brings ratings in the thousands down to contest-count range.
	ratingScale = 1000.0
)

// Weights holds the tunable score weights.
type Weights struct {
	Contest float64
	Rating1 float64
	Rating2 float64
	Course  float64
}

// DefaultWeights returns the default weight set.
func DefaultWeights() Weights {
	return Weights{
		Contest: DefaultContestWeight,
		Rating1: DefaultRating1Weight,
		Rating2: DefaultRating2Weight,
		Course:  DefaultCourseWeight,
	}
}

// Scorer computes the strength score of a student.
type Scorer interface {
	Score(s *model.StudentRecord) float64
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithWeights replaces the full weight set.
func WithWeights(w Weights) Option {
	return func(c *Calculator) {
		c.weights = w
	}
}

// WithContestWeight sets the per-contest weight.
func WithContestWeight(w float64) Option {
	return func(c *Calculator) {
		c.weights.Contest = w
	}
}

// WithCourseWeight sets the course-ID multiplier.
func WithCourseWeight(w float64) Option {
	return func(c *Calculator) {
		c.weights.Course = w
	}
}

// Calculator implements Scorer with configurable weights. It is stateless
// after construction and safe for concurrent use.
type Calculator struct {
	weights Weights
}

// NewCalculator creates a calculator with default weights and the given options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Weights returns the active weight set.
func (c *Calculator) Weights() Weights { return c.weights }

// Score computes the weighted strength score for s.
func (c *Calculator) Score(s *model.StudentRecord) float64 {
	score := float64(s.ContestExperience)*c.weights.Contest +
		s.Rating1/ratingScale*c.weights.Rating1 +
		s.Rating2/ratingScale*c.weights.Rating2
	for _, course := range s.CompletedCourses {
		score += float64(course) * c.weights.Course
	}
	return score
}
