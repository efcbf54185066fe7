// Package stats keeps running summaries of match scores and tuner fitness.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Statistic is a running mean and variance over pushed values.
// The zero value is ready to use.
type Statistic struct {
	n    int
	last float64
	min  float64
	max  float64

	// Welford's algorithm
	mean float64
	m2   float64
}

func (s *Statistic) Push(val float64) {
	s.last = val
	s.n++
	if s.n == 1 {
		s.mean = val
		s.m2 = 0
		s.min, s.max = val, val
		return
	}
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (val - s.mean)
	s.min = math.Min(s.min, val)
	s.max = math.Max(s.max, val)
}

// Merge folds o into s as if every value pushed to o had been pushed to s.
// Last is taken from o when o is not empty.
func (s *Statistic) Merge(o Statistic) {
	if o.n == 0 {
		return
	}
	if s.n == 0 {
		*s = o
		return
	}
	n := s.n + o.n
	delta := o.mean - s.mean
	s.m2 += o.m2 + delta*delta*float64(s.n)*float64(o.n)/float64(n)
	s.mean += delta * float64(o.n) / float64(n)
	s.n = n
	s.min = math.Min(s.min, o.min)
	s.max = math.Max(s.max, o.max)
	s.last = o.last
}

func (s *Statistic) Mean() float64 {
	if s.n > 0 {
		return s.mean
	}
	return 0.0
}

func (s *Statistic) Variance() float64 {
	if s.n <= 1 {
		return 0.0
	}
	return s.m2 / float64(s.n-1)
}

func (s *Statistic) Stdev() float64 {
	return math.Sqrt(s.Variance())
}

func (s *Statistic) Last() float64 {
	return s.last
}

func (s *Statistic) Min() float64 {
	return s.min
}

func (s *Statistic) Max() float64 {
	return s.max
}

// StandardError returns the standard error of the mean.
func (s *Statistic) StandardError() float64 {
	if s.n == 0 {
		return 0.0
	}
	return math.Sqrt(s.Variance() / float64(s.n))
}

// ConfidenceInterval returns the two-tailed interval around the mean for a
// confidence given in percent.
func (s *Statistic) ConfidenceInterval(confidence float64) (float64, float64) {
	e := ZVal(confidence) * s.StandardError()
	return s.Mean() - e, s.Mean() + e
}

// ZVal is the standard normal quantile that leaves (100-pct)/2 percent in
// each tail, e.g. 1.96 for 95.
func ZVal(pct float64) float64 {
	return distuv.UnitNormal.Quantile(0.5 + pct/200)
}

func (s *Statistic) Iterations() int {
	return s.n
}

func (s *Statistic) String() string {
	return fmt.Sprintf("n=%d mean=%.3f stdev=%.3f min=%.3f max=%.3f",
		s.n, s.Mean(), s.Stdev(), s.min, s.max)
}
