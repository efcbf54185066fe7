package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestRunningStat(t *testing.T) {
	is := is.New(t)
	type tc struct {
		scores []int
		mean   float64
		stdev  float64
	}
	cases := []tc{
		{[]int{10, 12, 23, 23, 16, 23, 21, 16}, 18, 5.2372293656638},
		{[]int{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}, 47.2, 36.937785531891},
		{[]int{1}, 1, 0},
		{[]int{}, 0, 0},
		{[]int{1, 1}, 1, 0},
	}
	for _, c := range cases {
		s := &Statistic{}
		for _, score := range c.scores {
			s.Push(float64(score))
		}
		is.True(FuzzyEqual(s.Mean(), c.mean))
		is.True(FuzzyEqual(s.Stdev(), c.stdev))
		is.Equal(s.Iterations(), len(c.scores))
	}
}

func TestMinMaxLast(t *testing.T) {
	is := is.New(t)
	s := &Statistic{}
	for _, v := range []float64{3, -2, 9, 4} {
		s.Push(v)
	}
	is.Equal(s.Min(), -2.0)
	is.Equal(s.Max(), 9.0)
	is.Equal(s.Last(), 4.0)
}

func TestMerge(t *testing.T) {
	is := is.New(t)
	all := &Statistic{}
	a, b := Statistic{}, Statistic{}
	scores := []float64{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}
	for i, v := range scores {
		all.Push(v)
		if i < 4 {
			a.Push(v)
		} else {
			b.Push(v)
		}
	}
	a.Merge(b)
	is.True(FuzzyEqual(a.Mean(), all.Mean()))
	is.True(FuzzyEqual(a.Stdev(), all.Stdev()))
	is.Equal(a.Iterations(), all.Iterations())
	is.Equal(a.Min(), all.Min())
	is.Equal(a.Max(), all.Max())

	empty := Statistic{}
	empty.Merge(b)
	is.Equal(empty, b)
	b.Merge(Statistic{})
	is.Equal(empty, b)
}

func TestZVal(t *testing.T) {
	is := is.New(t)
	is.True(FuzzyEqual(ZVal(95), 1.959963984540054))
	is.True(FuzzyEqual(ZVal(99), 2.575829303548901))
	is.True(FuzzyEqual(ZVal(0), 0))
}

func TestConfidenceInterval(t *testing.T) {
	is := is.New(t)
	s := &Statistic{}
	for _, v := range []float64{1, 0, 1, 1, 0.5, 0, 1, 1} {
		s.Push(v)
	}
	lo, hi := s.ConfidenceInterval(95)
	is.True(lo < s.Mean())
	is.True(hi > s.Mean())
	is.True(FuzzyEqual(hi-s.Mean(), s.Mean()-lo))
	is.True(FuzzyEqual(hi-lo, 2*ZVal(95)*s.StandardError()))
}

func TestHistogram(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	is.NoErr(FprintHistogram(&buf, []float64{1, 2, 2, 3, 3, 3, 10}, 3))
	is.Equal(len(strings.Split(strings.TrimSpace(buf.String()), "\n")), 3)

	buf.Reset()
	is.NoErr(FprintHistogram(&buf, nil, 3))
	is.Equal(buf.Len(), 0)
}
