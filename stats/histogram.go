package stats

import (
	"io"

	"github.com/aybabtme/uniplot/histogram"
)

const histogramWidth = 40

// FprintHistogram draws values as a text histogram with the given number of
// buckets. Nothing is written for an empty input.
func FprintHistogram(w io.Writer, values []float64, bins int) error {
	if len(values) == 0 {
		return nil
	}
	h := histogram.Hist(bins, values)
	return histogram.Fprint(w, h, histogram.Linear(histogramWidth))
}
