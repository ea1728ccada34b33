// Package reference maintains the exact pairwise-difference multiset of a
// sliding window, as ground truth for the sketch-based estimates. It is used
// by the diagnostics path of the command line tool and by tests; it costs
// O(s*I) time per admission and O(I) memory, which is exactly what the sketch
// exists to avoid.
package reference

import (
	"math"

	"github.com/cafaro/afqn/internal/util"
)

// Diffs tracks the s(s-1)/2 pairwise absolute differences of the last s
// observations, exactly.
type Diffs struct {
	window  []float64
	pos     int
	count   int64
	diffs   []float64
	filled  int
	scratch []float64
}

func NewDiffs(windowSize int) *Diffs {
	pairs := windowSize * (windowSize - 1) / 2
	return &Diffs{
		window:  make([]float64, windowSize),
		pos:     -1,
		diffs:   make([]float64, pairs),
		scratch: make([]float64, pairs),
	}
}

// Admit slides the window by one observation. During warm-up the differences
// of x against every admitted value are appended; afterwards, for every
// retained value the difference it formed with the evicted value is replaced
// by the one it forms with x.
func (d *Diffs) Admit(x float64) {
	s := len(d.window)
	d.pos = (d.pos + 1) % s

	if d.count < int64(s) {
		n := int(d.count)
		for j := 0; j < n; j++ {
			d.diffs[d.filled] = math.Abs(x - d.window[j])
			d.filled++
		}
		d.window[d.pos] = x
		d.count++
		return
	}

	evicted := d.window[d.pos]
	d.window[d.pos] = x
	d.count++
	for l := 1; l < s; l++ {
		other := d.window[(d.pos+l)%s]
		old := math.Abs(evicted - other)
		for i := 0; i < d.filled; i++ {
			if d.diffs[i] == old {
				d.diffs[i] = math.Abs(x - other)
				break
			}
		}
	}
}

// Len returns the number of differences currently tracked.
func (d *Diffs) Len() int {
	return d.filled
}

// Values returns the tracked differences, unordered. The slice is reused on
// the next Admit.
func (d *Diffs) Values() []float64 {
	return d.diffs[:d.filled]
}

// Kth returns the k-th smallest difference, 0-based.
func (d *Diffs) Kth(k int) float64 {
	copy(d.scratch, d.diffs[:d.filled])
	return util.Select(d.scratch[:d.filled], k)
}

// Quantiles returns the minimum, the three quartiles, and the maximum of the
// tracked differences, along with the order-statistic index of each.
func (d *Diffs) Quantiles() (values [5]float64, indexes [5]int) {
	n := float64(d.filled)
	indexes = [5]int{
		0,
		util.CeilDiv(d.filled, 4) - 1,
		util.CeilDiv(d.filled, 2) - 1,
		int(math.Ceil(3*n/4)) - 1,
		d.filled - 1,
	}
	for i, k := range indexes {
		values[i] = d.Kth(k)
	}
	return values, indexes
}
