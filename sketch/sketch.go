// Package sketch provides a bounded-memory summary of a multiset of
// non-negative values, bucketed on a logarithmic scale so that any quantile
// can be estimated with a controlled relative error. When the bucket count
// outgrows a bound, adjacent buckets are merged pairwise, halving the
// resolution and doubling the error target.
package sketch

import (
	"errors"
	"slices"
)

// ErrEmpty is returned when a quantile is requested from a sketch that holds
// no values.
var ErrEmpty = errors.New("sketch is empty")

// Sketch maps integer bucket keys to positive occupancy counts. No entry has a
// count of zero; decrementing a count to zero erases the key. The mapping is
// always interpreted against a single current Resolution, which the caller
// passes to the operations that need it.
//
// This type is not concurrency safe.
type Sketch struct {
	bins       map[int]int
	population int
}

func New() *Sketch {
	return &Sketch{bins: make(map[int]int)}
}

// Inc adds one to the count at key, creating the bucket if absent.
func (s *Sketch) Inc(key int) {
	s.bins[key]++
	s.population++
}

// Dec subtracts one from the count at key, erasing the bucket when it reaches
// zero. It reports whether the key was present; the caller decides whether a
// miss is fatal.
func (s *Sketch) Dec(key int) bool {
	c, ok := s.bins[key]
	if !ok {
		return false
	}
	if c == 1 {
		delete(s.bins, key)
	} else {
		s.bins[key] = c - 1
	}
	s.population--
	return true
}

// Size returns the current bucket count.
func (s *Sketch) Size() int {
	return len(s.bins)
}

// Population returns the total count across all buckets.
func (s *Sketch) Population() int {
	return s.population
}

// Count returns the occupancy of a single bucket.
func (s *Sketch) Count(key int) int {
	return s.bins[key]
}

// Keys returns the bucket keys in ascending order.
func (s *Sketch) Keys() []int {
	keys := make([]int, 0, len(s.bins))
	for k := range s.bins {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Estimate returns the midpoint estimate for the q-th quantile of the
// summarized multiset: walking buckets in ascending key order, the first
// bucket whose cumulative count exceeds q*(n-1) supplies the estimate.
func (s *Sketch) Estimate(q float64, res Resolution) (float64, error) {
	if s.population == 0 {
		return 0, ErrEmpty
	}
	fraction := q * float64(s.population-1)
	cum := 0
	keys := s.Keys()
	for _, k := range keys {
		cum += s.bins[k]
		if float64(cum) > fraction {
			return res.Value(k), nil
		}
	}
	return res.Value(keys[len(keys)-1]), nil
}

// Shrink runs collapse rounds until the bucket count is at most bound,
// returning the resolution in effect afterwards and the number of rounds run.
// Each round merges every key k into ceil(k/2), summing counts; the sink key
// only merges with itself. Merging preserves the population exactly.
//
// Shrink stops early if every remaining key maps to itself under the merge,
// since further rounds could never reduce the bucket count.
func (s *Sketch) Shrink(bound int, res Resolution) (Resolution, int) {
	rounds := 0
	for len(s.bins) > bound {
		res = res.Collapse()
		s.collapse()
		rounds++
		if s.fixed() {
			break
		}
	}
	return res, rounds
}

func (s *Sketch) collapse() {
	merged := make(map[int]int, len(s.bins)/2+1)
	for k, c := range s.bins {
		if k == SinkKey {
			merged[k] += c
			continue
		}
		merged[ceilHalf(k)] += c
	}
	s.bins = merged
}

// fixed reports whether every key is a fixpoint of the pairwise merge.
func (s *Sketch) fixed() bool {
	for k := range s.bins {
		if k != SinkKey && ceilHalf(k) != k {
			return false
		}
	}
	return true
}

// ceilHalf is ceil(k/2) for signed integers.
func ceilHalf(k int) int {
	if k%2 == 0 {
		return k / 2
	}
	return (k + 1) / 2
}
