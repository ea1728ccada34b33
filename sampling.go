package afqn

import (
	"math"

	"github.com/bits-and-blooms/bitset"
)

// Sampled update phases. Both strategies walk outward from a pivot position in
// the sorted window and stop after touching the target number of differences.
// The remove phases decrement the bucket of |P[i] - old| for each sampled
// neighbor i; a missing bucket is counted as a miss and skipped, since under
// sampling the pair's difference may have been bucketed under an earlier
// resolution. The add phases increment the bucket of |P[i] - new| and always
// reach their target, which callers set to the removed count to keep the
// sketch population balanced.

// uniformRemove samples neighbors of pos by striding, widening the starting
// offset each round until the target is met or the window is exhausted.
// Visited positions are tracked so overlapping rounds never touch the same
// pair twice.
func (e *Estimator) uniformRemove(pos, target int, old float64) int {
	stride := e.stride(target)
	seen := bitset.New(uint(e.size))
	removed := 0
	for round := 0; removed < target; round++ {
		r := pos + 1 + round
		l := pos - 1 - round
		if r >= e.size && l < 0 {
			break
		}
		for ; r < e.size && removed < target; r += stride {
			if !e.visit(seen, r) {
				continue
			}
			if e.sk.Dec(e.res.Key(math.Abs(e.sorted.At(r) - old))) {
				removed++
			} else {
				e.misses++
			}
		}
		for ; l >= 0 && removed < target; l -= stride {
			if !e.visit(seen, l) {
				continue
			}
			if e.sk.Dec(e.res.Key(math.Abs(e.sorted.At(l) - old))) {
				removed++
			} else {
				e.misses++
			}
		}
	}
	return removed
}

// uniformAdd mirrors uniformRemove around the planted position.
func (e *Estimator) uniformAdd(pos, target int, x float64) int {
	stride := e.stride(target)
	seen := bitset.New(uint(e.size))
	added := 0
	for round := 0; added < target; round++ {
		r := pos + 1 + round
		l := pos - 1 - round
		if r >= e.size && l < 0 {
			break
		}
		for ; r < e.size && added < target; r += stride {
			if !e.visit(seen, r) {
				continue
			}
			e.sk.Inc(e.res.Key(math.Abs(e.sorted.At(r) - x)))
			added++
		}
		for ; l >= 0 && added < target; l -= stride {
			if !e.visit(seen, l) {
				continue
			}
			e.sk.Inc(e.res.Key(math.Abs(e.sorted.At(l) - x)))
			added++
		}
	}
	return added
}

// nearestRemove consumes neighbors of pos in order of increasing difference,
// comparing the two frontier candidates and advancing the side with the
// smaller one.
func (e *Estimator) nearestRemove(pos, target int, old float64) int {
	r, l := pos+1, pos-1
	removed := 0
	for removed < target {
		var d float64
		switch {
		case r < e.size && l >= 0:
			dl := math.Abs(e.sorted.At(l) - old)
			dr := math.Abs(e.sorted.At(r) - old)
			if dl <= dr {
				d = dl
				l--
			} else {
				d = dr
				r++
			}
		case r < e.size:
			d = math.Abs(e.sorted.At(r) - old)
			r++
		case l >= 0:
			d = math.Abs(e.sorted.At(l) - old)
			l--
		default:
			return removed
		}
		if e.sk.Dec(e.res.Key(d)) {
			removed++
		} else {
			e.misses++
		}
	}
	return removed
}

// nearestAdd mirrors nearestRemove around the planted position.
func (e *Estimator) nearestAdd(pos, target int, x float64) int {
	r, l := pos+1, pos-1
	added := 0
	for added < target {
		var d float64
		switch {
		case r < e.size && l >= 0:
			dl := math.Abs(e.sorted.At(l) - x)
			dr := math.Abs(e.sorted.At(r) - x)
			if dl <= dr {
				d = dl
				l--
			} else {
				d = dr
				r++
			}
		case r < e.size:
			d = math.Abs(e.sorted.At(r) - x)
			r++
		case l >= 0:
			d = math.Abs(e.sorted.At(l) - x)
			l--
		default:
			return added
		}
		e.sk.Inc(e.res.Key(d))
		added++
	}
	return added
}

// stride is the sampling step: one difference every (s-1)/target positions.
func (e *Estimator) stride(target int) int {
	stride := (e.size - 1) / target
	if stride < 1 {
		stride = 1
	}
	return stride
}

// visit marks position i, reporting whether it was unvisited.
func (e *Estimator) visit(seen *bitset.BitSet, i int) bool {
	if seen.Test(uint(i)) {
		return false
	}
	seen.Set(uint(i))
	return true
}
