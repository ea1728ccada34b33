package afqn

import (
	"log/slog"
	"math"

	"github.com/cafaro/afqn/sketch"
	"github.com/cafaro/afqn/window"
)

// Estimator maintains the sliding Qn synopsis: the window ring, the sorted
// window, the bucketed difference sketch, and the resolution context, all kept
// consistent by the admission protocol. Build one with NewBuilder.
//
// This type is not concurrency safe.
type Estimator struct {
	size    int
	bound   int
	policy  UpdatePolicy
	samples int
	logger  *slog.Logger

	ring   *window.Ring
	sorted *window.Sorted
	sk     *sketch.Sketch
	res    sketch.Resolution

	kth      int
	pairs    int
	quantile float64

	collapses int
	misses    int
}

// Sample is the synopsis state reported after one post-warm-up admission.
type Sample struct {
	// Seq and Value identify the logical middle element of the window, the
	// element the outlier decision applies to.
	Seq   int64
	Value float64

	// Median is the window median, Estimate the raw (uncorrected) Qn
	// estimate read from the sketch.
	Median   float64
	Estimate float64

	Alpha     float64
	Collapses int
	Bins      int
}

// Metrics exposes the synopsis counters.
type Metrics struct {
	Collapses  int
	Bins       int
	Population int
	Misses     int
	Alpha      float64
	Gamma      float64
}

// Admit feeds the next observation into the synopsis. It returns nil without
// error during warm-up, while the window is still filling; afterwards it
// returns the state of the synopsis for the admission, including the middle
// element the caller may classify. Errors indicate a synopsis invariant was
// violated and the estimator must be discarded.
func (e *Estimator) Admit(x float64) (*Sample, error) {
	evicted, full := e.ring.Admit(x)
	if !full {
		e.warmup(x)
		return nil, nil
	}

	if x != evicted {
		var err error
		if e.policy == UpdateFull {
			err = e.replaceFull(evicted, x)
		} else {
			err = e.replaceSampled(evicted, x)
		}
		if err != nil {
			return nil, err
		}
		e.shrink()
	}

	estimate, err := e.sk.Estimate(e.quantile, e.res)
	if err != nil {
		return nil, err
	}
	value, seq := e.ring.Middle()
	return &Sample{
		Seq:       seq,
		Value:     value,
		Median:    e.sorted.Median(),
		Estimate:  estimate,
		Alpha:     e.res.Alpha,
		Collapses: e.collapses,
		Bins:      e.sk.Size(),
	}, nil
}

// warmup grows the sorted window by insertion and adds the differences of x
// against every value already present directly to the sketch.
func (e *Estimator) warmup(x float64) {
	for i := 0; i < e.sorted.Len(); i++ {
		e.sk.Inc(e.res.Key(math.Abs(x - e.sorted.At(i))))
	}
	e.sorted.Insert(x)
	e.shrink()
}

// replaceFull walks the sorted window replacing old with x, and reworks the
// difference of every surviving occupant in the same pass: the pair (p, old)
// becomes (p, x), so when the two bucket keys differ the new bucket is
// incremented and the old one decremented. The sketch population is unchanged
// and the sketch matches the window exactly at the end of the walk.
func (e *Estimator) replaceFull(old, x float64) error {
	err := e.sorted.Replace(old, x, func(p float64) error {
		oldKey := e.res.Key(math.Abs(p - old))
		newKey := e.res.Key(math.Abs(p - x))
		if newKey == oldKey {
			return nil
		}
		e.sk.Inc(newKey)
		if !e.sk.Dec(oldKey) {
			return ErrSketchDesynced
		}
		return nil
	})
	if err == window.ErrNotFound {
		return ErrEvictedMissing
	}
	return err
}

// replaceSampled reworks only a subsample of the affected differences: it
// removes up to ceil((s-1)/t) differences involving old, shifts the sorted
// window, then adds exactly as many differences involving new, keeping the
// sketch population balanced. Sampled removals may miss buckets that were
// reworked under an earlier resolution; misses are counted, not fatal.
func (e *Estimator) replaceSampled(old, x float64) error {
	pos, ok := e.sorted.Find(old)
	if !ok {
		return ErrEvictedMissing
	}

	var removed int
	if e.policy == UpdateUniform {
		removed = e.uniformRemove(pos, e.samples, old)
	} else {
		removed = e.nearestRemove(pos, e.samples, old)
	}

	_, planted, err := e.sorted.Shift(old, x)
	if err != nil {
		return ErrEvictedMissing
	}

	if e.policy == UpdateUniform {
		e.uniformAdd(planted, removed, x)
	} else {
		e.nearestAdd(planted, removed, x)
	}
	return nil
}

// shrink runs the collapse controller and installs the resolution it settles
// on.
func (e *Estimator) shrink() {
	res, rounds := e.sk.Shrink(e.bound, e.res)
	if rounds == 0 {
		return
	}
	e.res = res
	e.collapses += rounds
	if e.logger != nil && e.logger.Enabled(nil, slog.LevelDebug) {
		e.logger.Debug("collapsed sketch",
			"rounds", rounds,
			"alpha", e.res.Alpha,
			"bins", e.sk.Size())
	}
}

// Rebuild reconstructs the sketch from scratch out of the sorted window under
// the current resolution. Under a sampled policy the incrementally maintained
// sketch drifts from the true difference multiset; a periodic rebuild bounds
// that drift.
func (e *Estimator) Rebuild() {
	fresh := sketch.New()
	n := e.sorted.Len()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			fresh.Inc(e.res.Key(math.Abs(e.sorted.At(i) - e.sorted.At(j))))
		}
	}
	e.sk = fresh
	e.shrink()
}

// EstimateQuantile reads an arbitrary quantile of the difference multiset
// from the sketch under the current resolution.
func (e *Estimator) EstimateQuantile(q float64) (float64, error) {
	return e.sk.Estimate(q, e.res)
}

// WindowSize returns the window capacity s.
func (e *Estimator) WindowSize() int {
	return e.size
}

// K returns the rank of the order statistic estimated as Qn: k = h(h-1)/2
// with h = floor(s/2)+1.
func (e *Estimator) K() int {
	return e.kth
}

// Pairs returns the number of pairwise differences in a full window,
// s(s-1)/2.
func (e *Estimator) Pairs() int {
	return e.pairs
}

// Quantile returns the sketch quantile fraction (k-1)/(I-1) that Admit
// estimates on every admission.
func (e *Estimator) Quantile() float64 {
	return e.quantile
}

// Warm reports whether the window has filled.
func (e *Estimator) Warm() bool {
	return e.ring.Seq() >= int64(e.size)
}

// Median returns the current window median.
func (e *Estimator) Median() float64 {
	return e.sorted.Median()
}

// Resolution returns the current resolution context.
func (e *Estimator) Resolution() sketch.Resolution {
	return e.res
}

// Metrics returns the synopsis counters.
func (e *Estimator) Metrics() Metrics {
	return Metrics{
		Collapses:  e.collapses,
		Bins:       e.sk.Size(),
		Population: e.sk.Population(),
		Misses:     e.misses,
		Alpha:      e.res.Alpha,
		Gamma:      e.res.Gamma,
	}
}
