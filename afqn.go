/*
Package afqn implements an online estimator of the Qn scale statistic over a
sliding window of a real-valued data stream, and its use as a robust outlier
detector.

Qn is the k-th order statistic of the multiset of pairwise absolute
differences within the window, for k = h(h-1)/2 with h = floor(s/2)+1, scaled
by a size-dependent bias-correction factor. An Estimator maintains, in bounded
memory, an approximation of the Qn of the last s observations: the window is
kept both in admission order and in sorted order, and the s(s-1)/2 pairwise
differences are summarized by a logarithmically bucketed sketch whose bucket
count is kept below a configurable bound by adaptive collapsing. Each
admission reworks only the differences involving the evicted and admitted
values, so an update costs O(s) in full mode and less under a sampled policy.

A Detector couples an Estimator with a Classifier that flags the middle
element of the window as an outlier when its distance from the window median
exceeds three times the bias-corrected Qn estimate.

Estimators are built through a Builder:

	estimator, err := afqn.NewBuilder(1001).
		WithInitialAlpha(0.001).
		WithSketchBound(2002).
		Build()

This package is not concurrency safe: exactly one admission may be in flight
per Estimator at any moment.
*/
package afqn

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cafaro/afqn/sketch"
	"github.com/cafaro/afqn/window"
)

// Version identifies the estimator implementation in logs and reports.
const Version = "AFQNv1"

const (
	// DefaultWindowSize is the window size used by the command line tool when
	// none is given.
	DefaultWindowSize = 1001

	// DefaultAlpha is the initial relative-error target.
	DefaultAlpha = 0.001
)

var (
	// ErrEvictedMissing is returned when the value evicted from the window
	// ring cannot be found in the sorted window. It indicates the two window
	// views have gone out of sync and the synopsis is unusable.
	ErrEvictedMissing = errors.New("evicted value missing from sorted window")

	// ErrSketchDesynced is returned when a full-mode update tries to remove a
	// difference from a bucket that does not exist. Under the full update
	// policy every pair is accounted for, so a missing bucket is a bug.
	ErrSketchDesynced = errors.New("difference bucket missing from sketch")
)

// UpdatePolicy selects how the pairwise differences involving a replaced
// window element are reworked on each admission.
type UpdatePolicy int

const (
	// UpdateFull reworks all s-1 affected differences in one synchronized
	// pass over the sorted window. This is the canonical policy: the sketch
	// population is exactly s(s-1)/2 after every admission.
	UpdateFull UpdatePolicy = iota

	// UpdateNearest reworks only a subsample of the affected differences,
	// chosen in nearest-neighbor order around the replaced position.
	UpdateNearest

	// UpdateUniform reworks only a subsample of the affected differences,
	// chosen by uniform striding around the replaced position.
	UpdateUniform
)

func (p UpdatePolicy) String() string {
	switch p {
	case UpdateFull:
		return "full"
	case UpdateNearest:
		return "nearest"
	case UpdateUniform:
		return "uniform"
	}
	return "unknown"
}

// Builder configures and builds an Estimator.
//
// This type is not concurrency safe.
type Builder interface {
	// WithInitialAlpha sets the starting relative-error target. Alpha grows
	// over the run whenever the sketch collapses. Must be in (0, 1).
	WithInitialAlpha(alpha float64) Builder

	// WithSketchBound sets the maximum sketch bucket count. Defaults to
	// twice the window size.
	WithSketchBound(bound int) Builder

	// WithUpdatePolicy selects the update policy. Defaults to UpdateFull.
	WithUpdatePolicy(policy UpdatePolicy) Builder

	// WithSampleFraction sets the sampling denominator t for the sampled
	// policies: each phase touches ceil((s-1)/t) differences. t = 1 touches
	// every difference. Ignored under UpdateFull.
	WithSampleFraction(t int) Builder

	// WithLogger configures a logger for collapse activity, logged at debug
	// level.
	WithLogger(logger *slog.Logger) Builder

	// Build returns a new Estimator, or an error if the configuration is
	// invalid.
	Build() (*Estimator, error)
}

type config struct {
	windowSize  int
	alpha       float64
	sketchBound int
	policy      UpdatePolicy
	fraction    int
	logger      *slog.Logger
}

// NewBuilder creates a Builder for estimators over a sliding window of
// windowSize observations.
func NewBuilder(windowSize int) Builder {
	return &config{
		windowSize: windowSize,
		alpha:      DefaultAlpha,
		fraction:   1,
	}
}

func (c *config) WithInitialAlpha(alpha float64) Builder {
	c.alpha = alpha
	return c
}

func (c *config) WithSketchBound(bound int) Builder {
	c.sketchBound = bound
	return c
}

func (c *config) WithUpdatePolicy(policy UpdatePolicy) Builder {
	c.policy = policy
	return c
}

func (c *config) WithSampleFraction(t int) Builder {
	c.fraction = t
	return c
}

func (c *config) WithLogger(logger *slog.Logger) Builder {
	c.logger = logger
	return c
}

func (c *config) Build() (*Estimator, error) {
	if c.windowSize < 3 {
		return nil, fmt.Errorf("window size must be at least 3, got %d", c.windowSize)
	}
	if c.alpha <= 0 || c.alpha >= 1 {
		return nil, fmt.Errorf("initial alpha must be in (0, 1), got %v", c.alpha)
	}
	bound := c.sketchBound
	if bound == 0 {
		bound = 2 * c.windowSize
	}
	if bound < 1 {
		return nil, fmt.Errorf("sketch bound must be positive, got %d", bound)
	}
	if c.fraction < 1 {
		return nil, fmt.Errorf("sample fraction must be at least 1, got %d", c.fraction)
	}

	s := c.windowSize
	h := s/2 + 1
	kth := h * (h - 1) / 2
	pairs := s * (s - 1) / 2

	return &Estimator{
		size:     s,
		bound:    bound,
		policy:   c.policy,
		samples:  (s - 2 + c.fraction) / c.fraction,
		logger:   c.logger,
		ring:     window.NewRing(s),
		sorted:   window.NewSorted(s),
		sk:       sketch.New(),
		res:      sketch.NewResolution(c.alpha),
		kth:      kth,
		pairs:    pairs,
		quantile: float64(kth-1) / float64(pairs-1),
	}, nil
}
