package sketch

import "math"

// sinkExp is the magnitude of the reserved key for near-zero differences.
const sinkExp = 1 << 30

// SinkKey is the bucket key that absorbs differences at or below the
// near-zero threshold, including the zero differences of identical pairs. It
// is a fixed sink, not a regular log-scale bucket, and never merges with its
// neighbors during a collapse.
const SinkKey = -sinkExp

// Resolution couples the relative-error target alpha with the scalars derived
// from it: the bucket base gamma = (1+alpha)/(1-alpha), its base-10 log, and
// the near-zero threshold gamma^(-2^30). A value v above the threshold sits in
// bucket ceil(log v / log gamma) and is estimated by the bucket midpoint
// 2*gamma^i/(gamma+1), which achieves relative error alpha.
//
// Resolution values are immutable; Collapse derives the next one. All four
// scalars always belong to the same alpha, so swapping a Resolution swaps them
// atomically.
type Resolution struct {
	Alpha     float64
	Gamma     float64
	LogGamma  float64
	NullBound float64
}

func NewResolution(alpha float64) Resolution {
	gamma := (1 + alpha) / (1 - alpha)
	return Resolution{
		Alpha:     alpha,
		Gamma:     gamma,
		LogGamma:  math.Log10(gamma),
		NullBound: math.Pow(gamma, -sinkExp),
	}
}

// Collapse returns the resolution after one bucket-halving round. Merging
// adjacent buckets doubles the relative error; alpha' = 2a/(1+a^2) is that
// composition on the alpha parametrisation and keeps gamma' = gamma^2.
func (r Resolution) Collapse() Resolution {
	return NewResolution(2 * r.Alpha / (1 + r.Alpha*r.Alpha))
}

// Key returns the bucket key for the difference v under this resolution.
func (r Resolution) Key(v float64) int {
	if v <= r.NullBound {
		return SinkKey
	}
	k := math.Ceil(math.Log10(v) / r.LogGamma)
	// Buckets are (gamma^(k-1), gamma^k]; rounding in the logarithms can push a
	// value lying on a boundary into the bucket above.
	if math.Pow(r.Gamma, k-1) >= v {
		k--
	}
	return int(k)
}

// Value returns the midpoint estimate 2*gamma^key/(gamma+1) for a bucket key.
// The sink key underflows to zero, which is the right estimate for it.
func (r Resolution) Value(key int) float64 {
	return 2 * math.Pow(r.Gamma, float64(key)) / (r.Gamma + 1)
}
