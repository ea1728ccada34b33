package reference

import "github.com/influxdata/tdigest"

// digestCompression trades t-digest accuracy against size; 100 keeps the tail
// quantiles within a fraction of a percent on the difference multisets seen
// here.
const digestCompression = 100

// DigestQuantiles summarizes values with a t-digest and reads the given
// quantiles back, as a second approximate reference next to the sketch.
func DigestQuantiles(values []float64, qs ...float64) []float64 {
	td := tdigest.NewWithCompression(digestCompression)
	for _, v := range values {
		td.Add(v, 1)
	}
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = td.Quantile(q)
	}
	return out
}
