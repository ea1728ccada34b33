package afqn

import "math"

// consistencyFactor makes Qn a consistent estimator of the standard deviation
// at Gaussian distributions (Rousseeuw and Croux, 1992).
const consistencyFactor = 2.2219

// Classifier applies the 3-sigma-like rule to window elements: an element is
// an outlier when its distance from the window median exceeds three times the
// bias-corrected Qn estimate.
type Classifier struct {
	scale float64
}

// NewClassifier returns a Classifier for windows of n observations.
func NewClassifier(n int) *Classifier {
	return &Classifier{scale: qnScale(n)}
}

// Scale returns the full correction factor d_n * 2.2219 applied to raw Qn
// estimates.
func (c *Classifier) Scale() float64 {
	return c.scale
}

// Check classifies value against the window median and the raw Qn estimate.
// The returned score is |value - median| - 3 * d_n * 2.2219 * estimate; the
// element is an outlier when the score is positive. A zero-dispersion window
// flags any value off the median.
func (c *Classifier) Check(value, median, estimate float64) (score float64, outlier bool) {
	score = math.Abs(value-median) - 3*c.scale*estimate
	return score, score > 0
}

// qnScale returns the small-sample bias correction d_n times the consistency
// factor. The values for n <= 9 are tabulated; beyond that the closed forms
// n/(n+1.4) for odd n and n/(n+3.8) for even n apply.
func qnScale(n int) float64 {
	var dn float64
	switch {
	case n <= 9:
		switch n {
		case 2:
			dn = .399
		case 3:
			dn = .994
		case 4:
			dn = .512
		case 5:
			dn = .844
		case 6:
			dn = .611
		case 7:
			dn = .857
		case 8:
			dn = .669
		default:
			dn = .872
		}
	case n%2 == 1:
		dn = float64(n) / (float64(n) + 1.4)
	default:
		dn = float64(n) / (float64(n) + 3.8)
	}
	return dn * consistencyFactor
}

// Detector couples an Estimator with the Classifier for its window size.
type Detector struct {
	*Estimator
	*Classifier
}

// Verdict is a Sample extended with the outlier decision on the middle
// element.
type Verdict struct {
	Sample

	// Qn is the bias-corrected estimate d_n * 2.2219 * Sample.Estimate.
	Qn      float64
	Score   float64
	Outlier bool
}

// NewDetector wraps an estimator with outlier classification.
func NewDetector(e *Estimator) *Detector {
	return &Detector{e, NewClassifier(e.WindowSize())}
}

// Process admits x and classifies the middle element of the updated window.
// It returns nil during warm-up.
func (d *Detector) Process(x float64) (*Verdict, error) {
	s, err := d.Admit(x)
	if err != nil || s == nil {
		return nil, err
	}
	v := &Verdict{Sample: *s, Qn: d.scale * s.Estimate}
	v.Score, v.Outlier = d.Check(s.Value, s.Median, s.Estimate)
	return v, nil
}
