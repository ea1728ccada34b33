package sketch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolution_DerivedScalars(t *testing.T) {
	res := NewResolution(0.5)

	assert.Equal(t, 0.5, res.Alpha)
	assert.InEpsilon(t, 3.0, res.Gamma, 1e-12)
	assert.InEpsilon(t, math.Log10(3), res.LogGamma, 1e-12)
	// gamma^(-2^30) underflows; the sink threshold only has to route exact
	// zeros.
	assert.Equal(t, 0.0, res.NullBound)
}

func TestResolution_Key(t *testing.T) {
	res := NewResolution(0.5)

	assert.Equal(t, SinkKey, res.Key(0))
	assert.Equal(t, 0, res.Key(1))
	assert.Equal(t, 1, res.Key(2))
	assert.Equal(t, 1, res.Key(3))
	assert.Equal(t, 2, res.Key(4))
	assert.Equal(t, 2, res.Key(9))
	assert.Equal(t, -1, res.Key(0.2))
}

func TestResolution_Value(t *testing.T) {
	res := NewResolution(0.5)

	assert.InEpsilon(t, 0.5, res.Value(0), 1e-12)
	assert.InEpsilon(t, 1.5, res.Value(1), 1e-12)
	assert.InEpsilon(t, 4.5, res.Value(2), 1e-12)
	assert.Equal(t, 0.0, res.Value(SinkKey))
}

func TestResolution_ValueWithinRelativeError(t *testing.T) {
	res := NewResolution(0.01)
	for _, v := range []float64{0.004, 0.7, 1, 13, 999, 123456.789} {
		estimate := res.Value(res.Key(v))
		assert.InDelta(t, v, estimate, v*res.Alpha*1.0001, "v=%v", v)
	}
}

func TestResolution_CollapseSquaresGamma(t *testing.T) {
	res := NewResolution(0.5)

	next := res.Collapse()
	assert.InEpsilon(t, 0.8, next.Alpha, 1e-12)
	assert.InEpsilon(t, 9.0, next.Gamma, 1e-12)
	assert.InEpsilon(t, (1+next.Alpha)/(1-next.Alpha), next.Gamma, 1e-12)

	again := next.Collapse()
	assert.InEpsilon(t, 81.0, again.Gamma, 1e-9)
	assert.Less(t, again.Alpha, 1.0)
}
