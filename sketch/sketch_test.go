package sketch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSketch_IncDec(t *testing.T) {
	s := New()

	s.Inc(3)
	s.Inc(3)
	s.Inc(-7)
	assert.Equal(t, 2, s.Size())
	assert.Equal(t, 3, s.Population())
	assert.Equal(t, 2, s.Count(3))

	assert.True(t, s.Dec(3))
	assert.Equal(t, 1, s.Count(3))
	assert.True(t, s.Dec(3))
	assert.Equal(t, 0, s.Count(3))
	assert.Equal(t, 1, s.Size(), "bucket must be erased at count zero")

	assert.False(t, s.Dec(3))
	assert.False(t, s.Dec(42))
	assert.Equal(t, 1, s.Population())
}

func TestSketch_KeysAscending(t *testing.T) {
	s := New()
	for _, k := range []int{5, -2, SinkKey, 0, 17} {
		s.Inc(k)
	}
	assert.Equal(t, []int{SinkKey, -2, 0, 5, 17}, s.Keys())
}

func TestSketch_EstimateEmpty(t *testing.T) {
	s := New()
	_, err := s.Estimate(0.5, NewResolution(0.5))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSketch_EstimateWalksCumulativeCounts(t *testing.T) {
	res := NewResolution(0.5)
	s := New()
	// Buckets 0:4, 1:3, 2:2, 3:1 summarize ten differences.
	for k, c := range map[int]int{0: 4, 1: 3, 2: 2, 3: 1} {
		for i := 0; i < c; i++ {
			s.Inc(k)
		}
	}

	// fraction = q*(n-1); the first bucket whose cumulative count exceeds it
	// supplies the estimate.
	v, err := s.Estimate(0, res)
	require.NoError(t, err)
	assert.InEpsilon(t, res.Value(0), v, 1e-12)

	v, err = s.Estimate(0.5, res)
	require.NoError(t, err)
	assert.InEpsilon(t, res.Value(1), v, 1e-12)

	v, err = s.Estimate(1, res)
	require.NoError(t, err)
	assert.InEpsilon(t, res.Value(3), v, 1e-12)
}

func TestSketch_EstimateMonotone(t *testing.T) {
	res := NewResolution(0.05)
	s := New()
	for k := -5; k <= 20; k += 3 {
		for i := 0; i < (k+9)%7+1; i++ {
			s.Inc(k)
		}
	}

	prev := -1.0
	for q := 0.0; q <= 1.0; q += 0.05 {
		v, err := s.Estimate(q, res)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, prev, "q=%v", q)
		prev = v
	}
}

func TestSketch_SinkBucketEstimatesZero(t *testing.T) {
	res := NewResolution(0.001)
	s := New()
	s.Inc(SinkKey)
	s.Inc(SinkKey)
	s.Inc(SinkKey)

	v, err := s.Estimate(0.5, res)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestSketch_CollapsePreservesPopulation(t *testing.T) {
	s := New()
	counts := map[int]int{SinkKey: 2, -3: 2, -2: 1, -1: 3, 0: 1, 1: 5, 2: 4}
	for k, c := range counts {
		for i := 0; i < c; i++ {
			s.Inc(k)
		}
	}
	sizeBefore := s.Size()
	popBefore := s.Population()

	s.collapse()

	assert.Equal(t, popBefore, s.Population())
	assert.LessOrEqual(t, s.Size(), (sizeBefore+1)/2+1)
	// -3, -2 -> -1; -1, 0 -> 0; 1, 2 -> 1; the sink key stays put.
	assert.Equal(t, []int{SinkKey, -1, 0, 1}, s.Keys())
	assert.Equal(t, 3, s.Count(-1))
	assert.Equal(t, 4, s.Count(0))
	assert.Equal(t, 9, s.Count(1))
	assert.Equal(t, 2, s.Count(SinkKey))
}

func TestSketch_ShrinkUntilBound(t *testing.T) {
	res := NewResolution(0.01)
	s := New()
	for k := 0; k < 64; k++ {
		s.Inc(k * 2)
	}

	next, rounds := s.Shrink(8, res)

	assert.LessOrEqual(t, s.Size(), 8)
	assert.Greater(t, rounds, 0)
	assert.Equal(t, 64, s.Population())
	assert.Greater(t, next.Alpha, res.Alpha)
	assert.InEpsilon(t, (1+next.Alpha)/(1-next.Alpha), next.Gamma, 1e-9)
}

func TestSketch_ShrinkStopsOnFixpointKeys(t *testing.T) {
	res := NewResolution(0.01)
	s := New()
	s.Inc(SinkKey)
	s.Inc(0)
	s.Inc(1)

	_, rounds := s.Shrink(2, res)

	assert.Equal(t, 1, rounds)
	assert.Equal(t, 3, s.Size())
	assert.Equal(t, 3, s.Population())
}

func TestCeilHalf(t *testing.T) {
	cases := map[int]int{
		-6: -3, -5: -2, -4: -2, -3: -1, -2: -1, -1: 0,
		0: 0, 1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 6: 3,
	}
	for k, want := range cases {
		assert.Equal(t, want, ceilHalf(k), "k=%d", k)
	}
}
