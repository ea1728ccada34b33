package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_WarmupAdmissions(t *testing.T) {
	r := NewRing(5)

	for i := 1; i <= 5; i++ {
		_, full := r.Admit(float64(i))
		assert.False(t, full)
	}

	assert.Equal(t, 5, r.Len())
	assert.Equal(t, int64(5), r.Seq())
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, r.Values())

	value, seq := r.Middle()
	assert.Equal(t, 3.0, value)
	assert.Equal(t, int64(3), seq)
}

func TestRing_EvictionOrder(t *testing.T) {
	r := NewRing(3)
	r.Admit(1)
	r.Admit(2)
	r.Admit(3)

	evicted, full := r.Admit(4)
	assert.True(t, full)
	assert.Equal(t, 1.0, evicted)

	evicted, full = r.Admit(5)
	assert.True(t, full)
	assert.Equal(t, 2.0, evicted)

	assert.Equal(t, []float64{4, 5, 3}, r.Values())
}

func TestRing_MiddleSlidesPerAdmission(t *testing.T) {
	r := NewRing(5)
	for i := 1; i <= 5; i++ {
		r.Admit(float64(i))
	}

	// Each post-warm-up admission slides the middle one cell forward.
	r.Admit(6)
	value, seq := r.Middle()
	assert.Equal(t, 4.0, value)
	assert.Equal(t, int64(4), seq)

	r.Admit(7)
	value, seq = r.Middle()
	assert.Equal(t, 5.0, value)
	assert.Equal(t, int64(5), seq)
}

func TestRing_SequenceNumbersNeverReused(t *testing.T) {
	r := NewRing(2)
	for i := 1; i <= 10; i++ {
		r.Admit(float64(i))
	}
	assert.Equal(t, int64(10), r.Seq())

	_, seq := r.Middle()
	assert.Greater(t, seq, int64(0))
}
