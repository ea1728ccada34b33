package window

import (
	"errors"
	"sort"
)

// ErrNotFound is returned when a value that should be present in the sorted
// window cannot be located. It indicates the window and its callers have gone
// out of sync and must be treated as fatal.
var ErrNotFound = errors.New("value not present in sorted window")

// Sorted maintains the same multiset as the ring in non-decreasing order. The
// window median is the cell at index s/2. Replacement of an evicted value is
// performed by a single directional shift that keeps the array sorted
// throughout and yields every surviving occupant to a visitor exactly once, so
// that a caller can rework derived state in the same pass.
//
// This type is not concurrency safe.
type Sorted struct {
	items []float64
	size  int
}

func NewSorted(capacity int) *Sorted {
	return &Sorted{items: make([]float64, capacity)}
}

// Insert places x into the sorted prefix, shifting larger values right, and
// returns the index it was planted at. Used while the window is filling.
func (s *Sorted) Insert(x float64) int {
	i := sort.Search(s.size, func(j int) bool { return s.items[j] > x })
	copy(s.items[i+1:s.size+1], s.items[i:s.size])
	s.items[i] = x
	s.size++
	return i
}

// Replace removes one occurrence of old, plants new at its sorted position via
// a directional shift, and calls visit once for every other occupant with its
// pre-write value. The visit order follows the walk: ascending indexes when
// x > old, descending otherwise. A visit error aborts the walk.
func (s *Sorted) Replace(old, x float64, visit func(p float64) error) error {
	pos, ok := s.find(old)
	if !ok {
		return ErrNotFound
	}

	if x > old {
		for i := 0; i < pos; i++ {
			if err := visit(s.items[i]); err != nil {
				return err
			}
		}
		p := pos
		for p+1 < s.size && s.items[p+1] < x {
			s.items[p] = s.items[p+1]
			if err := visit(s.items[p]); err != nil {
				return err
			}
			p++
		}
		s.items[p] = x
		for i := p + 1; i < s.size; i++ {
			if err := visit(s.items[i]); err != nil {
				return err
			}
		}
	} else {
		for i := s.size - 1; i > pos; i-- {
			if err := visit(s.items[i]); err != nil {
				return err
			}
		}
		p := pos
		for p > 0 && s.items[p-1] > x {
			s.items[p] = s.items[p-1]
			if err := visit(s.items[p]); err != nil {
				return err
			}
			p--
		}
		s.items[p] = x
		for i := p - 1; i >= 0; i-- {
			if err := visit(s.items[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Shift removes one occurrence of old and plants new, without visiting, and
// returns the index old was found at and the index new was planted at.
func (s *Sorted) Shift(old, x float64) (oldPos, newPos int, err error) {
	pos, ok := s.find(old)
	if !ok {
		return -1, -1, ErrNotFound
	}

	p := pos
	if x > old {
		for p+1 < s.size && s.items[p+1] < x {
			s.items[p] = s.items[p+1]
			p++
		}
	} else {
		for p > 0 && s.items[p-1] > x {
			s.items[p] = s.items[p-1]
			p--
		}
	}
	s.items[p] = x
	return pos, p, nil
}

// Find returns the index of one occurrence of x.
func (s *Sorted) Find(x float64) (int, bool) {
	return s.find(x)
}

func (s *Sorted) find(x float64) (int, bool) {
	i := sort.SearchFloat64s(s.items[:s.size], x)
	if i < s.size && s.items[i] == x {
		return i, true
	}
	return -1, false
}

// At returns the value at index i.
func (s *Sorted) At(i int) float64 {
	return s.items[i]
}

// Median returns the cell at index s/2 of the full window.
func (s *Sorted) Median() float64 {
	return s.items[len(s.items)/2]
}

// Len returns the number of cells currently occupied.
func (s *Sorted) Len() int {
	return s.size
}

// Values returns a copy of the occupied cells in ascending order.
func (s *Sorted) Values() []float64 {
	out := make([]float64, s.size)
	copy(out, s.items[:s.size])
	return out
}
