package difficulty

// lowK tracks the K smallest values seen via Add, kept sorted ascending.
// Grounded on the original project's WordDifficulty.add_example: append,
// sort, drop the tail beyond K. A real binary heap is equivalent but
// unnecessary for the small, fixed K (3) this spec uses.
type lowK struct {
	values []int32
	cap    int
}

func newLowK(cap int) *lowK {
	return &lowK{cap: cap}
}

// Add inserts v in sorted position and evicts the largest element once the
// list exceeds cap.
func (l *lowK) Add(v int32) {
	i := 0
	for i < len(l.values) && l.values[i] < v {
		i++
	}
	l.values = append(l.values, 0)
	copy(l.values[i+1:], l.values[i:])
	l.values[i] = v
	if len(l.values) > l.cap {
		l.values = l.values[:l.cap]
	}
}

// Largest returns the largest of the retained smallest-K values (i.e. the
// K-th smallest overall, once the list is full), and whether any value has
// been added at all.
func (l *lowK) Largest() (int32, bool) {
	if len(l.values) == 0 {
		return 0, false
	}
	return l.values[len(l.values)-1], true
}
