package engine

// LowerBound maps every x ≥ Min to Value.
type LowerBound[T any] struct {
	Min   float64
	Value T
}

// LowerBoundTable is scanned in order and returns the first step whose Min is
// reached. Steps must be sorted by descending Min.
type LowerBoundTable[T any] struct {
	Steps     []LowerBound[T]
	Otherwise T
}

func (t LowerBoundTable[T]) Lookup(x float64) T {
	for _, s := range t.Steps {
		if x >= s.Min {
			return s.Value
		}
	}
	return t.Otherwise
}

// UpperBound maps every x ≤ Max to Value.
type UpperBound[T any] struct {
	Max   float64
	Value T
}

// UpperBoundTable is scanned in order and returns the first step whose Max is
// not exceeded. Steps must be sorted by ascending Max.
type UpperBoundTable[T any] struct {
	Steps     []UpperBound[T]
	Otherwise T
}

func (t UpperBoundTable[T]) Lookup(x float64) T {
	for _, s := range t.Steps {
		if x <= s.Max {
			return s.Value
		}
	}
	return t.Otherwise
}

// StrictUpperTable returns the first step with x < Max. Steps must be sorted
// by ascending Max.
type StrictUpperTable[T any] struct {
	Steps     []UpperBound[T]
	Otherwise T
}

func (t StrictUpperTable[T]) Lookup(x float64) T {
	for _, s := range t.Steps {
		if x < s.Max {
			return s.Value
		}
	}
	return t.Otherwise
}
