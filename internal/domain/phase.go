package domain

import "fmt"

// Range is an inclusive [Low, High] bound on the partition domain.
type Range struct {
	Low  int64 `json:"low"`
	High int64 `json:"high"`
}

// Valid reports whether Low <= High.
func (r Range) Valid() bool {
	return r.Low <= r.High
}

// Width returns High - Low.
func (r Range) Width() int64 {
	return r.High - r.Low
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v int64) bool {
	return v >= r.Low && v <= r.High
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Low, r.High)
}

// Phase is one partition of the domain that is crawled as a unit.
type Phase struct {
	Index int   `json:"index"`
	Range Range `json:"range"`
	// ResultCount is the count observed when the phase was computed. It may go stale.
	ResultCount int `json:"result_count"`
	// Oversized is set when the count exceeded the target maximum and the range
	// could not be narrowed further.
	Oversized bool `json:"oversized,omitempty"`
}
