package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

var (
	// ErrCredenceNotFinite is returned when a credence value is NaN or infinite.
	ErrCredenceNotFinite = fmt.Errorf("credence must be a finite number")
	// ErrCredenceOutOfRange is returned when a credence value falls outside [0, 1].
	ErrCredenceOutOfRange = fmt.Errorf("credence must be in the unit interval [0.0, 1.0]")
)

// Credence is a confidence value bounded to the unit interval [0.0, 1.0].
type Credence float32

// NewCredence validates value and returns it as a Credence.
func NewCredence(value float32) (Credence, error) {
	if math.IsNaN(float64(value)) || math.IsInf(float64(value), 0) {
		return 0, ErrCredenceNotFinite
	}
	if value < 0 || value > 1 {
		return 0, fmt.Errorf("%w, got %v", ErrCredenceOutOfRange, value)
	}
	return Credence(value), nil
}

// Value returns the underlying float.
func (c Credence) Value() float32 {
	return float32(c)
}

// UnmarshalJSON re-checks the bounds so a stored payload cannot smuggle in an
// out-of-range value.
func (c *Credence) UnmarshalJSON(data []byte) error {
	var v float32
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewCredence(v)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
