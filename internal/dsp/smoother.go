package dsp

import "github.com/cybre/chroma-pulse/internal/utils"

// Smoother implements an exponential moving average that starts from rest (zero), so
// after k steps of a constant input R the value is R·(1-(1-alpha)^k).
type Smoother struct {
	alpha float64
	value float64
}

// NewSmoother constructs a Smoother using the supplied alpha (0..1).
// Smaller values produce heavier smoothing.
func NewSmoother(alpha float64) *Smoother {
	alpha = utils.Clamp(alpha, 0.0, 1.0)
	return &Smoother{alpha: alpha}
}

// Step updates the internal state and returns the smoothed value.
func (s *Smoother) Step(v float64) float64 {
	s.value += s.alpha * (v - s.value)
	return s.value
}

// Value returns the current smoothed value without updating it.
func (s *Smoother) Value() float64 {
	return s.value
}

// Alpha returns the smoothing constant.
func (s *Smoother) Alpha() float64 {
	return s.alpha
}

// Reset returns the smoother to rest.
func (s *Smoother) Reset() {
	s.value = 0
}
