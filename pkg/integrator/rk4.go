// Package integrator advances traced points backward along a gradient field.
package integrator

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrZeroGradient is returned when the field vanishes at a stencil point and
// no direction can be derived.
var ErrZeroGradient = errors.New("integrator: zero gradient")

// GradientField is the lookup the integrator samples. Lookups outside the
// field must return an error.
type GradientField interface {
	At(p r3.Vec) (r3.Vec, error)
}

// RK4 integrates dP/dt = -unit(grad(P)) with the classical fourth-order
// Runge-Kutta scheme and a fixed step.
type RK4 struct {
	field    GradientField
	stepSize float64
}

// NewRK4 creates an integrator over field. A non-positive step size falls
// back to one grid unit.
func NewRK4(field GradientField, stepSize float64) *RK4 {
	if stepSize <= 0 {
		stepSize = 1
	}
	return &RK4{field: field, stepSize: stepSize}
}

// StepSize returns the fixed integration step.
func (r *RK4) StepSize() float64 { return r.stepSize }

// Step advances p by one step against the gradient. If any of the four
// stencil samples fails, the step fails and p is not advanced.
func (r *RK4) Step(p r3.Vec) (r3.Vec, error) {
	k1, err := r.velocity(p)
	if err != nil {
		return p, fmt.Errorf("k1: %w", err)
	}
	k2, err := r.velocity(r3.Add(p, r3.Scale(0.5, k1)))
	if err != nil {
		return p, fmt.Errorf("k2: %w", err)
	}
	k3, err := r.velocity(r3.Add(p, r3.Scale(0.5, k2)))
	if err != nil {
		return p, fmt.Errorf("k3: %w", err)
	}
	k4, err := r.velocity(r3.Add(p, k3))
	if err != nil {
		return p, fmt.Errorf("k4: %w", err)
	}

	sum := r3.Add(r3.Add(k1, r3.Scale(2, k2)), r3.Add(r3.Scale(2, k3), k4))
	return r3.Add(p, r3.Scale(1.0/6.0, sum)), nil
}

// velocity is the step-scaled descent direction at p.
func (r *RK4) velocity(p r3.Vec) (r3.Vec, error) {
	g, err := r.field.At(p)
	if err != nil {
		return r3.Vec{}, err
	}
	n := r3.Norm(g)
	if n == 0 {
		return r3.Vec{}, ErrZeroGradient
	}
	return r3.Scale(-r.stepSize/n, g), nil
}
