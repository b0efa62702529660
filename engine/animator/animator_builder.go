package animator

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithMaxInstances is an option builder that sets the initial instance capacity of the Animator.
//
// Parameters:
//   - maxInstances: the number of instances to reserve room for
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the max instances option to an animator
func WithMaxInstances(maxInstances int) AnimatorBuilderOption {
	return func(a *animator) {
		if maxInstances > 0 {
			a.maxInstances = uint32(maxInstances)
		}
	}
}

// WithModel is an option builder that assigns the Model every instance of the Animator plays.
//
// Parameters:
//   - m: the Model to associate with this animator
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the model option to an animator
func WithModel(m model.Model) AnimatorBuilderOption {
	return func(a *animator) {
		a.model = m
	}
}
