// Package mcts implements Monte-Carlo tree search guided by policy priors
// (PUCT selection) over an arena-allocated tree.
package mcts

import "time"

// Config holds the tree search settings.
type Config struct {
	// CPuct weighs the prior-driven exploration term.
	CPuct float64 `yaml:"c_puct" validate:"gt=0"`
	// DirichletAlpha and DirichletEpsilon shape the root noise. Epsilon 0
	// disables noise.
	DirichletAlpha   float64 `yaml:"dirichlet_alpha" validate:"gt=0"`
	DirichletEpsilon float64 `yaml:"dirichlet_epsilon" validate:"gte=0,lte=1"`
	// Temperature for the visit-count sample used before TemperaturePlies.
	Temperature      float64 `yaml:"temperature" validate:"gte=0"`
	TemperaturePlies int     `yaml:"temperature_plies" validate:"gte=0"`
	// Simulations is the default simulation budget when the caller sets none.
	Simulations int `yaml:"simulations" validate:"gte=1"`
	// MaxTime bounds a search when neither simulations nor time are given.
	MaxTime time.Duration `yaml:"max_time" validate:"gte=0"`
	// Seed makes noise and sampling reproducible. Zero picks a random seed.
	Seed uint64 `yaml:"seed"`
}

// DefaultConfig returns the default tree search settings.
func DefaultConfig() Config {
	return Config{
		CPuct:            1.5,
		DirichletAlpha:   0.3,
		DirichletEpsilon: 0.25,
		Temperature:      1.0,
		TemperaturePlies: 30,
		Simulations:      800,
		MaxTime:          10 * time.Second,
	}
}
