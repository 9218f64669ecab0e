// Package aas implements the adaptive allocator: it measures how uncertain a
// position is, tracks how that uncertainty moves over a game and turns both
// into a search budget and a decomposition of the move list.
package aas

// Config groups every tunable of the allocator.
type Config struct {
	Entropy   EntropyConfig   `yaml:"entropy"`
	Allocator AllocatorConfig `yaml:"allocator"`
	Mutation  MutationConfig  `yaml:"mutation"`
	Weights   Weights         `yaml:"weights"`

	// HistoryLength bounds the entropy history used for the trend.
	HistoryLength int `yaml:"history_length" validate:"gte=2,lte=1024"`
}

// EntropyConfig controls StateEntropy.
type EntropyConfig struct {
	MobilityWeight float64 `yaml:"mobility_weight" validate:"gte=0"`
	EvalWeight     float64 `yaml:"eval_weight" validate:"gte=0"`
	// SampleCap is the number of one-ply evaluations fed to the softmax.
	SampleCap int `yaml:"sample_cap" validate:"gte=1,lte=256"`
	// Temperature in pawns for the softmax over one-ply evaluations.
	Temperature float64 `yaml:"temperature" validate:"gt=0"`
	// Forced is reported when exactly one legal move exists.
	Forced float64 `yaml:"forced" validate:"gte=0"`
}

// AllocatorConfig holds the threshold bands used by Allocate.
type AllocatorConfig struct {
	LowEntropy        float64 `yaml:"low_entropy" validate:"gte=0"`
	HighEntropy       float64 `yaml:"high_entropy" validate:"gtfield=LowEntropy"`
	GradientThreshold float64 `yaml:"gradient_threshold" validate:"gte=0"`
	TrendThreshold    float64 `yaml:"trend_threshold" validate:"gte=0"`
	BaseNodes         uint64  `yaml:"base_nodes" validate:"gte=1"`
}

// MutationConfig bounds the weight mutation step.
type MutationConfig struct {
	Rate      float64 `yaml:"rate" validate:"gte=0"`
	MaxStep   float64 `yaml:"max_step" validate:"gte=0,lt=1"`
	MinWeight float64 `yaml:"min_weight" validate:"gt=0"`
	MaxWeight float64 `yaml:"max_weight" validate:"gtfield=MinWeight"`
}

// DefaultConfig returns the allocator defaults.
func DefaultConfig() Config {
	return Config{
		Entropy: EntropyConfig{
			MobilityWeight: 0.4,
			EvalWeight:     0.6,
			SampleCap:      16,
			Temperature:    1.0,
			Forced:         0.1,
		},
		Allocator: AllocatorConfig{
			LowEntropy:        1.0,
			HighEntropy:       3.0,
			GradientThreshold: 0.5,
			TrendThreshold:    0.1,
			BaseNodes:         2_000_000,
		},
		Mutation: MutationConfig{
			Rate:      0.2,
			MaxStep:   0.1,
			MinWeight: 0.5,
			MaxWeight: 4.0,
		},
		Weights:       DefaultWeights(),
		HistoryLength: 16,
	}
}
