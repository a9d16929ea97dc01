package questiongen

import "github.com/abhisek/adaptiq/internal/question"

// Config controls the template Generator.
type Config struct {
	// Validators run in order on every generated question; the first
	// failure aborts the batch.
	Validators []Validator

	// Seed makes generation reproducible when non-zero.
	Seed uint64

	// EssayMinWords is the word threshold stamped on essays per tier.
	EssayMinWords map[question.Tier]int
}

// DefaultConfig returns a Config with the standard validator chain.
func DefaultConfig() Config {
	return Config{
		Validators: DefaultValidators(),
		EssayMinWords: map[question.Tier]int{
			question.TierBeginner:     30,
			question.TierIntermediate: 50,
			question.TierAdvanced:     80,
			question.TierExpert:       120,
		},
	}
}

// DefaultValidators returns the structural and consistency validators.
func DefaultValidators() []Validator {
	return []Validator{
		&StructuralValidator{},
		&ConsistencyValidator{},
	}
}
