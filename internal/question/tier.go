package question

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/adaptiq/internal/apperr"
)

// Tier represents a difficulty tier.
type Tier int

const (
	TierBeginner     Tier = iota + 1 // Linear problems, common facts
	TierIntermediate                 // Quadratics, less common facts
	TierAdvanced                     // Cubics, multi-step work
	TierExpert                       // Logarithms, obscure facts
)

// MinTier and MaxTier bound every tier adjustment.
const (
	MinTier = TierBeginner
	MaxTier = TierExpert
)

// tierPoints is the fixed tier to points map. Every points value in the
// system is read from here.
var tierPoints = map[Tier]int{
	TierBeginner:     1,
	TierIntermediate: 2,
	TierAdvanced:     3,
	TierExpert:       4,
}

// tierBaseTime is the expected answer time for a multiplier-1 question.
var tierBaseTime = map[Tier]time.Duration{
	TierBeginner:     60 * time.Second,
	TierIntermediate: 90 * time.Second,
	TierAdvanced:     120 * time.Second,
	TierExpert:       180 * time.Second,
}

// typeTimeMultiplier scales tierBaseTime by how long a question type takes.
var typeTimeMultiplier = map[Type]float64{
	TypeTrueFalse:      0.5,
	TypeMultipleChoice: 1.0,
	TypeFillBlank:      1.0,
	TypeShortAnswer:    1.5,
	TypeEssay:          5.0,
}

var tierNames = map[Tier]string{
	TierBeginner:     "beginner",
	TierIntermediate: "intermediate",
	TierAdvanced:     "advanced",
	TierExpert:       "expert",
}

// AllTiers returns all tiers in ascending difficulty.
func AllTiers() []Tier {
	return []Tier{TierBeginner, TierIntermediate, TierAdvanced, TierExpert}
}

// Valid reports whether t is one of the four defined tiers.
func (t Tier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Harder returns the next tier up, capped at MaxTier.
func (t Tier) Harder() Tier {
	if t >= MaxTier {
		return MaxTier
	}
	return t + 1
}

// Easier returns the next tier down, floored at MinTier.
func (t Tier) Easier() Tier {
	if t <= MinTier {
		return MinTier
	}
	return t - 1
}

// ParseTier parses a tier name such as "beginner" (case-insensitive).
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range tierNames {
		if name == s {
			return t, nil
		}
	}
	return 0, apperr.Invalid("difficulty", "unknown tier %q (want beginner, intermediate, advanced or expert)", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal tier: invalid value %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// PointsFor returns the points awarded for a correct answer at tier t.
func PointsFor(t Tier) (int, error) {
	p, ok := tierPoints[t]
	if !ok {
		return 0, apperr.Misconfigured("no points entry for %s", t)
	}
	return p, nil
}

// Derive computes points and estimated time for a question of type qt at
// tier t. The generator, the adaptive controller and manual assessment
// creation all go through this function so tier, points and time never
// drift apart.
func Derive(t Tier, qt Type) (int, time.Duration, error) {
	points, err := PointsFor(t)
	if err != nil {
		return 0, 0, err
	}
	base, ok := tierBaseTime[t]
	if !ok {
		return 0, 0, apperr.Misconfigured("no time entry for %s", t)
	}
	mult, ok := typeTimeMultiplier[qt]
	if !ok {
		return 0, 0, apperr.Misconfigured("no time multiplier for question type %q", qt)
	}
	return points, time.Duration(float64(base) * mult), nil
}
