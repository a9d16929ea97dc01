// Package adaptive retunes the difficulty of a session's unanswered
// questions from the accuracy of its most recent responses.
package adaptive

import (
	"fmt"

	"github.com/abhisek/adaptiq/internal/question"
)

// DefaultWindow is the number of recent responses the controller looks at.
const DefaultWindow = 3

// Direction is the outcome of a policy decision.
type Direction int

const (
	Hold Direction = iota
	Raise
	Lower
)

func (d Direction) String() string {
	switch d {
	case Raise:
		return "raise"
	case Lower:
		return "lower"
	default:
		return "hold"
	}
}

// Policy decides a direction from a full window of outcomes, oldest first.
// It is the extension point for model-driven difficulty.
type Policy interface {
	Decide(window []bool) Direction
}

// ThresholdPolicy raises at or above Raise accuracy and lowers at or below
// Lower accuracy.
type ThresholdPolicy struct {
	Raise float64
	Lower float64
}

// DefaultPolicy returns the 0.8 / 0.3 threshold policy.
func DefaultPolicy() ThresholdPolicy {
	return ThresholdPolicy{Raise: 0.8, Lower: 0.3}
}

func (p ThresholdPolicy) Decide(window []bool) Direction {
	if len(window) == 0 {
		return Hold
	}
	acc := Accuracy(window)
	switch {
	case acc >= p.Raise:
		return Raise
	case acc <= p.Lower:
		return Lower
	default:
		return Hold
	}
}

// Accuracy is the fraction of true values in outcomes.
func Accuracy(outcomes []bool) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	n := 0
	for _, ok := range outcomes {
		if ok {
			n++
		}
	}
	return float64(n) / float64(len(outcomes))
}

// Adjustment records one question moved to a new tier.
type Adjustment struct {
	QuestionID string        `json:"question_id"`
	From       question.Tier `json:"from"`
	To         question.Tier `json:"to"`
	Points     int           `json:"points"`
}

// Controller applies a Policy over a rolling window.
type Controller struct {
	window int
	policy Policy
}

// New creates a Controller. window <= 0 means DefaultWindow and a nil
// policy means DefaultPolicy.
func New(window int, policy Policy) *Controller {
	if window <= 0 {
		window = DefaultWindow
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Controller{window: window, policy: policy}
}

// Window returns the rolling window size.
func (c *Controller) Window() int { return c.window }

// Adjust looks at the last Window entries of history (submission order) and
// moves every question in qs that is not in answered one tier in the
// decided direction. qs is modified in place only when every affected
// question can be re-derived; answered questions are never touched.
func (c *Controller) Adjust(qs []question.Question, answered map[string]bool, history []bool) (Direction, []Adjustment, error) {
	if len(history) < c.window {
		return Hold, nil, nil
	}
	dir := c.policy.Decide(history[len(history)-c.window:])
	if dir == Hold {
		return Hold, nil, nil
	}

	type change struct {
		idx    int
		tier   question.Tier
		points int
	}
	var changes []change
	for i := range qs {
		if answered[qs[i].ID] {
			continue
		}
		next := qs[i].Tier.Harder()
		if dir == Lower {
			next = qs[i].Tier.Easier()
		}
		if next == qs[i].Tier {
			continue
		}
		points, _, err := question.Derive(next, qs[i].Type)
		if err != nil {
			return Hold, nil, fmt.Errorf("retier question %s: %w", qs[i].ID, err)
		}
		changes = append(changes, change{idx: i, tier: next, points: points})
	}

	adjustments := make([]Adjustment, 0, len(changes))
	for _, ch := range changes {
		q := &qs[ch.idx]
		from := q.Tier
		if err := q.SetTier(ch.tier); err != nil {
			// Derive already succeeded for this tier and type.
			panic(fmt.Sprintf("adaptive: SetTier failed after Derive: %v", err))
		}
		adjustments = append(adjustments, Adjustment{QuestionID: q.ID, From: from, To: ch.tier, Points: ch.points})
	}
	return dir, adjustments, nil
}
