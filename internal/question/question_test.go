package question

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsFor_FixedMap(t *testing.T) {
	want := map[Tier]int{
		TierBeginner:     1,
		TierIntermediate: 2,
		TierAdvanced:     3,
		TierExpert:       4,
	}
	for tier, points := range want {
		got, err := PointsFor(tier)
		require.NoError(t, err)
		assert.Equal(t, points, got, "tier %s", tier)
	}

	_, err := PointsFor(Tier(9))
	assert.True(t, apperr.IsConfiguration(err))
}

func TestDerive(t *testing.T) {
	tests := []struct {
		tier   Tier
		qt     Type
		points int
		est    time.Duration
	}{
		{TierBeginner, TypeMultipleChoice, 1, 60 * time.Second},
		{TierBeginner, TypeTrueFalse, 1, 30 * time.Second},
		{TierIntermediate, TypeShortAnswer, 2, 135 * time.Second},
		{TierAdvanced, TypeFillBlank, 3, 120 * time.Second},
		{TierExpert, TypeEssay, 4, 900 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.tier.String()+"/"+string(tt.qt), func(t *testing.T) {
			points, est, err := Derive(tt.tier, tt.qt)
			require.NoError(t, err)
			assert.Equal(t, tt.points, points)
			assert.Equal(t, tt.est, est)
		})
	}
}

func TestDerive_UnknownType(t *testing.T) {
	_, _, err := Derive(TierBeginner, Type("matching"))
	assert.True(t, apperr.IsConfiguration(err))
}

func TestHarderEasier_Clamped(t *testing.T) {
	assert.Equal(t, TierIntermediate, TierBeginner.Harder())
	assert.Equal(t, TierExpert, TierExpert.Harder())
	assert.Equal(t, TierAdvanced, TierExpert.Easier())
	assert.Equal(t, TierBeginner, TierBeginner.Easier())
}

func TestSetTier_RecomputesPointsAndTime(t *testing.T) {
	q := Question{Type: TypeShortAnswer}
	require.NoError(t, q.SetTier(TierAdvanced))
	assert.Equal(t, TierAdvanced, q.Tier)
	assert.Equal(t, 3, q.Points)
	assert.Equal(t, 180*time.Second, q.EstimatedTime)

	err := q.SetTier(Tier(0))
	require.Error(t, err)
	assert.Equal(t, TierAdvanced, q.Tier, "failed SetTier must not mutate")
	assert.Equal(t, 3, q.Points)
}

func TestTierJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		T Tier `json:"t"`
	}{TierExpert})
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":"expert"}`, string(b))

	var out struct {
		T Tier `json:"t"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"t":"Intermediate"}`), &out))
	assert.Equal(t, TierIntermediate, out.T)

	err = json.Unmarshal([]byte(`{"t":"legendary"}`), &out)
	assert.Error(t, err)
}

func TestClone_IsDeep(t *testing.T) {
	q := Question{
		Options:           []Option{{ID: "a", Text: "1"}},
		AcceptableAnswers: []string{"x"},
		Hints:             []string{"h"},
	}
	c := q.Clone()
	c.Options[0].Text = "changed"
	c.AcceptableAnswers[0] = "y"
	c.Hints[0] = "other"

	assert.Equal(t, "1", q.Options[0].Text)
	assert.Equal(t, "x", q.AcceptableAnswers[0])
	assert.Equal(t, "h", q.Hints[0])
}

func TestTotalPoints(t *testing.T) {
	qs := []Question{{Points: 1}, {Points: 3}, {Points: 4}}
	assert.Equal(t, 8, TotalPoints(qs))
	assert.Equal(t, 0, TotalPoints(nil))
}
