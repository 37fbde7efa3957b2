package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRiskScore(t *testing.T) {
	cases := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLow},
		{24, RiskLow},
		{25, RiskMedium},
		{49, RiskMedium},
		{50, RiskHigh},
		{74, RiskHigh},
		{75, RiskCritical},
		{100, RiskCritical},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClassifyRiskScore(c.score), "score %d", c.score)
	}
}

func TestNewRiskAssessment(t *testing.T) {
	t.Run("low and medium allow the booking", func(t *testing.T) {
		for _, score := range []int{0, 24, 25, 49} {
			a := NewRiskAssessment(score, nil)
			assert.True(t, a.AllowBooking, "score %d", score)
			assert.False(t, a.RequiresManualReview, "score %d", score)
		}
	})

	t.Run("high and critical block and require review", func(t *testing.T) {
		for _, score := range []int{50, 74, 75, 100} {
			a := NewRiskAssessment(score, nil)
			assert.False(t, a.AllowBooking, "score %d", score)
			assert.True(t, a.RequiresManualReview, "score %d", score)
		}
	})

	t.Run("nil flags become an empty slice", func(t *testing.T) {
		a := NewRiskAssessment(10, nil)
		assert.NotNil(t, a.Flags)
		assert.Empty(t, a.Flags)
	})
}
