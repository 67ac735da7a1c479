package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fuelwatch/internal/models"
)

func TestEvaluateCondition(t *testing.T) {
	high := models.SeverityHigh.Rank()
	medium := models.SeverityMedium.Rank()

	assert.True(t, evaluateCondition("EQ", high, high))
	assert.False(t, evaluateCondition("EQ", high, medium))
	assert.True(t, evaluateCondition("NEQ", high, medium))
	assert.True(t, evaluateCondition("GT", high, medium))
	assert.False(t, evaluateCondition("GT", medium, medium))
	assert.True(t, evaluateCondition("GTE", medium, medium))
	assert.True(t, evaluateCondition("LT", medium, high))
	assert.True(t, evaluateCondition("LTE", medium, medium))
	assert.False(t, evaluateCondition("BETWEEN", medium, high), "unknown condition never matches")
}

func TestSeverityRankOrdering(t *testing.T) {
	assert.Less(t, models.SeverityLow.Rank(), models.SeverityMedium.Rank())
	assert.Less(t, models.SeverityMedium.Rank(), models.SeverityHigh.Rank())
	assert.Less(t, models.SeverityHigh.Rank(), models.SeverityCritical.Rank())
	assert.Equal(t, 0, models.Severity("bogus").Rank())
}
