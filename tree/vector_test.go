package tree

import (
	"math"
	"testing"

	"github.com/spdfg/powerbalancer/bperrors"
	"github.com/stretchr/testify/assert"
)

func TestAggregateSamplesAppliesPerFieldFunctions(t *testing.T) {
	children := []SampleVector{
		{StepCount: 1, MaxEpochRuntime: 1.0, SumPowerSlack: 20, MinPowerHeadroom: 40},
		{StepCount: 1, MaxEpochRuntime: 2.0, SumPowerSlack: 20, MinPowerHeadroom: 10},
		{StepCount: 2, MaxEpochRuntime: 0.5, SumPowerSlack: 0, MinPowerHeadroom: 40},
	}
	out := AggregateSamples(children)
	assert.Equal(t, 1, out.StepCount)
	assert.Equal(t, 2.0, out.MaxEpochRuntime)
	assert.Equal(t, 40.0, out.SumPowerSlack)
	assert.Equal(t, 10.0, out.MinPowerHeadroom)
}

func TestAggregateSamplesEmpty(t *testing.T) {
	assert.Equal(t, SampleVector{}, AggregateSamples(nil))
}

func TestIsZero(t *testing.T) {
	assert.True(t, PolicyVector{}.IsZero())
	assert.False(t, PolicyVector{StepCount: 1}.IsZero())
}

func TestSanitizePolicyReplacesNaNDefaults(t *testing.T) {
	p := PolicyVector{PowerCap: math.NaN(), MaxEpochRuntime: math.NaN(), PowerSlack: math.NaN(), StepCount: 1}
	out, err := SanitizePolicy(p, 200, 50, 200, 2)
	assert.NoError(t, err)
	assert.Equal(t, 200.0, out.PowerCap)
	assert.Equal(t, 0.0, out.MaxEpochRuntime)
	assert.Equal(t, 0.0, out.PowerSlack)
}

func TestSanitizePolicyClampsAboveMax(t *testing.T) {
	p := PolicyVector{PowerCap: 1000, StepCount: 1}
	out, err := SanitizePolicy(p, 200, 50, 200, 2)
	assert.NoError(t, err)
	assert.Equal(t, 400.0, out.PowerCap) // 200 * 2 packages
}

func TestSanitizePolicyRejectsBelowMin(t *testing.T) {
	p := PolicyVector{PowerCap: 10, StepCount: 1}
	_, err := SanitizePolicy(p, 200, 50, 200, 2)
	kind, ok := bperrors.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, bperrors.InvalidPolicy, kind)
}

func TestSanitizePolicyRejectsAllZero(t *testing.T) {
	_, err := SanitizePolicy(PolicyVector{}, 200, 50, 200, 2)
	kind, ok := bperrors.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, bperrors.InvalidPolicy, kind)
}
