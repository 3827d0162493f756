package balancer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		StabilityFactor:       3.0,
		MeasurementWindow:     0.04,
		MinNumSamples:         4,
		ReductionStepFraction: 0.2,
		ToleranceFraction:     0.05,
	}
}

func TestNewSeedsLimitToCap(t *testing.T) {
	b := New(testConfig(), 50, 150)
	assert.Equal(t, 150.0, b.Cap())
	assert.Equal(t, 150.0, b.Limit())
	assert.Equal(t, 0.0, b.PowerSlack())
}

func TestPowerCapResetsState(t *testing.T) {
	b := New(testConfig(), 50, 150)
	for i := 0; i < 10; i++ {
		b.IsRuntimeStable(1.0)
	}
	b.TargetRuntime(1.0)
	b.IsTargetMet(1.0)

	b.PowerCap(300)
	assert.Equal(t, 300.0, b.Cap())
	assert.Equal(t, 300.0, b.Limit())
	assert.Equal(t, 0, b.ring.Len())
}

func TestIsRuntimeStableRequiresMinSamples(t *testing.T) {
	b := New(testConfig(), 50, 150)
	for i := 0; i < 3; i++ {
		assert.False(t, b.IsRuntimeStable(1.0))
	}
}

func TestIsRuntimeStableDetectsStableStream(t *testing.T) {
	b := New(testConfig(), 50, 150)
	var stable bool
	for i := 0; i < 6; i++ {
		stable = b.IsRuntimeStable(1.0)
	}
	assert.True(t, stable)
	assert.InDelta(t, 1.0, b.RuntimeSample(), 1e-9)
}

func TestIsRuntimeStableRejectsNoisyStream(t *testing.T) {
	b := New(testConfig(), 50, 150)
	samples := []float64{1.0, 5.0, 0.5, 6.0, 0.2, 7.0}
	var stable bool
	for _, s := range samples {
		stable = b.IsRuntimeStable(s)
	}
	assert.False(t, stable)
}

func TestIsRuntimeStableIgnoresInvalidSamples(t *testing.T) {
	b := New(testConfig(), 50, 150)
	inputs := []float64{1.0, math.NaN(), -1.0, 0, 1.0, 1.0, 1.0}
	var stable bool
	for _, s := range inputs {
		stable = b.IsRuntimeStable(s)
	}
	// Only 4 of the 7 inputs were valid samples (1.0 x4); that meets
	// MinNumSamples=4 with a perfectly flat stream.
	assert.True(t, stable)
}

func TestIsTargetMetReducesLimitWhileMeetingTarget(t *testing.T) {
	// Node with plenty of headroom: runtime stays at 1.0s regardless of
	// limit down to the floor, target is 2.0s, so the search should walk
	// the limit all the way down to the platform minimum.
	b := New(testConfig(), 50, 150)
	b.TargetRuntime(2.0)

	var met bool
	for i := 0; i < 200 && !met; i++ {
		met = b.IsTargetMet(1.0)
	}
	require.True(t, met)
	assert.InDelta(t, 50.0, b.Limit(), 1e-6)
	assert.InDelta(t, 100.0, b.PowerSlack(), 1e-6)
}

func TestIsTargetMetRevertsWhenReductionViolatesTarget(t *testing.T) {
	// Simulate a package whose runtime is inversely related to its
	// limit: below a breakpoint the runtime exceeds the target.
	b := New(testConfig(), 50, 150)
	b.TargetRuntime(2.0)

	runtimeAt := func(limit float64) float64 {
		if limit >= 120 {
			return 1.0
		}
		return 3.0
	}

	var met bool
	for i := 0; i < 500 && !met; i++ {
		met = b.IsTargetMet(runtimeAt(b.Limit()))
	}
	require.True(t, met)
	assert.GreaterOrEqual(t, b.Limit(), 120.0)
	assert.LessOrEqual(t, b.Limit(), 150.0)
}

func TestIsTargetMetNeverExceedsCapOrUndershootsFloor(t *testing.T) {
	b := New(testConfig(), 50, 150)
	b.TargetRuntime(2.0)
	for i := 0; i < 500; i++ {
		b.IsTargetMet(0.5)
		assert.LessOrEqual(t, b.Limit(), b.Cap())
		assert.GreaterOrEqual(t, b.Limit(), 50.0)
	}
}

func TestPowerSlackNonNegative(t *testing.T) {
	b := New(testConfig(), 50, 150)
	b.TargetRuntime(2.0)
	for i := 0; i < 200; i++ {
		b.IsTargetMet(1.0)
		assert.GreaterOrEqual(t, b.PowerSlack(), 0.0)
	}
}

func TestPowerLimitAdjustedAffectsSlack(t *testing.T) {
	b := New(testConfig(), 50, 150)
	b.PowerLimitAdjusted(140)
	assert.Equal(t, 140.0, b.Limit())
	assert.Equal(t, 10.0, b.PowerSlack())
}
