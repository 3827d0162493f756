package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spdfg/powerbalancer/balancer"
	"github.com/spdfg/powerbalancer/bperrors"
	"github.com/spdfg/powerbalancer/platform"
	"github.com/spdfg/powerbalancer/tree"
)

func testBalancerConfig() balancer.Config {
	return balancer.Config{
		StabilityFactor:       1,
		MeasurementWindow:     1,
		MinNumSamples:         1,
		ReductionStepFraction: 0.2,
		ToleranceFraction:     0.05,
		RingSize:              2,
	}
}

func seedEpoch(p *platform.SimPlatform, idx int, count, runtime, network, ignore float64) {
	p.SetSignal(platform.SignalEpochCount, platform.DomainPackage, idx, count)
	p.SetSignal(platform.SignalEpochRuntime, platform.DomainPackage, idx, runtime)
	p.SetSignal(platform.SignalEpochRuntimeNetwork, platform.DomainPackage, idx, network)
	p.SetSignal(platform.SignalEpochRuntimeIgnore, platform.DomainPackage, idx, ignore)
}

func TestLeafWarmStartDistributesCapEvenly(t *testing.T) {
	plat := platform.NewSimPlatform()
	l, err := NewLeafRole(plat, 2, testBalancerConfig(), 50, 300)
	require.NoError(t, err)

	err = l.AdjustPlatform(tree.PolicyVector{PowerCap: 300})
	require.NoError(t, err)

	trace := l.Trace()
	assert.Equal(t, 0, trace.StepCount)
	assert.Equal(t, 0.0, trace.MaxEpochRuntime)
	assert.InDelta(t, 300.0, trace.TotalPowerLimit, 1e-9)
}

func TestLeafDescendAscendAreWrongRole(t *testing.T) {
	plat := platform.NewSimPlatform()
	l, err := NewLeafRole(plat, 1, testBalancerConfig(), 50, 150)
	require.NoError(t, err)

	_, err = l.Descend(tree.PolicyVector{})
	kind, ok := bperrors.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, bperrors.WrongRole, kind)

	_, _, err = l.Ascend(nil)
	kind, ok = bperrors.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, bperrors.WrongRole, kind)
}

func TestLeafMeasureRuntimeStepDeclaresStableAndReportsMax(t *testing.T) {
	plat := platform.NewSimPlatform()
	l, err := NewLeafRole(plat, 1, testBalancerConfig(), 50, 150)
	require.NoError(t, err)
	require.NoError(t, l.AdjustPlatform(tree.PolicyVector{PowerCap: 150}))

	seedEpoch(plat, 0, 1, 2.0, 0, 0)
	require.NoError(t, l.AdjustPlatform(tree.PolicyVector{StepCount: 1}))

	var out tree.SampleVector
	complete, err := l.SamplePlatform(&out)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, 2.0, out.MaxEpochRuntime)
}

func TestLeafIdempotentDescendIsNoop(t *testing.T) {
	plat := platform.NewSimPlatform()
	l, err := NewLeafRole(plat, 1, testBalancerConfig(), 50, 150)
	require.NoError(t, err)
	require.NoError(t, l.AdjustPlatform(tree.PolicyVector{PowerCap: 150}))

	before := l.Trace()
	require.NoError(t, l.AdjustPlatform(tree.PolicyVector{StepCount: 0}))
	after := l.Trace()

	assert.Equal(t, before, after)
}

func TestLeafOutOfBoundsPackageCountsAsReduceDone(t *testing.T) {
	plat := platform.NewSimPlatform()
	plat.ClipControl = func(name string, domain platform.Domain, idx int, requested float64) float64 {
		return requested - 1
	}
	l, err := NewLeafRole(plat, 1, testBalancerConfig(), 50, 150)
	require.NoError(t, err)
	require.NoError(t, l.AdjustPlatform(tree.PolicyVector{PowerCap: 150}))
	assert.True(t, l.packages[0].outOfBounds)

	seedEpoch(plat, 0, 1, 2.0, 0, 0)
	require.NoError(t, l.AdjustPlatform(tree.PolicyVector{StepCount: 1}))
	var out tree.SampleVector
	_, err = l.SamplePlatform(&out)
	require.NoError(t, err)

	require.NoError(t, l.AdjustPlatform(tree.PolicyVector{StepCount: 2}))
	complete, err := l.SamplePlatform(&out)
	require.NoError(t, err)
	assert.True(t, complete, "an out-of-bounds package should be treated as already meeting the target")
}
