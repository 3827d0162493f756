package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuningMatchesSpecConstants(t *testing.T) {
	d := DefaultTuning()
	assert.Equal(t, 3.0, d.StabilityFactor)
	assert.Equal(t, 5, d.WaitIntervalMillis)
	assert.Equal(t, 5*1e6, float64(d.WaitInterval()))
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stabilityFactor: 4.5\nminNumSamples: 12\n"), 0o644))

	tu, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4.5, tu.StabilityFactor)
	assert.Equal(t, 12, tu.MinNumSamples)
	assert.Equal(t, DefaultTuning().ReductionStepFraction, tu.ReductionStepFraction)
}

func TestBalancerConfigProjection(t *testing.T) {
	tu := DefaultTuning()
	bc := tu.BalancerConfig(0.01)
	assert.Equal(t, tu.StabilityFactor, bc.StabilityFactor)
	assert.Equal(t, 0.01, bc.MeasurementWindow)
	assert.Equal(t, tu.MinNumSamples, bc.MinNumSamples)
}
