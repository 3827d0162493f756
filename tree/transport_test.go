package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInProcessCommunicatorDescendDeliversToAllChildren(t *testing.T) {
	c := NewInProcessCommunicator(3)
	policy := PolicyVector{StepCount: 1, MaxEpochRuntime: 2.0}

	err := c.DescendDown(0, policy)
	assert.NoError(t, err)

	for i := 0; i < 3; i++ {
		got := <-c.ChildPolicyChan(i)
		assert.Equal(t, policy, got)
	}
}

func TestInProcessCommunicatorAscendCollectsAllChildren(t *testing.T) {
	c := NewInProcessCommunicator(2)
	c.ChildSampleChan(0) <- SampleVector{StepCount: 1, MaxEpochRuntime: 1.0}
	c.ChildSampleChan(1) <- SampleVector{StepCount: 1, MaxEpochRuntime: 2.0}

	samples, err := c.AscendUp(0)
	assert.NoError(t, err)
	assert.Len(t, samples, 2)
	assert.Equal(t, 1.0, samples[0].MaxEpochRuntime)
	assert.Equal(t, 2.0, samples[1].MaxEpochRuntime)
}
