package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spdfg/powerbalancer/bperrors"
	"github.com/spdfg/powerbalancer/tree"
)

func TestApplyPolicyIdempotentRepeat(t *testing.T) {
	r := newRoleBase("leaf")
	r.stepComplete = true

	advanced, forced, err := r.applyPolicy(tree.PolicyVector{StepCount: 0})
	assert.NoError(t, err)
	assert.False(t, advanced)
	assert.False(t, forced)
	assert.Equal(t, 0, r.stepCount)
	assert.True(t, r.stepComplete, "a repeated descend must not disturb completion state")
}

func TestApplyPolicyAdvancesOnCompleteAndNextStep(t *testing.T) {
	r := newRoleBase("leaf")
	r.stepComplete = true

	advanced, forced, err := r.applyPolicy(tree.PolicyVector{StepCount: 1})
	assert.NoError(t, err)
	assert.True(t, advanced)
	assert.False(t, forced)
	assert.Equal(t, 1, r.stepCount)
	assert.False(t, r.stepComplete)
}

func TestApplyPolicyRejectsAdvanceBeforeCompletion(t *testing.T) {
	r := newRoleBase("leaf")
	r.stepComplete = false

	_, _, err := r.applyPolicy(tree.PolicyVector{StepCount: 1})
	kind, ok := bperrors.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, bperrors.ProtocolDesync, kind)
}

func TestApplyPolicyRejectsSkippedStep(t *testing.T) {
	r := newRoleBase("leaf")
	r.stepComplete = true

	_, _, err := r.applyPolicy(tree.PolicyVector{StepCount: 2})
	kind, ok := bperrors.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, bperrors.ProtocolDesync, kind)
}

func TestApplyPolicyForcedResetOnNonzeroCap(t *testing.T) {
	r := newRoleBase("leaf")
	r.stepCount = 2
	r.stepComplete = false

	advanced, forced, err := r.applyPolicy(tree.PolicyVector{PowerCap: 180})
	assert.NoError(t, err)
	assert.False(t, advanced)
	assert.True(t, forced)
	assert.Equal(t, 0, r.stepCount)
	assert.False(t, r.stepComplete)
}

func TestStepDerivedFromStepCountModulo(t *testing.T) {
	r := newRoleBase("leaf")
	cases := map[int]StepKind{0: StepSendDownLimit, 1: StepMeasureRuntime, 2: StepReduceLimit, 3: StepSendDownLimit}
	for sc, want := range cases {
		r.stepCount = sc
		assert.Equal(t, want, r.Step())
	}
}
