// Copyright (C) 2018 spdfg
//
// This file is part of Elektron.
//
// Elektron is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Elektron is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Elektron.  If not, see <http://www.gnu.org/licenses/>.
//

package agent

import (
	"github.com/spdfg/powerbalancer/tree"
)

// RootRole extends IntermediateRole with the job-level policy origin:
// it owns the pending policy disseminated on the next descend and
// applies the section 4.4 per-step update rules whenever its subtree
// finishes a step.
type RootRole struct {
	*IntermediateRole

	numNode          int
	tdp              float64
	minPower         float64
	maxPower         float64
	numPackagesInJob int

	pendingPolicy tree.PolicyVector
}

// NewRootRole builds the root of a tree of numNode total nodes. tdp,
// minPower, maxPower and numPackagesInJob parameterize the boundary
// policy validation applied to every injected job-level cap.
func NewRootRole(transport tree.Communicator, numNode int, tdp, minPower, maxPower float64, numPackagesInJob int) *RootRole {
	ir := NewIntermediateRole(transport, 0)
	ir.name = "root"
	return &RootRole{
		IntermediateRole: ir,
		numNode:          numNode,
		tdp:              tdp,
		minPower:         minPower,
		maxPower:         maxPower,
		numPackagesInJob: numPackagesInJob,
	}
}

// InjectCap validates a freshly arrived job-level power cap and arms it
// for dissemination on the next Descend/Tick, which forces a hard reset
// of the whole tree.
func (rr *RootRole) InjectCap(cap float64) error {
	sanitized, err := tree.SanitizePolicy(tree.PolicyVector{PowerCap: cap}, rr.tdp, rr.minPower, rr.maxPower, rr.numPackagesInJob)
	if err != nil {
		return err
	}
	rr.pendingPolicy = sanitized
	return nil
}

// Descend disseminates the root's current pending policy down the
// tree, overriding IntermediateRole.Descend because the root has no
// parent feeding it a policy -- it is its own origin.
func (rr *RootRole) Descend() (bool, error) {
	return rr.IntermediateRole.Descend(rr.pendingPolicy)
}

// Ascend wraps IntermediateRole.Ascend and, on a genuine step
// completion, applies the section 4.4 update rule for the step that
// just finished and arms the next pending policy.
func (rr *RootRole) Ascend(children []tree.SampleVector) (tree.SampleVector, bool, error) {
	agg, completed, err := rr.IntermediateRole.Ascend(children)
	if err != nil {
		return agg, false, err
	}
	if completed {
		rr.applyStepCompletion(agg)
	}
	return agg, completed, nil
}

func (rr *RootRole) applyStepCompletion(agg tree.SampleVector) {
	switch rr.Step() {
	case StepSendDownLimit:
		rr.pendingPolicy.PowerCap = 0
	case StepMeasureRuntime:
		rr.pendingPolicy.MaxEpochRuntime = agg.MaxEpochRuntime
	case StepReduceLimit:
		slack := agg.SumPowerSlack / float64(rr.numNode)
		if agg.MinPowerHeadroom < slack {
			slack = agg.MinPowerHeadroom
		}
		rr.pendingPolicy.PowerSlack = slack
	}
	rr.pendingPolicy.StepCount = rr.stepCount + 1
}

// Tick descends the pending policy, collects the tree's aggregated
// sample, and applies any resulting step-completion update.
func (rr *RootRole) Tick() (tree.SampleVector, error) {
	if _, err := rr.Descend(); err != nil {
		return tree.SampleVector{}, err
	}
	children, err := rr.transport.AscendUp(rr.level)
	if err != nil {
		return tree.SampleVector{}, err
	}
	out, _, err := rr.Ascend(children)
	return out, err
}
