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

// Package agent implements the step-based state machine every tree
// node runs (spec.md section 4): a common step counter and transition
// rule shared by all roles, three step strategies, and the three role
// specializations (Leaf, Intermediate, Root), each driven through its
// own Tick method.
package agent

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spdfg/powerbalancer/bperrors"
	"github.com/spdfg/powerbalancer/tree"
)

// NumStep is the number of steps in one balancing cycle.
const NumStep = 3

// StepKind identifies one of the three steps a balancing cycle visits.
type StepKind int

const (
	StepSendDownLimit StepKind = iota
	StepMeasureRuntime
	StepReduceLimit
)

func (k StepKind) String() string {
	switch k {
	case StepSendDownLimit:
		return "SEND_DOWN_LIMIT"
	case StepMeasureRuntime:
		return "MEASURE_RUNTIME"
	case StepReduceLimit:
		return "REDUCE_LIMIT"
	default:
		return "UNKNOWN_STEP"
	}
}

// roleBase is the bookkeeping every role (leaf, intermediate, root)
// shares: the step counter, whether the current step has been marked
// complete on this node, and a one-slot lookback used to make a
// repeated descend with an unchanged step_count a cheap re-emit instead
// of recomputation (spec.md section 9, "step-counter history").
type roleBase struct {
	id           uuid.UUID
	name         string
	stepCount    int
	stepComplete bool

	lastPolicy tree.PolicyVector
	lastSample tree.SampleVector
}

func newRoleBase(name string) roleBase {
	return roleBase{id: uuid.New(), name: name}
}

// Step returns the step selected by the current step counter.
func (r *roleBase) Step() StepKind {
	return StepKind(r.stepCount % NumStep)
}

// StepCount returns the raw monotone counter.
func (r *roleBase) StepCount() int {
	return r.stepCount
}

// ID returns this agent's trace identity.
func (r *roleBase) ID() uuid.UUID {
	return r.id
}

// applyPolicy implements the step transition contract from spec.md
// section 4.1:
//
//   - A nonzero incoming power_cap forces a hard reset to
//     SEND_DOWN_LIMIT regardless of current state (forced=true).
//   - An incoming step_count equal to this role's own step_count is a
//     repeat of the same tick (e.g. a resent descend) and produces no
//     state change (advanced=false, forced=false, err=nil) -- this is
//     the idempotence property spec.md section 8 requires.
//   - An incoming step_count exactly one past this role's own, while
//     this role has marked its own current step complete, is a valid
//     advance (advanced=true).
//   - Any other combination is a protocol violation.
func (r *roleBase) applyPolicy(in tree.PolicyVector) (advanced, forced bool, err error) {
	if in.PowerCap != 0 {
		r.stepCount = 0
		r.stepComplete = false
		return false, true, nil
	}
	if in.StepCount == r.stepCount {
		return false, false, nil
	}
	if r.stepComplete && in.StepCount == r.stepCount+1 {
		r.stepCount++
		r.stepComplete = false
		return true, false, nil
	}
	return false, false, bperrors.New(bperrors.ProtocolDesync, fmt.Sprintf(
		"incoming step_count %d incompatible with own step_count %d (complete=%v)",
		in.StepCount, r.stepCount, r.stepComplete)).WithContext(r.name, r.stepCount, map[string]interface{}{
		"incoming_step_count": in.StepCount,
		"own_step_count":      r.stepCount,
		"own_step_complete":   r.stepComplete,
	})
}
