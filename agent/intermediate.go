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
	"fmt"

	"github.com/spdfg/powerbalancer/bperrors"
	"github.com/spdfg/powerbalancer/tree"
)

// IntermediateRole relays a policy one level down and the aggregated
// sample one level up, per spec.md section 4.3.
type IntermediateRole struct {
	roleBase

	transport tree.Communicator
	level     int
}

// NewIntermediateRole builds a role that descends/ascends at level
// through transport.
func NewIntermediateRole(transport tree.Communicator, level int) *IntermediateRole {
	return &IntermediateRole{
		roleBase:  newRoleBase("intermediate"),
		transport: transport,
		level:     level,
	}
}

// Descend implements spec.md section 4.3's descend: an unchanged
// step_count re-emits the last policy unchanged (no state change);
// otherwise the transition is validated (reset or +1) and the new
// policy is copied into every child slot. It returns true iff it
// produced a new policy.
func (ir *IntermediateRole) Descend(in tree.PolicyVector) (bool, error) {
	advanced, forced, err := ir.applyPolicy(in)
	if err != nil {
		return false, err
	}
	if !advanced && !forced {
		if err := ir.transport.DescendDown(ir.level, ir.lastPolicy); err != nil {
			return false, bperrors.Wrap(bperrors.TransientPlatform, err, "re-emit policy to children")
		}
		return false, nil
	}
	ir.lastPolicy = in
	if err := ir.transport.DescendDown(ir.level, in); err != nil {
		return false, bperrors.Wrap(bperrors.TransientPlatform, err, "descend policy to children")
	}
	return true, nil
}

// Ascend implements spec.md section 4.3's ascend: apply the per-field
// aggregations to the children's sample vectors; if the aggregated
// step_count matches this role's own and the step was not yet marked
// complete, mark it complete and signal that upward (the returned
// bool). A mismatching aggregated step_count is a protocol violation.
func (ir *IntermediateRole) Ascend(children []tree.SampleVector) (tree.SampleVector, bool, error) {
	agg := tree.AggregateSamples(children)
	if agg.StepCount != ir.stepCount {
		return agg, false, bperrors.New(bperrors.ProtocolDesync, fmt.Sprintf(
			"aggregated child step_count %d does not match own step_count %d", agg.StepCount, ir.stepCount,
		)).WithContext(ir.name, ir.stepCount, map[string]interface{}{"aggregated_step_count": agg.StepCount})
	}
	if ir.stepComplete {
		return agg, false, nil
	}
	ir.stepComplete = true
	return agg, true, nil
}

// Tick descends in to the children, collects their samples, and
// ascends the aggregated result.
func (ir *IntermediateRole) Tick(in tree.PolicyVector) (tree.SampleVector, error) {
	if _, err := ir.Descend(in); err != nil {
		return tree.SampleVector{}, err
	}
	children, err := ir.transport.AscendUp(ir.level)
	if err != nil {
		return tree.SampleVector{}, bperrors.Wrap(bperrors.TransientPlatform, err, "collect child samples")
	}
	out, _, err := ir.Ascend(children)
	return out, err
}
