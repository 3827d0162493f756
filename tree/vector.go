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

// Package tree implements the hierarchical down-policy/up-sample
// contract the balancing agents run over (spec.md section 3 and
// section 6): the fixed-size policy and sample vectors, their
// per-field aggregation rules, and the transport facade that moves
// them between parent and child agents.
package tree

import "math"

// PolicyVector flows from the root toward the leaves.
type PolicyVector struct {
	// PowerCap is the per-node average cap for the whole job. Non-zero
	// only when a fresh job-level cap has arrived this tick; zero on
	// all intermediate steps.
	PowerCap float64
	// StepCount is a monotone counter; StepCount mod 3 selects the
	// current step.
	StepCount int
	// MaxEpochRuntime is the slowest per-node epoch runtime observed at
	// the last measurement step (0 until measured).
	MaxEpochRuntime float64
	// PowerSlack is the per-node average power leaves may add to their
	// caps after a reduction round (0 until computed).
	PowerSlack float64
}

// SampleVector flows from the leaves toward the root.
type SampleVector struct {
	// StepCount aggregates by min: the root uses it to detect "all
	// children finished step k".
	StepCount int
	// MaxEpochRuntime aggregates by max: slowest node runtime in the
	// subtree.
	MaxEpochRuntime float64
	// SumPowerSlack aggregates by sum: total slack power yielded by the
	// subtree.
	SumPowerSlack float64
	// MinPowerHeadroom aggregates by min: smallest remaining headroom
	// between power_cap and power_limit in the subtree.
	MinPowerHeadroom float64
}

// IsZero reports whether every field of p is the zero value, the
// all-zero policy the boundary contract (spec.md section 6) rejects as
// invalid.
func (p PolicyVector) IsZero() bool {
	return p == PolicyVector{}
}

// AggregateSamples combines the per-child sample vectors reported to a
// non-leaf node into the single vector it reports to its own parent,
// applying the per-field functions from spec.md section 3: min, max,
// sum, min.
func AggregateSamples(children []SampleVector) SampleVector {
	if len(children) == 0 {
		return SampleVector{}
	}
	out := SampleVector{
		StepCount:        children[0].StepCount,
		MaxEpochRuntime:  children[0].MaxEpochRuntime,
		SumPowerSlack:    0,
		MinPowerHeadroom: children[0].MinPowerHeadroom,
	}
	for _, c := range children {
		if c.StepCount < out.StepCount {
			out.StepCount = c.StepCount
		}
		if c.MaxEpochRuntime > out.MaxEpochRuntime {
			out.MaxEpochRuntime = c.MaxEpochRuntime
		}
		out.SumPowerSlack += c.SumPowerSlack
		if c.MinPowerHeadroom < out.MinPowerHeadroom {
			out.MinPowerHeadroom = c.MinPowerHeadroom
		}
	}
	return out
}

// SanitizePolicy applies the boundary validation contract from spec.md
// section 6 to a freshly injected job-level policy: NaN fields are
// replaced by their default (power_cap -> tdp, others -> 0), a nonzero
// power_cap above maxPower*numPackages is clamped down to it, a nonzero
// power_cap below minPower*numPackages is rejected, and an all-zero
// policy is rejected.
//
// numPackagesInJob is the total package count across the whole job (not
// just one node), matching the original's per-job bound.
func SanitizePolicy(p PolicyVector, tdp, minPower, maxPower float64, numPackagesInJob int) (PolicyVector, error) {
	if math.IsNaN(p.PowerCap) {
		p.PowerCap = tdp
	}
	if math.IsNaN(p.MaxEpochRuntime) {
		p.MaxEpochRuntime = 0
	}
	if math.IsNaN(p.PowerSlack) {
		p.PowerSlack = 0
	}

	if p.PowerCap != 0 {
		lo := minPower * float64(numPackagesInJob)
		hi := maxPower * float64(numPackagesInJob)
		if p.PowerCap < lo {
			return PolicyVector{}, errInvalidCap(p.PowerCap, lo, hi)
		}
		if p.PowerCap > hi {
			p.PowerCap = hi
		}
	}

	if p.IsZero() {
		return PolicyVector{}, errAllZero()
	}
	return p, nil
}
