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
	"time"

	"github.com/google/uuid"

	"github.com/spdfg/powerbalancer/tree"
)

// Trace is the per-tick diagnostic surface spec.md section 6 requires
// every leaf to expose: the policy last applied, and the enforced
// power limit summed across local packages.
type Trace struct {
	AgentID         uuid.UUID
	PowerCap        float64
	StepCount       int
	MaxEpochRuntime float64
	PowerSlack      float64
	TotalPowerLimit float64
}

// Trace reports l's current tick diagnostics.
func (l *LeafRole) Trace() Trace {
	total := 0.0
	for _, p := range l.packages {
		total += p.balancer.Limit()
	}
	return Trace{
		AgentID:         l.id,
		PowerCap:        l.lastPolicy.PowerCap,
		StepCount:       l.stepCount,
		MaxEpochRuntime: l.lastPolicy.MaxEpochRuntime,
		PowerSlack:      l.lastPolicy.PowerSlack,
		TotalPowerLimit: total,
	}
}

// PackageTrace is one package's row in TraceValues: its enforced limit
// and whether the platform clipped the last requested adjustment.
type PackageTrace struct {
	Index       int
	PowerLimit  float64
	OutOfBounds bool
}

// TraceValues reports l's per-package trace columns alongside the
// node-level aggregate Trace, so a tracer can plot per-package
// convergence instead of only the node sum (original
// PowerBalancerAgent's trace_values, one row per package).
func (l *LeafRole) TraceValues() ([]PackageTrace, Trace) {
	rows := make([]PackageTrace, len(l.packages))
	for i, p := range l.packages {
		rows[i] = PackageTrace{
			Index:       p.idx,
			PowerLimit:  p.balancer.Limit(),
			OutOfBounds: p.outOfBounds,
		}
	}
	return rows, l.Trace()
}

// WaitInterval busy-waits (spinning on the monotonic clock rather than
// sleeping, per spec.md section 5) until interval has elapsed since
// since, then returns the new reference instant for the next call.
func WaitInterval(since time.Time, interval time.Duration) time.Time {
	for time.Since(since) < interval {
	}
	return time.Now()
}

// RoleKindFor selects which role kind a node at the given tree position
// should run.
func RoleKindFor(topo tree.Topology) string {
	if topo.IsRoot {
		return "root"
	}
	if topo.NumChildren > 0 {
		return "intermediate"
	}
	return "leaf"
}
