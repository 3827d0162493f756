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

// Package balancer implements the per-package PowerBalancer: given a
// stream of balanced epoch runtime measurements under a stationary
// power cap, it decides when the stream is statistically stable, then
// searches downward for the smallest power limit that still meets a
// later-supplied target runtime.
package balancer

import (
	"math"
)

// convergenceThreshold is the power delta (watts) below which the
// reduction search snaps the limit to the platform floor instead of
// asymptotically approaching it forever.
const convergenceThreshold = 0.5

// Config holds the tunable knobs the platform/operator supplies, per the
// configuration surface in spec.md section 9.
type Config struct {
	// StabilityFactor is the constant >= 1 multiplied by MeasurementWindow
	// in controlLatency. The stability test does not use that latency;
	// it depends on MinNumSamples, RingSize and ToleranceFraction only.
	StabilityFactor float64
	// MeasurementWindow is the platform's reporting window (seconds),
	// e.g. POWER_PACKAGE_TIME_WINDOW.
	MeasurementWindow float64
	// MinNumSamples is the minimum ring occupancy before stability or
	// target-met can be declared.
	MinNumSamples int
	// ReductionStepFraction is alpha in the limit-reduction rule:
	// limit <- limit - alpha*(limit-floor).
	ReductionStepFraction float64
	// RingSize bounds the runtime_ring. Defaults to MinNumSamples*2 if
	// zero.
	RingSize int
	// ToleranceFraction is the fractional tolerance band used both for
	// declaring a measurement stream stable and for declaring a target
	// met.
	ToleranceFraction float64
}

// PowerBalancer is the per-package (per-NUMA-domain) balancing core
// described in spec.md section 4.5. One instance exists per package.
type PowerBalancer struct {
	cfg Config

	powerCap   float64
	powerLimit float64
	minPower   float64

	targetRuntime float64
	hasTarget     bool

	ring *runtimeRing

	// lastGoodLimit is the most recent power limit known to meet the
	// target runtime, used to revert a failed reduction probe.
	lastGoodLimit float64
	haveGoodLimit bool
}

// New creates a PowerBalancer bounded below by minPower (the platform's
// POWER_PACKAGE_MIN) and above initially by cap.
func New(cfg Config, minPower, cap float64) *PowerBalancer {
	if cfg.RingSize <= 0 {
		cfg.RingSize = cfg.MinNumSamples * 2
		if cfg.RingSize <= 0 {
			cfg.RingSize = 2
		}
	}
	b := &PowerBalancer{
		cfg:      cfg,
		minPower: minPower,
	}
	b.PowerCap(cap)
	return b
}

// PowerCap sets the hard upper bound for the package. It resets
// power_limit to c, clears the runtime ring, and resets all stability
// and target-tracking state -- the agent calls this on every fresh
// job-level power_cap so the balancer is indistinguishable from a newly
// constructed one seeded with c (spec.md section 8, reset law).
func (b *PowerBalancer) PowerCap(c float64) {
	b.powerCap = c
	b.powerLimit = c
	b.ring = newRuntimeRing(b.cfg.RingSize)
	b.targetRuntime = 0
	b.hasTarget = false
	b.haveGoodLimit = false
	b.lastGoodLimit = 0
}

// Limit returns the currently enforced limit, always <= Cap.
func (b *PowerBalancer) Limit() float64 {
	return b.powerLimit
}

// Cap returns the current hard upper bound for the package.
func (b *PowerBalancer) Cap() float64 {
	return b.powerCap
}

// PowerLimitAdjusted informs the balancer that the platform clipped the
// requested limit to actual; subsequent slack reporting uses actual.
func (b *PowerBalancer) PowerLimitAdjusted(actual float64) {
	b.powerLimit = actual
}

// controlLatency is stability_factor * measurement_window.
// IsRuntimeStable does not consult it.
func (b *PowerBalancer) controlLatency() float64 {
	return b.cfg.StabilityFactor * b.cfg.MeasurementWindow
}

// IsRuntimeStable appends sample to the ring and reports whether the
// stream has stabilized: at least MinNumSamples have been seen and the
// most recent samples fall within a tolerance band around the running
// median. NaN and non-positive samples are not inserted and never
// count toward stability.
func (b *PowerBalancer) IsRuntimeStable(sample float64) bool {
	b.ring.Feed(sample)
	if b.ring.Len() < b.cfg.MinNumSamples {
		return false
	}
	median := b.ring.Median()
	if math.IsNaN(median) || median <= 0 {
		return false
	}
	tolerance := b.toleranceFor(median)
	return b.ring.StdDev() <= tolerance
}

// RuntimeSample returns the median of the ring, recomputed on demand.
func (b *PowerBalancer) RuntimeSample() float64 {
	return b.ring.Median()
}

// TargetRuntime installs the runtime target the balancer tries to meet
// while minimizing power, and resets the ring so a fresh run of samples
// is judged against the new target.
func (b *PowerBalancer) TargetRuntime(t float64) {
	b.targetRuntime = t
	b.hasTarget = true
	b.haveGoodLimit = false
	b.lastGoodLimit = 0
	b.ring.Reset()
}

func (b *PowerBalancer) floor() float64 {
	return b.minPower
}

func (b *PowerBalancer) toleranceFor(reference float64) float64 {
	tol := b.cfg.ToleranceFraction * reference
	if tol <= 0 {
		// A non-positive configured tolerance degenerates to "exact
		// match required", which would make stability/target-met
		// unreachable in practice; fall back to a minimal band.
		tol = 0.001 * reference
	}
	return tol
}

// IsTargetMet appends sample to the ring and drives the downward search
// for the smallest power_limit that still meets target_runtime.
//
// On each call: if the ring (once it has MinNumSamples) shows a median
// at or below target_runtime plus tolerance, the current limit meets
// the target. The limit is recorded as the last known-good value and a
// further reduction of reduction_step_fraction of the remaining
// headroom is attempted -- the search is not finished, so false is
// returned. If the median exceeds the target beyond tolerance and the
// balancer had previously reduced below a known-good limit, it reverts
// to that limit and reports the search complete (true). If the limit
// is already at the platform floor, the reduction budget is exhausted
// and the search completes regardless of whether the target is met.
func (b *PowerBalancer) IsTargetMet(sample float64) bool {
	b.ring.Feed(sample)
	if b.ring.Len() < b.cfg.MinNumSamples {
		return false
	}
	median := b.ring.Median()
	if math.IsNaN(median) || median <= 0 {
		return false
	}

	met := median <= b.targetRuntime+b.toleranceFor(b.targetRuntime)

	if met {
		b.lastGoodLimit = b.powerLimit
		b.haveGoodLimit = true

		if b.powerLimit <= b.floor() {
			// Already at the platform minimum: no further reduction
			// possible, budget exhausted.
			return true
		}
		next := b.powerLimit - b.cfg.ReductionStepFraction*(b.powerLimit-b.floor())
		if next < b.floor() || next-b.floor() < convergenceThreshold {
			next = b.floor()
		}
		if next >= b.powerLimit {
			// Reduction step rounds to no change; treat as exhausted.
			return true
		}
		b.powerLimit = next
		b.ring.Reset()
		return false
	}

	// Target not met at the current limit.
	if b.haveGoodLimit && b.powerLimit < b.lastGoodLimit {
		b.powerLimit = b.lastGoodLimit
		b.ring.Reset()
		return true
	}
	if b.powerLimit <= b.floor() {
		return true
	}
	return false
}

// PowerSlack returns power_cap - power_limit at the moment of the call.
func (b *PowerBalancer) PowerSlack() float64 {
	return b.powerCap - b.powerLimit
}

// PowerHeadroom returns power_cap - power_limit, the same quantity as
// PowerSlack viewed from the tree-wide minimum-headroom aggregation in
// spec.md section 3 -- kept as a distinctly named accessor so callers
// reporting min_power_headroom upward read naturally.
func (b *PowerBalancer) PowerHeadroom() float64 {
	return b.powerCap - b.powerLimit
}
