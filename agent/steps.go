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

// Step is the per-step strategy a LeafRole dispatches to. Enter fires
// exactly once on a genuine transition into the step (never on an
// idempotent repeat); Sample fires on every tick while the step is
// active and reports whether every package has satisfied the step's
// completion condition.
type Step interface {
	Enter(l *LeafRole)
	Sample(l *LeafRole) bool
}

var steps = [NumStep]Step{
	StepSendDownLimit:  sendDownLimitStep{},
	StepMeasureRuntime: measureRuntimeStep{},
	StepReduceLimit:    reduceLimitStep{},
}

// sendDownLimitStep resets every package's cap to its currently
// enforced limit plus its share of the slack computed at the end of the
// previous REDUCE_LIMIT, then marks the step complete immediately:
// there is nothing further to sample.
type sendDownLimitStep struct{}

func (sendDownLimitStep) Enter(l *LeafRole) {
	slackEach := l.lastPolicy.PowerSlack / float64(len(l.packages))
	for _, p := range l.packages {
		p.outOfBounds = false
		p.stable = false
		p.done = false
		p.balancer.PowerCap(p.balancer.Limit() + slackEach)
	}
	l.stepComplete = true
}

func (sendDownLimitStep) Sample(l *LeafRole) bool {
	return l.stepComplete
}

// measureRuntimeStep drives every package's balancer until its stream
// of balanced epoch runtimes is judged stable, then records the
// stabilized runtime. The step completes once every package is stable.
type measureRuntimeStep struct{}

func (measureRuntimeStep) Enter(l *LeafRole) {
	for _, p := range l.packages {
		p.stable = false
	}
}

func (measureRuntimeStep) Sample(l *LeafRole) bool {
	allStable := true
	for _, p := range l.packages {
		if p.stable {
			continue
		}
		runtime, newEpoch, err := l.readBalancedRuntime(p)
		if err != nil || !newEpoch {
			allStable = false
			continue
		}
		if p.balancer.IsRuntimeStable(runtime) {
			p.stable = true
			p.lastRuntime = p.balancer.RuntimeSample()
		} else {
			allStable = false
		}
	}
	return allStable
}

// reduceLimitStep installs the tree-wide max_epoch_runtime as every
// package's target and searches downward for the smallest limit that
// still meets it. A package clipped out-of-bounds during adjust is
// treated as having already met the target.
type reduceLimitStep struct{}

func (reduceLimitStep) Enter(l *LeafRole) {
	for _, p := range l.packages {
		p.done = p.outOfBounds
		p.balancer.TargetRuntime(l.lastPolicy.MaxEpochRuntime)
	}
}

func (reduceLimitStep) Sample(l *LeafRole) bool {
	allDone := true
	for _, p := range l.packages {
		if p.outOfBounds {
			p.done = true
		}
		if !p.done {
			runtime, newEpoch, err := l.readBalancedRuntime(p)
			if err == nil && newEpoch && p.balancer.IsTargetMet(runtime) {
				p.done = true
			}
		}
		if !p.done {
			allDone = false
		}
	}
	return allDone
}
