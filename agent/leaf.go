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
	"math"

	"github.com/spdfg/powerbalancer/balancer"
	"github.com/spdfg/powerbalancer/bperrors"
	"github.com/spdfg/powerbalancer/platform"
	"github.com/spdfg/powerbalancer/tree"
)

// PackageState is one package's (NUMA domain's) worth of balancing
// state: its PowerBalancer, the platform handles it was pushed on, and
// the per-step bookkeeping the step strategies read and mutate.
type PackageState struct {
	idx      int
	balancer *balancer.PowerBalancer

	outOfBounds bool
	stable      bool
	done        bool
	lastRuntime float64

	lastEpochCount float64

	sigRuntimeH, sigCountH, sigNetH, sigIgnoreH platform.Handle
	ctrlLimitH                                  platform.Handle
}

// LeafRole is the tree-position specialization that owns one node's
// packages, drives each package's PowerBalancer, and exchanges policy
// for a sample with its parent (spec.md section 4.2).
type LeafRole struct {
	roleBase

	plat     platform.PlatformIO
	packages []*PackageState
}

// NewLeafRole pushes the required per-package signal and control
// handles on plat and seeds every package's balancer at cap/numPackages.
func NewLeafRole(plat platform.PlatformIO, numPackages int, cfg balancer.Config, minPower, cap float64) (*LeafRole, error) {
	if numPackages <= 0 {
		return nil, bperrors.New(bperrors.InvalidPolicy, "leaf role requires at least one package")
	}
	l := &LeafRole{
		roleBase: newRoleBase("leaf"),
		plat:     plat,
	}
	perPackageCap := cap / float64(numPackages)
	for i := 0; i < numPackages; i++ {
		p := &PackageState{idx: i, balancer: balancer.New(cfg, minPower, perPackageCap)}
		var err error
		if p.sigRuntimeH, err = plat.PushSignal(platform.SignalEpochRuntime, platform.DomainPackage, i); err != nil {
			return nil, err
		}
		if p.sigCountH, err = plat.PushSignal(platform.SignalEpochCount, platform.DomainPackage, i); err != nil {
			return nil, err
		}
		if p.sigNetH, err = plat.PushSignal(platform.SignalEpochRuntimeNetwork, platform.DomainPackage, i); err != nil {
			return nil, err
		}
		if p.sigIgnoreH, err = plat.PushSignal(platform.SignalEpochRuntimeIgnore, platform.DomainPackage, i); err != nil {
			return nil, err
		}
		if p.ctrlLimitH, err = plat.PushControl(platform.ControlPowerPackageLimit, platform.DomainPackage, i); err != nil {
			return nil, err
		}
		l.packages = append(l.packages, p)
	}
	return l, nil
}

// Descend is invalid at a leaf.
func (l *LeafRole) Descend(tree.PolicyVector) (bool, error) {
	return false, bperrors.New(bperrors.WrongRole, "descend called on leaf role").WithContext("leaf", l.stepCount, nil)
}

// Ascend is invalid at a leaf.
func (l *LeafRole) Ascend([]tree.SampleVector) (tree.SampleVector, bool, error) {
	return tree.SampleVector{}, false, bperrors.New(bperrors.WrongRole, "ascend called on leaf role").WithContext("leaf", l.stepCount, nil)
}

// AdjustPlatform implements spec.md section 4.2's adjust_platform: a
// nonzero policy.PowerCap forces a hard reset and redistributes the
// fresh cap evenly across packages; otherwise the step machine advances
// (firing the new step's Enter hook exactly once) or, for a repeated
// step_count, does nothing beyond the unconditional control push below.
// Every call ends by pushing each package's current balancer limit to
// the platform and detecting clipping.
func (l *LeafRole) AdjustPlatform(policy tree.PolicyVector) error {
	if policy.PowerCap != 0 {
		if _, _, err := l.applyPolicy(policy); err != nil {
			return err
		}
		perPackageCap := policy.PowerCap / float64(len(l.packages))
		for _, p := range l.packages {
			p.outOfBounds = false
			p.stable = false
			p.done = false
			p.balancer.PowerCap(perPackageCap)
		}
		l.lastPolicy = policy
		l.stepComplete = true
	} else {
		advanced, _, err := l.applyPolicy(policy)
		if err != nil {
			return err
		}
		if advanced {
			l.lastPolicy = policy
			steps[l.Step()].Enter(l)
		}
	}
	return l.pushLimits()
}

func (l *LeafRole) pushLimits() error {
	for _, p := range l.packages {
		limit := p.balancer.Limit()
		if math.IsNaN(limit) || limit <= 0 {
			continue
		}
		if err := l.plat.Adjust(p.ctrlLimitH, limit); err != nil {
			return bperrors.Wrap(bperrors.TransientPlatform, err, "adjust power limit control")
		}
	}
	if err := l.plat.WriteBatch(); err != nil {
		return bperrors.Wrap(bperrors.TransientPlatform, err, "write power limit controls")
	}
	for _, p := range l.packages {
		requested := p.balancer.Limit()
		if math.IsNaN(requested) || requested <= 0 {
			continue
		}
		applied, err := l.plat.AppliedControl(p.ctrlLimitH)
		if err != nil {
			continue
		}
		p.balancer.PowerLimitAdjusted(applied)
		if applied < requested {
			p.outOfBounds = true
		}
	}
	return nil
}

// SamplePlatform implements spec.md section 4.2's sample_platform: it
// reads the platform once, invokes the current step's Sample hook, and
// fills out with the tree-wide-reportable totals. It returns whether
// the current step is now complete.
func (l *LeafRole) SamplePlatform(out *tree.SampleVector) (bool, error) {
	if err := l.plat.ReadBatch(); err != nil {
		if bperrors.IsFatal(err) {
			return false, err
		}
		return false, nil
	}

	complete := steps[l.Step()].Sample(l)
	l.stepComplete = complete

	maxRuntime := 0.0
	sumSlack := 0.0
	minHeadroom := math.Inf(1)
	for _, p := range l.packages {
		if p.lastRuntime > maxRuntime {
			maxRuntime = p.lastRuntime
		}
		sumSlack += p.balancer.PowerSlack()
		if h := p.balancer.PowerHeadroom(); h < minHeadroom {
			minHeadroom = h
		}
	}
	*out = tree.SampleVector{
		StepCount:        l.stepCount,
		MaxEpochRuntime:  maxRuntime,
		SumPowerSlack:    sumSlack,
		MinPowerHeadroom: minHeadroom,
	}
	return complete, nil
}

// Tick combines AdjustPlatform and SamplePlatform into the single call
// a controller loop makes once per received policy.
func (l *LeafRole) Tick(policy tree.PolicyVector) (tree.SampleVector, error) {
	var out tree.SampleVector
	if err := l.AdjustPlatform(policy); err != nil {
		return out, err
	}
	if _, err := l.SamplePlatform(&out); err != nil {
		return out, err
	}
	return out, nil
}

// readBalancedRuntime reports the current epoch's balanced runtime for
// p, and whether a new epoch boundary was actually reached since the
// last call (EPOCH_COUNT unchanged means "no new sample yet").
func (l *LeafRole) readBalancedRuntime(p *PackageState) (runtime float64, newEpoch bool, err error) {
	count, err := l.plat.Sample(p.sigCountH)
	if err != nil {
		return 0, false, bperrors.Wrap(bperrors.TransientPlatform, err, "sample epoch count")
	}
	if count == p.lastEpochCount {
		return 0, false, nil
	}
	p.lastEpochCount = count

	total, err := l.plat.Sample(p.sigRuntimeH)
	if err != nil {
		return 0, false, bperrors.Wrap(bperrors.TransientPlatform, err, "sample epoch runtime")
	}
	network, err := l.plat.Sample(p.sigNetH)
	if err != nil {
		return 0, false, bperrors.Wrap(bperrors.TransientPlatform, err, "sample epoch network time")
	}
	ignore, err := l.plat.Sample(p.sigIgnoreH)
	if err != nil {
		return 0, false, bperrors.Wrap(bperrors.TransientPlatform, err, "sample epoch ignore time")
	}
	return total - network - ignore, true, nil
}

func (p *PackageState) String() string {
	return fmt.Sprintf("package[%d] limit=%.2f outOfBounds=%v", p.idx, p.balancer.Limit(), p.outOfBounds)
}
