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

// Package config is the YAML-backed tuning surface spec.md section 9
// names: the handful of options the balancing core itself consumes,
// kept separate from the ambient logging config in bplog.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/spdfg/powerbalancer/balancer"
)

// Tuning holds the recognized options from spec.md section 9: the
// constants governing stability detection, control cadence, and the
// reduction search.
type Tuning struct {
	// StabilityFactor is passed through to balancer.Config, where it
	// multiplies the measurement window; the balancer's stability test
	// does not use the result.
	StabilityFactor float64 `yaml:"stabilityFactor"`
	// WaitIntervalMillis is the control loop cadence (spec.md section 5
	// calls for approximately 5ms).
	WaitIntervalMillis int `yaml:"waitIntervalMillis"`
	// MinNumSamples is the minimum runtime_ring occupancy before
	// stability or target-met can be declared.
	MinNumSamples int `yaml:"minNumSamples"`
	// ReductionStepFraction is alpha in the limit-reduction rule.
	ReductionStepFraction float64 `yaml:"reductionStepFraction"`
	// ToleranceFraction is the fractional band around the median used to
	// judge stability and target-met.
	ToleranceFraction float64 `yaml:"toleranceFraction"`
	// RingSize bounds the runtime_ring; defaults to MinNumSamples*2 when
	// zero.
	RingSize int `yaml:"ringSize"`
}

// DefaultTuning returns the constants used when no config file is
// supplied.
func DefaultTuning() *Tuning {
	return &Tuning{
		StabilityFactor:       3.0,
		WaitIntervalMillis:    5,
		MinNumSamples:         8,
		ReductionStepFraction: 0.1,
		ToleranceFraction:     0.05,
	}
}

// Load reads a YAML tuning config from path, falling back to
// DefaultTuning's values for any field the file omits.
func Load(path string) (*Tuning, error) {
	t := DefaultTuning()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read tuning config")
	}
	if err := yaml.Unmarshal(raw, t); err != nil {
		return nil, errors.Wrap(err, "parse tuning config")
	}
	return t, nil
}

// WaitInterval converts WaitIntervalMillis to a time.Duration.
func (t *Tuning) WaitInterval() time.Duration {
	return time.Duration(t.WaitIntervalMillis) * time.Millisecond
}

// BalancerConfig projects the tuning surface onto balancer.Config,
// given the platform's reporting window (measurementWindow, seconds).
func (t *Tuning) BalancerConfig(measurementWindow float64) balancer.Config {
	return balancer.Config{
		StabilityFactor:       t.StabilityFactor,
		MeasurementWindow:     measurementWindow,
		MinNumSamples:         t.MinNumSamples,
		ReductionStepFraction: t.ReductionStepFraction,
		RingSize:              t.RingSize,
		ToleranceFraction:     t.ToleranceFraction,
	}
}
