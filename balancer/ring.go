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

package balancer

import (
	"container/ring"
	"math"

	"github.com/montanaflynn/stats"
)

// runtimeRing is a bounded window of recent epoch runtime samples, used
// to compute a running median and standard deviation on demand.
//
// NaN and non-positive runtimes are treated as "no sample" by the
// caller (Feed) and are never inserted.
type runtimeRing struct {
	r        *ring.Ring
	size     int
	occupied int
}

func newRuntimeRing(size int) *runtimeRing {
	return &runtimeRing{r: ring.New(size), size: size}
}

// Feed inserts sample unless it is NaN or non-positive.
func (rr *runtimeRing) Feed(sample float64) {
	if math.IsNaN(sample) || sample <= 0 {
		return
	}
	rr.r.Value = sample
	rr.r = rr.r.Next()
	if rr.occupied < rr.size {
		rr.occupied++
	}
}

// Reset empties the ring.
func (rr *runtimeRing) Reset() {
	rr.r = ring.New(rr.size)
	rr.occupied = 0
}

// Len reports how many samples are currently occupied.
func (rr *runtimeRing) Len() int {
	return rr.occupied
}

func (rr *runtimeRing) values() []float64 {
	out := make([]float64, 0, rr.occupied)
	rr.r.Do(func(v interface{}) {
		if f, ok := v.(float64); ok {
			out = append(out, f)
		}
	})
	return out
}

// Median returns the median of the samples currently in the ring, or
// NaN if the ring is empty.
func (rr *runtimeRing) Median() float64 {
	vals := rr.values()
	if len(vals) == 0 {
		return math.NaN()
	}
	m, err := stats.Median(vals)
	if err != nil {
		return math.NaN()
	}
	return m
}

// StdDev returns the standard deviation of the samples currently in the
// ring, or 0 if fewer than two samples are present.
func (rr *runtimeRing) StdDev() float64 {
	vals := rr.values()
	if len(vals) < 2 {
		return 0
	}
	sd, err := stats.StandardDeviation(vals)
	if err != nil {
		return 0
	}
	return sd
}
