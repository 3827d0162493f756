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

// Command powerbalancer-agent runs a single-process demonstration tree
// of balancing agents: one root and numNode simulated leaves,
// communicating over an in-process transport and reporting epoch
// runtimes drawn from a simulated platform. It exists to exercise the
// whole controller loop end to end without real RAPL/MSR access or a
// real multi-node tree transport.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/spdfg/powerbalancer/agent"
	"github.com/spdfg/powerbalancer/bplog"
	"github.com/spdfg/powerbalancer/config"
	"github.com/spdfg/powerbalancer/platform"
	"github.com/spdfg/powerbalancer/tree"
)

var numNode = flag.Int("numNode", 2, "Number of simulated leaf nodes in the job")
var numPkg = flag.Int("numPkg", 2, "Number of packages per leaf node")
var jobCap = flag.Float64("cap", 300.0, "Initial job-level power cap in watts")
var minPower = flag.Float64("minPower", 50.0, "Platform POWER_PACKAGE_MIN per package, in watts")
var maxPower = flag.Float64("maxPower", 200.0, "Platform POWER_PACKAGE_MAX per package, in watts")
var numCycles = flag.Int("numCycles", 3, "Number of SEND_DOWN_LIMIT/MEASURE_RUNTIME/REDUCE_LIMIT cycles to run")
var tuningConfigFile = flag.String("tuningConfig", "", "YAML tuning config file (default: built-in defaults)")
var logConfigFile = flag.String("logConfig", "", "YAML logging config file (default: console only)")

func init() {
	flag.IntVar(numNode, "n", 2, "Number of simulated leaf nodes in the job (shorthand)")
	flag.IntVar(numPkg, "p", 2, "Number of packages per leaf node (shorthand)")
	flag.Float64Var(jobCap, "c", 300.0, "Initial job-level power cap in watts (shorthand)")
	flag.IntVar(numCycles, "cycles", 3, "Number of balancing cycles to run (shorthand)")
}

func main() {
	flag.Parse()

	tuning := config.DefaultTuning()
	if *tuningConfigFile != "" {
		loaded, err := config.Load(*tuningConfigFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("failed to load tuning config: %v", err))
			os.Exit(1)
		}
		tuning = loaded
	}

	logCfg := bplog.DefaultConfig()
	if *logConfigFile != "" {
		loaded, err := bplog.LoadConfig(*logConfigFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("failed to load logging config: %v", err))
			os.Exit(1)
		}
		logCfg = loaded
	}
	log, err := bplog.New(logCfg, ".")
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("failed to build logger: %v", err))
		os.Exit(1)
	}
	defer log.Close()

	log.Infof(color.CyanString("starting power balancer demo: %d node(s), %d package(s)/node, cap=%.1fW", *numNode, *numPkg, *jobCap))

	comm := tree.NewInProcessCommunicator(*numNode)
	root := agent.NewRootRole(comm, *numNode, *maxPower, *minPower, *maxPower, *numNode**numPkg)

	leaves := make([]*agent.LeafRole, *numNode)
	plats := make([]*platform.SimPlatform, *numNode)
	measurementWindow := 0.02
	bcfg := tuning.BalancerConfig(measurementWindow)

	for i := 0; i < *numNode; i++ {
		plats[i] = platform.NewSimPlatform()
		leaf, err := agent.NewLeafRole(plats[i], *numPkg, bcfg, *minPower, *jobCap)
		if err != nil {
			log.Fatalf("failed to build leaf %d: %v", i, err)
		}
		leaves[i] = leaf
	}

	if err := root.InjectCap(*jobCap); err != nil {
		log.Fatalf("rejected initial job-level cap: %v", err)
	}

	epochCounts := make([][]float64, *numNode)
	for i := range epochCounts {
		epochCounts[i] = make([]float64, *numPkg)
	}

	for cycle := 0; cycle < (*numCycles)*agent.NumStep; cycle++ {
		since := time.Now()
		if _, err := root.Descend(); err != nil {
			log.Fatalf("root descend failed: %v", err)
		}

		for i, leaf := range leaves {
			policy := <-comm.ChildPolicyChan(i)
			seedSimulatedEpoch(plats[i], epochCounts[i])

			sample, err := leaf.Tick(policy)
			if err != nil {
				log.Errorf("leaf %d tick failed: %v", i, err)
				continue
			}
			comm.ChildSampleChan(i) <- sample

			trace := leaf.Trace()
			if err := log.TraceTick(trace.AgentID, trace.StepCount, trace.PowerCap, trace.MaxEpochRuntime, trace.PowerSlack, trace.TotalPowerLimit); err != nil {
				log.Warnf("trace write failed: %v", err)
			}
		}

		children, err := comm.AscendUp(0)
		if err != nil {
			log.Fatalf("root ascend collection failed: %v", err)
		}
		agg, completed, err := root.Ascend(children)
		if err != nil {
			log.Fatalf("root ascend failed: %v", err)
		}
		if completed {
			log.Infof("step %s complete: max_epoch_runtime=%.3f sum_power_slack=%.2f min_power_headroom=%.2f",
				root.Step(), agg.MaxEpochRuntime, agg.SumPowerSlack, agg.MinPowerHeadroom)
		}

		agent.WaitInterval(since, tuning.WaitInterval())
	}

	log.Infof(color.GreenString("demo run complete"))
}

// seedSimulatedEpoch feeds each package a plausible epoch runtime/count
// so the demo has something to balance without real instrumentation.
// counts is the caller-owned per-package epoch counter, incremented in
// place so SimPlatform's "new epoch" detection sees a fresh count.
func seedSimulatedEpoch(p *platform.SimPlatform, counts []float64) {
	for i := range counts {
		counts[i]++
		p.SetSignal(platform.SignalEpochCount, platform.DomainPackage, i, counts[i])
		p.SetSignal(platform.SignalEpochRuntime, platform.DomainPackage, i, 1.0+0.1*rand.Float64())
		p.SetSignal(platform.SignalEpochRuntimeNetwork, platform.DomainPackage, i, 0)
		p.SetSignal(platform.SignalEpochRuntimeIgnore, platform.DomainPackage, i, 0)
	}
}
