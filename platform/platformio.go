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

// Package platform is the external measurement/actuation facade from
// spec.md section 6: reading package energy signals and writing package
// power limit controls. The balancing core only ever talks to the
// PlatformIO interface; a real build wires in something that reads
// RAPL/MSR, a test or simulated run wires in SimPlatform.
package platform

// Handle identifies one pushed signal or control for fast repeated
// access, mirroring the original's push_signal/push_control handles.
type Handle int

// PlatformIO is the signal/control facade. Batch access (push + sample
// all at once / push + adjust all at once) lets an agent avoid a round
// trip per individual signal on every tick; one-shot access is used for
// init-time reads that happen once.
type PlatformIO interface {
	// PushSignal registers interest in a named signal on the given
	// domain/index and returns a handle for repeated Sample calls.
	PushSignal(name string, domain Domain, idx int) (Handle, error)
	// Sample returns the most recently read value for handle. Callers
	// must have called ReadBatch since PushSignal for this to be
	// current.
	Sample(h Handle) (float64, error)
	// ReadBatch refreshes every pushed signal in one shot.
	ReadBatch() error

	// PushControl registers interest in a named control on the given
	// domain/index and returns a handle for repeated Adjust calls.
	PushControl(name string, domain Domain, idx int) (Handle, error)
	// Adjust stages value to be written for handle on the next
	// WriteBatch.
	Adjust(h Handle, value float64) error
	// WriteBatch flushes every staged control value in one shot.
	WriteBatch() error
	// AppliedControl returns the value actually in effect for handle
	// after the last WriteBatch, which may differ from the requested
	// value if the platform clipped it.
	AppliedControl(h Handle) (float64, error)

	// ReadSignal performs a one-shot (unbatched) signal read, used for
	// init-time platform bounds (e.g. POWER_PACKAGE_MIN).
	ReadSignal(name string, domain Domain, idx int) (float64, error)
	// WriteControl performs a one-shot (unbatched) control write and
	// returns the value actually applied, which may differ from value
	// if the platform clipped it.
	WriteControl(name string, domain Domain, idx int, value float64) (float64, error)
}

// Domain is the platform topology scope a signal or control applies to.
type Domain int

const (
	DomainPackage Domain = iota
	DomainBoard
)

// Required signal names consumed by the core (spec.md section 6).
const (
	SignalEpochRuntime        = "EPOCH_RUNTIME"
	SignalEpochCount          = "EPOCH_COUNT"
	SignalEpochRuntimeNetwork = "EPOCH_RUNTIME_NETWORK"
	SignalEpochRuntimeIgnore  = "EPOCH_RUNTIME_IGNORE"

	SignalPowerPackageMin        = "POWER_PACKAGE_MIN"
	SignalPowerPackageMax        = "POWER_PACKAGE_MAX"
	SignalPowerPackageTDP        = "POWER_PACKAGE_TDP"
	SignalPowerPackageTimeWindow = "POWER_PACKAGE_TIME_WINDOW"
)

// Required control name consumed by the core.
const ControlPowerPackageLimit = "POWER_PACKAGE_LIMIT"
