package platform

import (
	"fmt"
	"sync"

	"github.com/spdfg/powerbalancer/bperrors"
)

type signalKey struct {
	name   string
	domain Domain
	idx    int
}

// SimPlatform is an in-memory simulation of the platform facade,
// standing in for real RAPL/MSR access the way rapl-daemon/main.go
// stands in for direct /sys/class/powercap access with a simulated
// HTTP powercap endpoint one layer further out. Tests and the CLI demo
// set signal values directly with SetSignal and read
// back applied controls with AppliedControl.
type SimPlatform struct {
	mu sync.Mutex

	signals map[signalKey]float64
	pushedS map[Handle]signalKey
	pushedC map[Handle]signalKey
	staged  map[Handle]float64
	applied map[signalKey]float64
	nextH   Handle

	// ClipControl, if non-nil, is consulted on every WriteBatch/
	// WriteControl to simulate the platform clipping a requested
	// control value (e.g. a firmware-enforced minimum step).
	ClipControl func(name string, domain Domain, idx int, requested float64) float64

	// FailNextRead/FailNextWrite simulate a single transient platform
	// failure (spec.md section 7, TransientPlatform) on the next batch
	// call, then clear themselves.
	FailNextRead  bool
	FailNextWrite bool
}

// NewSimPlatform builds an empty simulation; call SetSignal to seed
// values before the agent under test reads them.
func NewSimPlatform() *SimPlatform {
	return &SimPlatform{
		signals: make(map[signalKey]float64),
		pushedS: make(map[Handle]signalKey),
		pushedC: make(map[Handle]signalKey),
		staged:  make(map[Handle]float64),
		applied: make(map[signalKey]float64),
	}
}

// SetSignal seeds (or updates) the value ReadBatch/ReadSignal will
// return for name/domain/idx.
func (p *SimPlatform) SetSignal(name string, domain Domain, idx int, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals[signalKey{name, domain, idx}] = value
}

// AppliedControlByName returns the last value actually applied
// (post-clip) for name/domain/idx -- a test/CLI convenience that does
// not require the caller to have kept the original Handle around.
func (p *SimPlatform) AppliedControlByName(name string, domain Domain, idx int) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied[signalKey{name, domain, idx}]
}

func (p *SimPlatform) PushSignal(name string, domain Domain, idx int) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextH++
	h := p.nextH
	p.pushedS[h] = signalKey{name, domain, idx}
	return h, nil
}

func (p *SimPlatform) Sample(h Handle) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key, ok := p.pushedS[h]
	if !ok {
		return 0, bperrors.New(bperrors.WrongRole, "sample called with unknown handle")
	}
	return p.signals[key], nil
}

func (p *SimPlatform) ReadBatch() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailNextRead {
		p.FailNextRead = false
		return bperrors.New(bperrors.TransientPlatform, "simulated platform read failure")
	}
	// Values already live in p.signals; ReadBatch is a no-op refresh in
	// the simulation, matching the real facade's semantics of "sample
	// returns whatever the last ReadBatch saw."
	return nil
}

func (p *SimPlatform) PushControl(name string, domain Domain, idx int) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextH++
	h := p.nextH
	p.pushedC[h] = signalKey{name, domain, idx}
	return h, nil
}

func (p *SimPlatform) Adjust(h Handle, value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pushedC[h]; !ok {
		return bperrors.New(bperrors.WrongRole, "adjust called with unknown handle")
	}
	p.staged[h] = value
	return nil
}

func (p *SimPlatform) WriteBatch() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailNextWrite {
		p.FailNextWrite = false
		return bperrors.New(bperrors.TransientPlatform, "simulated platform write failure")
	}
	for h, requested := range p.staged {
		key := p.pushedC[h]
		applied := requested
		if p.ClipControl != nil {
			applied = p.ClipControl(key.name, key.domain, key.idx, requested)
		}
		p.applied[key] = applied
	}
	p.staged = make(map[Handle]float64)
	return nil
}

func (p *SimPlatform) AppliedControl(h Handle) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key, ok := p.pushedC[h]
	if !ok {
		return 0, bperrors.New(bperrors.WrongRole, "appliedControl called with unknown handle")
	}
	return p.applied[key], nil
}

func (p *SimPlatform) ReadSignal(name string, domain Domain, idx int) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signals[signalKey{name, domain, idx}], nil
}

func (p *SimPlatform) WriteControl(name string, domain Domain, idx int, value float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := signalKey{name, domain, idx}
	applied := value
	if p.ClipControl != nil {
		applied = p.ClipControl(name, domain, idx, value)
	}
	p.applied[key] = applied
	return applied, nil
}

var _ PlatformIO = (*SimPlatform)(nil)

func (k signalKey) String() string {
	return fmt.Sprintf("%s[domain=%d idx=%d]", k.name, k.domain, k.idx)
}
