package tree

import "sync"

// Communicator is the tree transport facade from spec.md section 6: a
// fixed-size numeric vector goes down to every child on DescendDown, and
// the per-child vectors reported back are collected on AscendUp.
// Delivery is reliable and ordered per edge; fragmentation is not this
// interface's concern.
type Communicator interface {
	// DescendDown pushes policy to every direct child of level and
	// returns nothing -- children pick it up via their own
	// Communicator instance on the other end of the edge.
	DescendDown(level int, policy PolicyVector) error
	// AscendUp blocks until every direct child of level has reported a
	// sample for this tick, then returns the collected vectors in
	// stable child order.
	AscendUp(level int) ([]SampleVector, error)
}

// InProcessCommunicator is the default Communicator used for
// single-process trees and tests: parent and child share memory and
// exchange vectors over buffered channels instead of a real network.
type InProcessCommunicator struct {
	mu       sync.Mutex
	children []chan PolicyVector
	samples  []chan SampleVector
}

// NewInProcessCommunicator builds a communicator for a node with the
// given number of direct children.
func NewInProcessCommunicator(numChildren int) *InProcessCommunicator {
	c := &InProcessCommunicator{
		children: make([]chan PolicyVector, numChildren),
		samples:  make([]chan SampleVector, numChildren),
	}
	for i := range c.children {
		c.children[i] = make(chan PolicyVector, 1)
		c.samples[i] = make(chan SampleVector, 1)
	}
	return c
}

// ChildPolicyChan returns the channel a simulated child at index i reads
// its descended policy from.
func (c *InProcessCommunicator) ChildPolicyChan(i int) <-chan PolicyVector {
	return c.children[i]
}

// ChildSampleChan returns the channel a simulated child at index i
// writes its ascended sample to.
func (c *InProcessCommunicator) ChildSampleChan(i int) chan<- SampleVector {
	return c.samples[i]
}

// DescendDown implements Communicator by publishing policy to every
// child channel.
func (c *InProcessCommunicator) DescendDown(_ int, policy PolicyVector) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.children {
		ch <- policy
	}
	return nil
}

// AscendUp implements Communicator by blocking on every child's sample
// channel in order.
func (c *InProcessCommunicator) AscendUp(_ int) ([]SampleVector, error) {
	out := make([]SampleVector, len(c.samples))
	for i, ch := range c.samples {
		out[i] = <-ch
	}
	return out, nil
}
