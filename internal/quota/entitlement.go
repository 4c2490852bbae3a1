package quota

import "sync/atomic"

// Entitlement is the capability gate that exempts a caller from the daily limit.
type Entitlement interface {
	Unlimited() bool
}

// EntitlementFunc adapts a function to Entitlement.
type EntitlementFunc func() bool

// Unlimited implements Entitlement.
func (f EntitlementFunc) Unlimited() bool { return f() }

// Capability is a mutable Entitlement, updated when subscription status changes.
type Capability struct {
	unlimited atomic.Bool
}

// NewCapability returns a Capability with the given initial state.
func NewCapability(unlimited bool) *Capability {
	c := &Capability{}
	c.unlimited.Store(unlimited)
	return c
}

// Unlimited implements Entitlement.
func (c *Capability) Unlimited() bool { return c.unlimited.Load() }

// Set updates the capability.
func (c *Capability) Set(unlimited bool) { c.unlimited.Store(unlimited) }
