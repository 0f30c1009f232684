package progress

import "sync/atomic"

// CancelFlag is a one-way cancellation signal. It goes from unset to set once
// and never resets. The zero value is ready to use.
type CancelFlag struct {
	set atomic.Bool
}

// Cancel raises the flag. It returns true only for the call that raised it.
func (c *CancelFlag) Cancel() bool {
	return c.set.CompareAndSwap(false, true)
}

// IsSet reports whether the flag has been raised
func (c *CancelFlag) IsSet() bool {
	return c.set.Load()
}
