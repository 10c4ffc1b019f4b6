package context

import "errors"

// ErrNoScheduler is returned when an invocation requested as an asynchronous
// continuation has no AsyncScheduler to hand it to.
var ErrNoScheduler = errors.New("no async scheduler configured")

// failureCell is a write-once failure slot.
type failureCell struct {
	err error
	set bool
}

// Set stores err unless a failure was stored before. It reports whether err
// was stored.
func (c *failureCell) Set(err error) bool {
	if c.set {
		return false
	}

	c.err = err
	c.set = true

	return true
}

// Get returns the stored failure, or nil.
func (c *failureCell) Get() error {
	return c.err
}

// IsSet reports whether a failure was stored.
func (c *failureCell) IsSet() bool {
	return c.set
}
