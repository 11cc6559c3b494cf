//go:build tinygo

package core

import "runtime/interrupt"

// withInterruptsMasked runs fn with interrupts disabled and restores the
// previous mask afterwards
func withInterruptsMasked(fn func()) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	fn()
}
