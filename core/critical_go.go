//go:build !tinygo

package core

// withInterruptsMasked just runs fn on the host; there is nothing to preempt it
func withInterruptsMasked(fn func()) {
	fn()
}
