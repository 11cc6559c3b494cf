//go:build !tinygo

package core

var systemCoreClock = BoardOscillators.HSI

// getSystemCoreClock returns the cached core clock (regular Go implementation)
func getSystemCoreClock() uint32 {
	return systemCoreClock
}

// setSystemCoreClock stores the cached core clock (regular Go implementation)
func setSystemCoreClock(freq uint32) {
	systemCoreClock = freq
}
