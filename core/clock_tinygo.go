//go:build tinygo

package core

import "sync/atomic"

// Written from main-line code, read from interrupt handlers. Last writer wins.
var systemCoreClockValue = BoardOscillators.HSI

// getSystemCoreClock returns the cached core clock
func getSystemCoreClock() uint32 {
	return atomic.LoadUint32(&systemCoreClockValue)
}

// setSystemCoreClock stores the cached core clock
func setSystemCoreClock(freq uint32) {
	atomic.StoreUint32(&systemCoreClockValue, freq)
}
