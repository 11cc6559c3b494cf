package core

import "math"

// Timing helpers derived from the cached core clock.
// They never read RCC directly; call SystemCoreClockUpdate after changing clocks.

// SysTick reload register is 24 bits wide
const sysTickReloadMax = 0xFFFFFF

// TimerFromUS converts microseconds to core clock cycles.
// Intervals longer than the 32-bit cycle counter can hold (about 7.1s at
// 600MHz) return math.MaxUint32.
func TimerFromUS(us uint32) uint32 {
	ticks := uint64(us) * uint64(SystemCoreClock()) / 1000000
	if ticks > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ticks)
}

// TimerToUS converts core clock cycles to microseconds
// Returns 0 while the clock is reported as invalid (zero)
func TimerToUS(ticks uint32) uint32 {
	freq := SystemCoreClock()
	if freq == 0 {
		return 0
	}
	return uint32(uint64(ticks) * 1000000 / uint64(freq))
}

// CyclesFromNS converts nanoseconds to core clock cycles, rounding up so a
// busy-wait never comes out shorter than requested
func CyclesFromNS(ns uint32) uint32 {
	cycles := uint64(ns)*uint64(SystemCoreClock()) + 999999999
	return uint32(cycles / 1000000000)
}

// BaudDivisor returns the USART BRR value for 16x oversampling at the given baud
// rate, rounded to nearest. Returns 0 for a zero baud rate or clock.
func BaudDivisor(baud uint32) uint32 {
	freq := SystemCoreClock()
	if baud == 0 || freq == 0 {
		return 0
	}
	return (freq + baud/2) / baud
}

// SysTickReload returns the SysTick reload value for an interrupt rate of hz,
// clamped to the 24-bit counter. Returns 0 if the rate cannot be produced.
func SysTickReload(hz uint32) uint32 {
	freq := SystemCoreClock()
	if hz == 0 || freq < hz {
		return 0
	}
	reload := freq/hz - 1
	if reload > sysTickReloadMax {
		reload = sysTickReloadMax
	}
	return reload
}
