//go:build stm32h7rs

package main

import (
	"runtime/volatile"
	"unsafe"

	"coreclock/core"
	"coreclock/protocol"
)

// volatileRCC reads RCC words straight from the peripheral on every access.
// It never writes; clock configuration belongs to the boot code.
type volatileRCC struct{}

// ReadWord implements core.WordReader
func (volatileRCC) ReadWord(offset uint32) uint32 {
	reg := (*volatile.Register32)(unsafe.Pointer(uintptr(core.RCC_BASE + offset)))
	return reg.Get()
}

// InitClock installs the hardware RCC reader and derives the core clock
func InitClock() {
	core.SetRCCReader(core.NewRCCBank(volatileRCC{}))
	core.SystemCoreClockUpdate()
	core.PublishClockConstants("stm32h7rs")
}

// captureReport recomputes the core clock and snapshots the words it was read
// from. The two reads are not atomic with respect to a clock switch; the host
// re-derives from the snapshot and flags any disagreement.
func captureReport() *protocol.ClockReport {
	core.SystemCoreClockUpdate()
	return &protocol.ClockReport{
		CoreClock: core.SystemCoreClock(),
		Regs:      core.CaptureSnapshot(volatileRCC{}),
	}
}
