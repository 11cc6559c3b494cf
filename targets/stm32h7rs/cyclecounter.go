//go:build stm32h7rs

package main

import (
	"runtime/volatile"
	"unsafe"
)

// Cortex-M7 debug unit registers
const (
	DEMCR          = 0xE000EDFC
	DEMCR_TRCENA   = 1 << 24
	DWT_CTRL       = 0xE0001000
	DWT_CTRL_CYCEN = 1 << 0
	DWT_CYCCNT     = 0xE0001004
)

var (
	demcr   = (*volatile.Register32)(unsafe.Pointer(uintptr(DEMCR)))
	dwtCtrl = (*volatile.Register32)(unsafe.Pointer(uintptr(DWT_CTRL)))
	cyccnt  = (*volatile.Register32)(unsafe.Pointer(uintptr(DWT_CYCCNT)))
)

// initCycleCounter starts the DWT cycle counter, which ticks at the core clock
func initCycleCounter() {
	demcr.SetBits(DEMCR_TRCENA)
	cyccnt.Set(0)
	dwtCtrl.SetBits(DWT_CTRL_CYCEN)
}

// cycles returns the free running core cycle count
func cycles() uint32 {
	return cyccnt.Get()
}
