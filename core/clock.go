package core

import "math"

// System clock source encodings (CFGR.SWS)
const (
	SysClkHSI  = 0
	SysClkCSI  = 1
	SysClkHSE  = 2
	SysClkPLL1 = 3
)

// PLL1 input encodings (PLLCKSELR.PLLSRC)
const (
	PLLSrcHSI = 0
	PLLSrcCSI = 1
	PLLSrcHSE = 2
)

const (
	// fracNDivisor scales FRACN into a fraction of one multiplier step
	fracNDivisor = 0x2000

	// corePrescalerDivide is the first CPRE code that divides the clock
	corePrescalerDivide = 8

	// corePrescalerBase is subtracted from CPRE to get the shift, before adding one
	corePrescalerBase = 3
)

// ClockTree is every stage of one derivation, from the selected source to the core
type ClockTree struct {
	Source      uint32 // CFGR.SWS as read
	SourceName  string // "HSI", "CSI", "HSE", "PLL1", or "HSI" for reserved codes
	SysClk      uint32 // System clock before the core prescaler, Hz
	PLLSource   string // PLL input oscillator, empty unless PLL1 is selected
	PLLInput    uint32 // PLL input frequency before DIVM1, Hz
	DivM        uint32
	DivN        uint32
	DivP        uint32 // Raw field, the effective divider is DivP+1
	FracN       uint32 // Zero unless PLL1FRACEN is set
	VCO         float32
	Prescaler   uint32 // CDCFGR.CPRE as read
	CoreShift   uint32 // Right shift applied to SysClk
	Core        uint32 // Derived core clock, Hz
	PLLDisabled bool   // PLL1 selected but DIVM1 is zero
}

// ClockDeriver computes the core clock from RCC register state
type ClockDeriver struct {
	regs RCCReader
	osc  Oscillators
}

// NewClockDeriver creates a deriver over the given register view and oscillators
func NewClockDeriver(regs RCCReader, osc Oscillators) *ClockDeriver {
	return &ClockDeriver{regs: regs, osc: osc}
}

// Core returns just the derived core clock in Hz
func (d *ClockDeriver) Core() uint32 {
	return d.Derive().Core
}

// Derive walks the clock tree as configured by the registers right now.
// Reserved encodings fall back to HSI and a zero DIVM1 yields a zero clock.
func (d *ClockDeriver) Derive() ClockTree {
	var tree ClockTree

	tree.Source = d.regs.SystemClockSwitch()
	switch tree.Source {
	case SysClkCSI:
		tree.SourceName = "CSI"
		tree.SysClk = d.osc.CSI

	case SysClkHSE:
		tree.SourceName = "HSE"
		tree.SysClk = d.osc.HSE

	case SysClkPLL1:
		tree.SourceName = "PLL1"
		d.derivePLL(&tree)

	default:
		// SysClkHSI, or a reserved code
		tree.SourceName = "HSI"
		tree.SysClk = d.hsi()
	}

	tree.Prescaler = d.regs.CorePrescaler()
	if tree.Prescaler >= corePrescalerDivide {
		tree.CoreShift = tree.Prescaler - corePrescalerBase + 1
		tree.Core = tree.SysClk >> tree.CoreShift
	} else {
		tree.Core = tree.SysClk
	}

	return tree
}

// derivePLL fills the PLL1 stages of tree.
// All PLL math is single precision float32, truncated once at the end.
func (d *ClockDeriver) derivePLL(tree *ClockTree) {
	pllsrc := d.regs.PLLSource()
	tree.DivM = d.regs.PLLInputDivider()
	if d.regs.PLLFracEnabled() {
		tree.FracN = d.regs.PLLFracN()
	}

	if tree.DivM == 0 {
		tree.PLLDisabled = true
		tree.SysClk = 0
		return
	}

	switch pllsrc {
	case PLLSrcHSE:
		tree.PLLSource = "HSE"
		tree.PLLInput = d.osc.HSE
	case PLLSrcCSI:
		tree.PLLSource = "CSI"
		tree.PLLInput = d.osc.CSI
	default:
		tree.PLLSource = "HSI"
		tree.PLLInput = d.hsi()
	}

	tree.DivN = d.regs.PLLMultiplier()
	fracn := float32(tree.FracN)
	tree.VCO = (float32(tree.PLLInput) / float32(tree.DivM)) *
		(float32(tree.DivN) + fracn/float32(fracNDivisor) + float32(1))

	tree.DivP = d.regs.PLLOutputDivider()
	pllp := tree.DivP + 1
	sysclk := tree.VCO / float32(pllp)
	if sysclk >= float32(1<<32) {
		// Saturate like the Cortex-M7 VCVT instead of wrapping
		tree.SysClk = math.MaxUint32
	} else {
		tree.SysClk = uint32(sysclk)
	}
}

func (d *ClockDeriver) hsi() uint32 {
	return d.osc.HSI >> d.regs.HSIDivider()
}

// SystemCoreClockUpdate re-derives the core clock from the registered RCC
// reader and stores it for the timing helpers. Callers are expected to run
// it after any clock reconfiguration; the cached value is stale otherwise.
func SystemCoreClockUpdate() {
	freq := NewClockDeriver(MustRCC(), BoardOscillators).Core()
	setSystemCoreClock(freq)
	DebugPrintln("[CLOCK] core=" + utoa(freq))
}

// SystemCoreClock returns the last derived core clock in Hz.
// Before the first update it holds the nominal HSI frequency.
func SystemCoreClock() uint32 {
	return getSystemCoreClock()
}
