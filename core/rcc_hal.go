package core

// RCCReader is the read-only view of the reset and clock control fields the
// core clock is derived from. Every method returns the field value already
// shifted down to bit 0.
//
// Implementations must read the hardware on every call. No snapshot of the
// whole block is taken, so a clock switch that lands between two calls is
// observed as a mix of old and new fields.
type RCCReader interface {
	// SystemClockSwitch returns CFGR.SWS, the active system clock source
	SystemClockSwitch() uint32

	// HSIDivider returns CR.HSIDIV, expressed as a right shift of HSI
	HSIDivider() uint32

	// PLLSource returns PLLCKSELR.PLLSRC
	PLLSource() uint32

	// PLLInputDivider returns PLLCKSELR.DIVM1 (0 means PLL1 disabled)
	PLLInputDivider() uint32

	// PLLFracEnabled returns PLLCFGR.PLL1FRACEN
	PLLFracEnabled() bool

	// PLLFracN returns PLL1FRACR.FRACN, the fractional multiplier numerator
	PLLFracN() uint32

	// PLLMultiplier returns PLL1DIVR1.DIVN (stored as multiplier minus one)
	PLLMultiplier() uint32

	// PLLOutputDivider returns PLL1DIVR1.DIVP (stored as divider minus one)
	PLLOutputDivider() uint32

	// CorePrescaler returns CDCFGR.CPRE
	CorePrescaler() uint32
}

// Global singleton used by core code.
var rccReader RCCReader

// SetRCCReader is called by target-specific code to register its reader.
func SetRCCReader(r RCCReader) {
	rccReader = r
}

// MustRCC returns the configured reader or panics if missing.
func MustRCC() RCCReader {
	if rccReader == nil {
		panic("RCC reader not configured")
	}
	return rccReader
}
