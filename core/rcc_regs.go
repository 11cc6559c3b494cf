package core

// STM32H7RS RCC Register Definitions
// Based on RM0477 (STM32H7Rx/7Sx reference manual), section "Reset and clock control"

// RCC block base address (AHB4)
const RCC_BASE = 0x58024400

// RCC register offsets used for clock derivation
const (
	RCC_CR        = 0x000 // Source control register
	RCC_CFGR      = 0x010 // Clock configuration register
	RCC_CDCFGR    = 0x018 // CPU domain clock configuration register
	RCC_PLLCKSELR = 0x028 // PLLs clock source selection register
	RCC_PLLCFGR   = 0x02C // PLLs configuration register
	RCC_PLL1DIVR1 = 0x030 // PLL1 dividers configuration register 1
	RCC_PLL1FRACR = 0x034 // PLL1 fractional divider register
)

// RCCWordOffsets lists the registers above in wire/report order.
var RCCWordOffsets = [...]uint32{
	RCC_CR,
	RCC_CFGR,
	RCC_CDCFGR,
	RCC_PLLCKSELR,
	RCC_PLLCFGR,
	RCC_PLL1DIVR1,
	RCC_PLL1FRACR,
}

// RCCWordCount is the number of registers read by the clock deriver
const RCCWordCount = len(RCCWordOffsets)

// Bit field positions and masks
const (
	RCC_CR_HSIDIV_Pos = 3
	RCC_CR_HSIDIV     = 0x3 << RCC_CR_HSIDIV_Pos

	RCC_CFGR_SWS_Pos = 3
	RCC_CFGR_SWS     = 0x7 << RCC_CFGR_SWS_Pos

	RCC_CDCFGR_CPRE_Pos = 0
	RCC_CDCFGR_CPRE     = 0xF << RCC_CDCFGR_CPRE_Pos

	RCC_PLLCKSELR_PLLSRC_Pos = 0
	RCC_PLLCKSELR_PLLSRC     = 0x3 << RCC_PLLCKSELR_PLLSRC_Pos
	RCC_PLLCKSELR_DIVM1_Pos  = 4
	RCC_PLLCKSELR_DIVM1      = 0x3F << RCC_PLLCKSELR_DIVM1_Pos

	RCC_PLLCFGR_PLL1FRACEN = 0x1 << 0

	RCC_PLL1DIVR1_DIVN_Pos = 0
	RCC_PLL1DIVR1_DIVN     = 0x1FF << RCC_PLL1DIVR1_DIVN_Pos
	RCC_PLL1DIVR1_DIVP_Pos = 9
	RCC_PLL1DIVR1_DIVP     = 0x7F << RCC_PLL1DIVR1_DIVP_Pos

	RCC_PLL1FRACR_FRACN_Pos = 3
	RCC_PLL1FRACR_FRACN     = 0x1FFF << RCC_PLL1FRACR_FRACN_Pos
)

// WordReader reads one 32-bit RCC register by its offset from RCC_BASE
type WordReader interface {
	ReadWord(offset uint32) uint32
}

// RCCBank decodes RCC bit fields on top of a word-level register source.
// Each field accessor performs its own register read.
type RCCBank struct {
	words WordReader
}

// NewRCCBank wraps a word source as an RCCReader
func NewRCCBank(words WordReader) *RCCBank {
	return &RCCBank{words: words}
}

func (b *RCCBank) field(offset, mask, pos uint32) uint32 {
	return (b.words.ReadWord(offset) & mask) >> pos
}

func (b *RCCBank) SystemClockSwitch() uint32 {
	return b.field(RCC_CFGR, RCC_CFGR_SWS, RCC_CFGR_SWS_Pos)
}

func (b *RCCBank) HSIDivider() uint32 {
	return b.field(RCC_CR, RCC_CR_HSIDIV, RCC_CR_HSIDIV_Pos)
}

func (b *RCCBank) PLLSource() uint32 {
	return b.field(RCC_PLLCKSELR, RCC_PLLCKSELR_PLLSRC, RCC_PLLCKSELR_PLLSRC_Pos)
}

func (b *RCCBank) PLLInputDivider() uint32 {
	return b.field(RCC_PLLCKSELR, RCC_PLLCKSELR_DIVM1, RCC_PLLCKSELR_DIVM1_Pos)
}

func (b *RCCBank) PLLFracEnabled() bool {
	return b.words.ReadWord(RCC_PLLCFGR)&RCC_PLLCFGR_PLL1FRACEN != 0
}

func (b *RCCBank) PLLFracN() uint32 {
	return b.field(RCC_PLL1FRACR, RCC_PLL1FRACR_FRACN, RCC_PLL1FRACR_FRACN_Pos)
}

func (b *RCCBank) PLLMultiplier() uint32 {
	return b.field(RCC_PLL1DIVR1, RCC_PLL1DIVR1_DIVN, RCC_PLL1DIVR1_DIVN_Pos)
}

func (b *RCCBank) PLLOutputDivider() uint32 {
	return b.field(RCC_PLL1DIVR1, RCC_PLL1DIVR1_DIVP, RCC_PLL1DIVR1_DIVP_Pos)
}

func (b *RCCBank) CorePrescaler() uint32 {
	return b.field(RCC_CDCFGR, RCC_CDCFGR_CPRE, RCC_CDCFGR_CPRE_Pos)
}

// Snapshot is a captured copy of the RCC words, indexed in RCCWordOffsets order.
// Used by host tools and tests in place of live hardware.
type Snapshot [RCCWordCount]uint32

// ReadWord implements WordReader. Offsets outside the captured set read as zero.
func (s *Snapshot) ReadWord(offset uint32) uint32 {
	if i := wordIndex(offset); i >= 0 {
		return s[i]
	}
	return 0
}

// Set stores a register value by offset. Unknown offsets are ignored.
func (s *Snapshot) Set(offset, value uint32) {
	if i := wordIndex(offset); i >= 0 {
		s[i] = value
	}
}

// CaptureSnapshot copies every RCC word from a live source. Interrupts are
// masked for the copy so a handler cannot switch clocks between two words.
// The deriver itself reads fields one at a time with no such guard.
func CaptureSnapshot(words WordReader) Snapshot {
	var s Snapshot
	withInterruptsMasked(func() {
		for i, off := range RCCWordOffsets {
			s[i] = words.ReadWord(off)
		}
	})
	return s
}

func wordIndex(offset uint32) int {
	for i, off := range RCCWordOffsets {
		if off == offset {
			return i
		}
	}
	return -1
}
