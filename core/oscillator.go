package core

// Nominal oscillator frequencies in Hz
const (
	DefaultHSEValue = 24000000 // High-Speed External oscillator
	DefaultHSIValue = 64000000 // High-Speed Internal oscillator
	DefaultCSIValue = 4000000  // Low-power Internal oscillator
)

// Board overrides, set at build time with
//
//	-ldflags "-X coreclock/core.hseValue=25000000"
//
// Empty or malformed values fall back to the nominal frequency.
var (
	hseValue string
	hsiValue string
	csiValue string
)

// Oscillators holds the three root oscillator frequencies in Hz
type Oscillators struct {
	HSE uint32 `yaml:"hse" mapstructure:"hse"`
	HSI uint32 `yaml:"hsi" mapstructure:"hsi"`
	CSI uint32 `yaml:"csi" mapstructure:"csi"`
}

// DefaultOscillators returns the nominal oscillator frequencies
func DefaultOscillators() Oscillators {
	return Oscillators{
		HSE: DefaultHSEValue,
		HSI: DefaultHSIValue,
		CSI: DefaultCSIValue,
	}
}

// BoardOscillators holds the oscillator frequencies this firmware was built for
var BoardOscillators = Oscillators{
	HSE: parseHz(hseValue, DefaultHSEValue),
	HSI: parseHz(hsiValue, DefaultHSIValue),
	CSI: parseHz(csiValue, DefaultCSIValue),
}

// parseHz parses a decimal frequency without pulling in strconv
func parseHz(s string, fallback uint32) uint32 {
	if s == "" {
		return fallback
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return fallback
		}
		v = v*10 + uint64(c-'0')
		if v > 0xFFFFFFFF {
			return fallback
		}
	}
	if v == 0 {
		return fallback
	}
	return uint32(v)
}
