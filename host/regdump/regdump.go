// Package regdump reads and writes RCC register dumps captured with a debugger,
// for example `mdw 0x58024400 14` in OpenOCD, as YAML.
package regdump

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"coreclock/core"
)

// Word is a register value that accepts hex (0x...), octal or decimal in YAML
type Word uint32

// UnmarshalYAML implements yaml.Unmarshaler
func (w *Word) UnmarshalYAML(value *yaml.Node) error {
	v, err := strconv.ParseUint(value.Value, 0, 32)
	if err != nil {
		return fmt.Errorf("line %d: invalid register value %q: %w", value.Line, value.Value, err)
	}
	*w = Word(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler, writing hex
func (w Word) MarshalYAML() (interface{}, error) {
	return fmt.Sprintf("0x%08x", uint32(w)), nil
}

// Registers holds the RCC words read by the clock deriver
type Registers struct {
	CR        Word `yaml:"cr"`
	CFGR      Word `yaml:"cfgr"`
	CDCFGR    Word `yaml:"cdcfgr"`
	PLLCKSELR Word `yaml:"pllckselr"`
	PLLCFGR   Word `yaml:"pllcfgr"`
	PLL1DIVR1 Word `yaml:"pll1divr1"`
	PLL1FRACR Word `yaml:"pll1fracr"`
}

// Dump is one captured register state plus optional board oscillators
type Dump struct {
	Board       string            `yaml:"board,omitempty"`
	Oscillators *core.Oscillators `yaml:"oscillators,omitempty"`
	RCC         Registers         `yaml:"rcc"`
}

// Snapshot converts the dump to the word layout used by the deriver
func (d *Dump) Snapshot() core.Snapshot {
	var s core.Snapshot
	s.Set(core.RCC_CR, uint32(d.RCC.CR))
	s.Set(core.RCC_CFGR, uint32(d.RCC.CFGR))
	s.Set(core.RCC_CDCFGR, uint32(d.RCC.CDCFGR))
	s.Set(core.RCC_PLLCKSELR, uint32(d.RCC.PLLCKSELR))
	s.Set(core.RCC_PLLCFGR, uint32(d.RCC.PLLCFGR))
	s.Set(core.RCC_PLL1DIVR1, uint32(d.RCC.PLL1DIVR1))
	s.Set(core.RCC_PLL1FRACR, uint32(d.RCC.PLL1FRACR))
	return s
}

// FromSnapshot builds a dump from captured words
func FromSnapshot(s *core.Snapshot) *Dump {
	return &Dump{
		RCC: Registers{
			CR:        Word(s.ReadWord(core.RCC_CR)),
			CFGR:      Word(s.ReadWord(core.RCC_CFGR)),
			CDCFGR:    Word(s.ReadWord(core.RCC_CDCFGR)),
			PLLCKSELR: Word(s.ReadWord(core.RCC_PLLCKSELR)),
			PLLCFGR:   Word(s.ReadWord(core.RCC_PLLCFGR)),
			PLL1DIVR1: Word(s.ReadWord(core.RCC_PLL1DIVR1)),
			PLL1FRACR: Word(s.ReadWord(core.RCC_PLL1FRACR)),
		},
	}
}

// Parse decodes a YAML register dump
func Parse(data []byte) (*Dump, error) {
	var d Dump
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing register dump: %w", err)
	}
	return &d, nil
}

// Load reads a YAML register dump from path
func Load(path string) (*Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading register dump: %w", err)
	}
	return Parse(data)
}

// Marshal encodes a dump as YAML
func Marshal(d *Dump) ([]byte, error) {
	return yaml.Marshal(d)
}
