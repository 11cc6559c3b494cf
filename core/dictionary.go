package core

import (
	"sort"
	"sync"

	"coreclock/tinycompress"
)

// Constant represents a firmware constant exposed to the host
type Constant struct {
	Name  string
	Value interface{} // string, bool or an integer type
}

// Dictionary holds the constants the firmware reports to the host
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]*Constant
	version       string
	buildVersions string
	cachedDict    []byte
	cachedZlib    []byte
}

// Dictionary identity reported when no -ldflags override is given
const (
	DefaultFirmwareVersion = "coreclock-0.1.0"
	DefaultBuildVersions   = "go-tinygo"
)

// Set at build time, e.g.
//
//	tinygo build -ldflags "-X coreclock/core.firmwareVersion=v1.2.0-3-gabcdef"
var (
	firmwareVersion       string
	firmwareBuildVersions string
)

var globalDictionary = NewDictionary()

// NewDictionary creates a new dictionary
func NewDictionary() *Dictionary {
	return &Dictionary{
		constants:     make(map[string]*Constant),
		version:       stringOr(firmwareVersion, DefaultFirmwareVersion),
		buildVersions: stringOr(firmwareBuildVersions, DefaultBuildVersions),
	}
}

// RegisterConstant registers a constant in the global dictionary
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

// PublishClockConstants registers the oscillator values and the current core
// clock. Call again after SystemCoreClockUpdate to refresh CLOCK_FREQ.
func PublishClockConstants(mcu string) {
	RegisterConstant("MCU", mcu)
	RegisterConstant("CLOCK_FREQ", SystemCoreClock())
	RegisterConstant("HSE_VALUE", BoardOscillators.HSE)
	RegisterConstant("HSI_VALUE", BoardOscillators.HSI)
	RegisterConstant("CSI_VALUE", BoardOscillators.CSI)
}

// AddConstant adds or replaces a constant and drops any cached output
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = &Constant{
		Name:  name,
		Value: value,
	}
	d.cachedDict = nil
	d.cachedZlib = nil
}

// Constant returns the string form of a registered constant
func (d *Dictionary) Constant(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.constants[name]
	if !ok {
		return "", false
	}
	return valueToString(c.Value), true
}

// Generate returns the dictionary in Klipper's JSON layout, building it on first use
func (d *Dictionary) Generate() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cachedDict == nil {
		d.cachedDict = d.buildJSONLocked()
	}
	return d.cachedDict
}

// buildJSONLocked builds the JSON dictionary (caller must hold lock)
// Values are plain strings or numbers with no characters that need escaping
func (d *Dictionary) buildJSONLocked() []byte {
	result := make([]byte, 0, 256)

	result = append(result, `{"version":"`...)
	result = append(result, d.version...)
	result = append(result, `","build_versions":"`...)
	result = append(result, d.buildVersions...)
	result = append(result, `","config":{`...)

	names := make([]string, 0, len(d.constants))
	for name := range d.constants {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		if i > 0 {
			result = append(result, ',')
		}
		result = append(result, '"')
		result = append(result, name...)
		result = append(result, `":"`...)
		result = append(result, valueToString(d.constants[name].Value)...)
		result = append(result, '"')
	}
	result = append(result, `}}`...)
	return result
}

// Compressed returns the JSON dictionary wrapped in a zlib stream, as sent
// during identify
func (d *Dictionary) Compressed() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cachedZlib == nil {
		if d.cachedDict == nil {
			d.cachedDict = d.buildJSONLocked()
		}
		d.cachedZlib = tinycompress.Compress(d.cachedDict)
		DebugPrintln("[DICT] " + itoa(len(d.cachedDict)) + " bytes, " + itoa(len(d.cachedZlib)) + " on the wire")
	}
	return d.cachedZlib
}

// GetChunk returns a copy of up to count compressed dictionary bytes starting at offset
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Compressed()
	if offset >= uint32(len(data)) {
		return []byte{}
	}

	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}

	// Copy so the caller never aliases the cached dictionary
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// GetGlobalDictionary returns the global dictionary instance
func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}
