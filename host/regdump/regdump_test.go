package regdump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coreclock/core"
)

const pll600 = `
board: nucleo-h7s3l8
oscillators:
  hse: 24000000
  hsi: 64000000
  csi: 4000000
rcc:
  cr: 0x00000025
  cfgr: 0x0000001b
  cdcfgr: 0
  pllckselr: 0x000000c2
  pllcfgr: 0x00000000
  pll1divr1: 0x0000012b
  pll1fracr: 0
`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(pll600))
	require.NoError(t, err)

	assert.Equal(t, "nucleo-h7s3l8", d.Board)
	require.NotNil(t, d.Oscillators)
	assert.Equal(t, core.DefaultOscillators(), *d.Oscillators)
	assert.Equal(t, Word(0x1b), d.RCC.CFGR)
	assert.Equal(t, Word(0x12b), d.RCC.PLL1DIVR1)

	snap := d.Snapshot()
	tree := core.NewClockDeriver(core.NewRCCBank(&snap), *d.Oscillators).Derive()
	assert.Equal(t, "PLL1", tree.SourceName)
	assert.Equal(t, uint32(600000000), tree.Core)
}

func TestParseDecimalAndMissingFields(t *testing.T) {
	d, err := Parse([]byte("rcc:\n  cfgr: 16\n"))
	require.NoError(t, err)
	assert.Nil(t, d.Oscillators)
	assert.Equal(t, Word(16), d.RCC.CFGR)
	assert.Zero(t, d.RCC.PLL1DIVR1)
}

func TestParseInvalidWord(t *testing.T) {
	_, err := Parse([]byte("rcc:\n  cfgr: 0xZZ\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0xZZ")

	_, err = Parse([]byte("rcc:\n  cfgr: 0x100000000\n"))
	require.Error(t, err)
}

func TestRoundTripSnapshot(t *testing.T) {
	var snap core.Snapshot
	snap.Set(core.RCC_CFGR, 0x18)
	snap.Set(core.RCC_PLL1FRACR, 0xFFFF8)

	data, err := Marshal(FromSnapshot(&snap))
	require.NoError(t, err)
	assert.Contains(t, string(data), "0x000ffff8")

	d, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, snap, d.Snapshot())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pll600), 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Word(0xc2), d.RCC.PLLCKSELR)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
