package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coreclock/core"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, core.DefaultOscillators(), cfg.Oscillators)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Device)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 100*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coreclock.yaml")
	content := `
oscillators:
  hse: 25000000
serial:
  device: /dev/ttyUSB3
  read_timeout: 250ms
metrics:
  addr: ":9105"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, uint32(25000000), cfg.Oscillators.HSE)
	assert.Equal(t, uint32(core.DefaultHSIValue), cfg.Oscillators.HSI)
	assert.Equal(t, "/dev/ttyUSB3", cfg.Serial.Device)
	assert.Equal(t, 250*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, ":9105", cfg.Metrics.Addr)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CORECLOCK_OSCILLATORS_HSE", "16000000")
	t.Setenv("CORECLOCK_SERIAL_DEVICE", "/dev/ttyACM7")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, uint32(16000000), cfg.Oscillators.HSE)
	assert.Equal(t, "/dev/ttyACM7", cfg.Serial.Device)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oscillators.hse")
	assert.Contains(t, err.Error(), "oscillators.csi")
	assert.Contains(t, err.Error(), "serial.baud")
}
