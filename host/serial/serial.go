package serial

import (
	"io"
	"time"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory pipes (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string `mapstructure:"device"`

	// Baud rate (USB CDC ignores this)
	Baud int `mapstructure:"baud"`

	// Read timeout (0 = blocking). Keep it short so readers can notice cancellation.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// DefaultConfig returns the configuration matching the firmware UART setup
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}
