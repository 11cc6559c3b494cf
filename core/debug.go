package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Async debug output channel
	debugChan chan string
)

// Set at build time with -ldflags "-X coreclock/core.debugOutput=1" to turn
// debug output on from boot
var debugOutput string

// BuildDebugEnabled reports whether the firmware was built with debug output on.
// Accepts 1, true, on and yes; anything else is off.
func BuildDebugEnabled() bool {
	return parseFlag(debugOutput)
}

func parseFlag(s string) bool {
	switch s {
	case "1", "true", "TRUE", "True", "on", "ON", "yes", "YES":
		return true
	}
	return false
}

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if !debugEnabled || debugChan == nil {
		return
	}
	select {
	case debugChan <- msg:
	default:
		// Channel full, drop message
	}
}

// DebugClockTree writes every stage of a derivation on one line
func DebugClockTree(tree ClockTree) {
	if !debugEnabled {
		return
	}
	msg := "[CLOCK] src=" + tree.SourceName + " sysclk=" + utoa(tree.SysClk)
	if tree.Source == SysClkPLL1 {
		msg += " pllsrc=" + tree.PLLSource +
			" m=" + utoa(tree.DivM) +
			" n=" + utoa(tree.DivN) +
			" frac=" + utoa(tree.FracN) +
			" p=" + utoa(tree.DivP+1)
		if tree.PLLDisabled {
			msg += " (pll disabled)"
		}
	}
	msg += " cpre=" + utoa(tree.Prescaler) + " core=" + utoa(tree.Core)
	DebugAsync(msg)
}
