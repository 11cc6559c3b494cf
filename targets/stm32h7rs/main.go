//go:build stm32h7rs

package main

import (
	"machine"
	"time"

	"coreclock/core"
	"coreclock/protocol"
)

const (
	serialBaud       = 115200
	reportIntervalUS = 1000000
)

var (
	outputBuffer *protocol.ScratchOutput
	sequence     uint8
	reportTimer  core.Timer
	lastClock    uint32

	// Debug counters
	reportsSent uint32
	msgerrors   uint32
)

func main() {
	outputBuffer = protocol.NewScratchOutput()

	// Derive the core clock before anything that depends on it
	InitClock()

	err := machine.Serial.Configure(machine.UARTConfig{BaudRate: serialBaud})
	if err != nil {
		return
	}
	// Debug text shares the report port; the host decoder skips it as line noise
	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s))
		machine.Serial.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(core.BuildDebugEnabled())
	core.InitAsyncDebug()

	sendIdentify()

	initCycleCounter()
	lastClock = core.SystemCoreClock()
	reportTimer.WakeTime = cycles()
	reportTimer.Handler = reportEvent
	core.ScheduleTimer(&reportTimer)

	for {
		core.TimerDispatch(cycles())
		time.Sleep(time.Millisecond)
	}
}

// reportEvent sends one clock report and schedules the next one a report
// interval later, measured with the freshly derived clock
func reportEvent(t *core.Timer) (result uint8) {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			outputBuffer.Reset()
		}
		interval := core.TimerFromUS(reportIntervalUS)
		if interval == 0 {
			// Derived clock is 0 (PLL1 stopped), fall back to the nominal HSI rate
			interval = core.BoardOscillators.HSI
		}
		t.WakeTime += interval
		result = core.SF_RESCHEDULE
	}()

	report := captureReport()
	if report.CoreClock != lastClock {
		// Clocks were reconfigured since the last report
		lastClock = report.CoreClock
		core.PublishClockConstants("stm32h7rs")
		core.DebugClockTree(core.NewClockDeriver(core.MustRCC(), core.BoardOscillators).Derive())
	}
	sendFrame(func(o protocol.OutputBuffer) {
		protocol.EncodeClockReport(o, report)
	})
	reportsSent++
	return core.SF_RESCHEDULE
}

// sendIdentify streams the dictionary so the host learns the oscillator values
func sendIdentify() {
	dict := core.GetGlobalDictionary()
	offset := uint32(0)
	for {
		chunk := dict.GetChunk(offset, protocol.IdentifyChunkMax)
		sendFrame(func(o protocol.OutputBuffer) {
			protocol.EncodeIdentifyChunk(o, &protocol.IdentifyChunk{Offset: offset, Data: chunk})
		})
		// An empty chunk marks the end
		if len(chunk) == 0 {
			return
		}
		offset += uint32(len(chunk))
	}
}

// sendFrame encodes one frame and writes it to the serial port
func sendFrame(payload func(o protocol.OutputBuffer)) {
	if err := protocol.EncodeFrame(outputBuffer, sequence, payload); err != nil {
		msgerrors++
		outputBuffer.Reset()
		return
	}
	sequence++

	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := machine.Serial.Write(result[written:])
		if err != nil || n == 0 {
			msgerrors++
			break
		}
		written += n
	}
	outputBuffer.Reset()
}
