package mcu

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"coreclock/core"
	"coreclock/host/serial"
	"coreclock/protocol"
)

// ReportHandler receives every clock report along with its frame sequence
type ReportHandler func(seq uint8, report *protocol.ClockReport)

// MCU tracks the report stream from one microcontroller
type MCU struct {
	port    io.ReadCloser
	decoder *protocol.FrameDecoder

	// Dictionary data
	dictBuf    bytes.Buffer
	dictionary *Dictionary

	// Sequence tracking
	lastSeq int
	dropped uint32
}

// Dictionary represents the parsed firmware dictionary
type Dictionary struct {
	Version       string            `json:"version"`
	BuildVersions string            `json:"build_versions"`
	Config        map[string]string `json:"config"`
}

// NewMCU wraps an already open port
func NewMCU(port io.ReadCloser) *MCU {
	return &MCU{
		port:    port,
		decoder: protocol.NewFrameDecoder(),
		lastSeq: -1,
	}
}

// Connect opens the serial port described by cfg
func Connect(cfg *serial.Config) (*MCU, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return NewMCU(port), nil
}

// Close closes the connection to the MCU
func (m *MCU) Close() error {
	return m.port.Close()
}

// Run reads frames until ctx is cancelled or the port fails.
// Read timeouts surface as io.EOF from the port and are retried.
func (m *MCU) Run(ctx context.Context, onReport ReportHandler) error {
	buffer := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := m.port.Read(buffer)
		if n > 0 {
			for _, msg := range m.decoder.Feed(buffer[:n]) {
				if err := m.Handle(msg, onReport); err != nil {
					log.Warningf("dropping message seq=%d: %v", msg.Sequence, err)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return fmt.Errorf("reading from MCU: %w", err)
		}
	}
}

// Handle dispatches one decoded frame
func (m *MCU) Handle(msg *protocol.Message, onReport ReportHandler) error {
	m.trackSequence(msg.Sequence)

	id, err := protocol.MessageID(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode message id: %w", err)
	}

	switch id {
	case protocol.MsgClockReport:
		report, err := protocol.DecodeClockReport(msg.Payload)
		if err != nil {
			return fmt.Errorf("failed to decode clock report: %w", err)
		}
		if onReport != nil {
			onReport(msg.Sequence, report)
		}
		return nil

	case protocol.MsgIdentifyChunk:
		chunk, err := protocol.DecodeIdentifyChunk(msg.Payload)
		if err != nil {
			return fmt.Errorf("failed to decode identify chunk: %w", err)
		}
		return m.handleIdentifyChunk(chunk)

	default:
		return fmt.Errorf("unknown message id 0x%02x", id)
	}
}

// handleIdentifyChunk appends a dictionary chunk; an empty chunk completes it
func (m *MCU) handleIdentifyChunk(chunk *protocol.IdentifyChunk) error {
	if chunk.Offset == 0 {
		// Firmware restarted, begin a fresh dictionary
		m.dictBuf.Reset()
	}
	if chunk.Offset != uint32(m.dictBuf.Len()) {
		m.dictBuf.Reset()
		return fmt.Errorf("dictionary offset mismatch: expected %d, got %d", m.dictBuf.Len(), chunk.Offset)
	}
	if len(chunk.Data) > 0 {
		m.dictBuf.Write(chunk.Data)
		return nil
	}

	data, err := inflate(m.dictBuf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to decompress dictionary: %w", err)
	}

	dict := &Dictionary{}
	if err := json.Unmarshal(data, dict); err != nil {
		return fmt.Errorf("failed to unmarshal dictionary: %w", err)
	}
	m.dictionary = dict
	log.Debugf("dictionary received: version=%s clock=%s", dict.Version, dict.Config["CLOCK_FREQ"])
	return nil
}

// inflate undoes the firmware's zlib wrapping; plain JSON passes through
func inflate(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] == '{' {
		return data, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// trackSequence counts frames lost between consecutive sequence numbers
func (m *MCU) trackSequence(seq uint8) {
	if m.lastSeq >= 0 {
		expected := uint8(m.lastSeq+1) & protocol.MessageSeqMask
		if seq != expected {
			m.dropped += uint32((seq - expected) & protocol.MessageSeqMask)
		}
	}
	m.lastSeq = int(seq)
}

// GetDictionary returns the parsed dictionary, or nil before identify completes
func (m *MCU) GetDictionary() *Dictionary {
	return m.dictionary
}

// FrameErrors returns the number of corrupt frames skipped
func (m *MCU) FrameErrors() uint32 {
	return m.decoder.Errors()
}

// Dropped returns the number of frames missing from the sequence
func (m *MCU) Dropped() uint32 {
	return m.dropped
}

// Oscillators returns the oscillator values the firmware was built with
func (d *Dictionary) Oscillators() (core.Oscillators, error) {
	var osc core.Oscillators
	var err error
	if osc.HSE, err = d.uint32Constant("HSE_VALUE"); err != nil {
		return osc, err
	}
	if osc.HSI, err = d.uint32Constant("HSI_VALUE"); err != nil {
		return osc, err
	}
	if osc.CSI, err = d.uint32Constant("CSI_VALUE"); err != nil {
		return osc, err
	}
	return osc, nil
}

// ClockFreq returns the CLOCK_FREQ constant reported at identify time
func (d *Dictionary) ClockFreq() (uint32, error) {
	return d.uint32Constant("CLOCK_FREQ")
}

func (d *Dictionary) uint32Constant(name string) (uint32, error) {
	s, ok := d.Config[name]
	if !ok {
		return 0, fmt.Errorf("dictionary has no %s", name)
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("dictionary %s=%q: %w", name, s, err)
	}
	return uint32(v), nil
}
