package mcu

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coreclock/core"
	"coreclock/protocol"
)

// readCloser turns a byte stream into a port that reports EOF once drained
type readCloser struct {
	io.Reader
	closed bool
}

func (r *readCloser) Close() error {
	r.closed = true
	return nil
}

// failingPort returns a hard error on every read
type failingPort struct{}

func (failingPort) Read([]byte) (int, error) { return 0, errors.New("device unplugged") }
func (failingPort) Close() error             { return nil }

type frameStream struct {
	t   *testing.T
	seq uint8
	buf bytes.Buffer
}

func (s *frameStream) add(payload func(o protocol.OutputBuffer)) {
	out := protocol.NewScratchOutput()
	require.NoError(s.t, protocol.EncodeFrame(out, s.seq, payload))
	s.buf.Write(out.Result())
	s.seq++
}

func (s *frameStream) identify(dict []byte) {
	off := 0
	for {
		end := off + protocol.IdentifyChunkMax
		if end > len(dict) {
			end = len(dict)
		}
		chunk := &protocol.IdentifyChunk{Offset: uint32(off), Data: dict[off:end]}
		s.add(func(o protocol.OutputBuffer) { protocol.EncodeIdentifyChunk(o, chunk) })
		if off == len(dict) {
			return
		}
		off = end
	}
}

func (s *frameStream) report(r *protocol.ClockReport) {
	s.add(func(o protocol.OutputBuffer) { protocol.EncodeClockReport(o, r) })
}

func testDictionary() []byte {
	d := core.NewDictionary()
	d.AddConstant("MCU", "stm32h7rs")
	d.AddConstant("CLOCK_FREQ", uint32(600000000))
	d.AddConstant("HSE_VALUE", uint32(25000000))
	d.AddConstant("HSI_VALUE", uint32(64000000))
	d.AddConstant("CSI_VALUE", uint32(4000000))
	return d.Compressed()
}

func TestRunDeliversReportsAndDictionary(t *testing.T) {
	stream := &frameStream{t: t}
	stream.identify(testDictionary())
	stream.report(&protocol.ClockReport{CoreClock: 600000000})
	stream.report(&protocol.ClockReport{CoreClock: 300000000})

	port := &readCloser{Reader: &stream.buf}
	m := NewMCU(port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []uint32
	err := m.Run(ctx, func(seq uint8, r *protocol.ClockReport) {
		got = append(got, r.CoreClock)
		if len(got) == 2 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []uint32{600000000, 300000000}, got)

	dict := m.GetDictionary()
	require.NotNil(t, dict)
	assert.Equal(t, "coreclock-0.1.0", dict.Version)
	assert.Equal(t, "stm32h7rs", dict.Config["MCU"])

	osc, err := dict.Oscillators()
	require.NoError(t, err)
	assert.Equal(t, core.Oscillators{HSE: 25000000, HSI: 64000000, CSI: 4000000}, osc)

	freq, err := dict.ClockFreq()
	require.NoError(t, err)
	assert.Equal(t, uint32(600000000), freq)

	assert.Zero(t, m.FrameErrors())
	assert.Zero(t, m.Dropped())

	require.NoError(t, m.Close())
	assert.True(t, port.closed)
}

func TestRunPortError(t *testing.T) {
	m := NewMCU(failingPort{})
	err := m.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device unplugged")
}

func TestHandleCountsDroppedFrames(t *testing.T) {
	m := NewMCU(&readCloser{Reader: &bytes.Buffer{}})

	out := protocol.NewScratchOutput()
	protocol.EncodeClockReport(out, &protocol.ClockReport{CoreClock: 1})
	payload := append([]byte(nil), out.Result()...)

	for _, seq := range []uint8{14, 15, 0, 3, 4} {
		require.NoError(t, m.Handle(&protocol.Message{Sequence: seq, Payload: payload}, nil))
	}
	// 1 and 2 are missing
	assert.Equal(t, uint32(2), m.Dropped())
}

func TestHandleRejectsUnknownMessage(t *testing.T) {
	m := NewMCU(&readCloser{Reader: &bytes.Buffer{}})
	err := m.Handle(&protocol.Message{Payload: []byte{0x05}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown message id")
}

func TestIdentifyOffsetMismatch(t *testing.T) {
	m := NewMCU(&readCloser{Reader: &bytes.Buffer{}})

	require.NoError(t, m.handleIdentifyChunk(&protocol.IdentifyChunk{Offset: 0, Data: []byte(`{"ver`)}))
	err := m.handleIdentifyChunk(&protocol.IdentifyChunk{Offset: 40, Data: []byte(`sion"`)})
	require.Error(t, err)
	assert.Nil(t, m.GetDictionary())
}

func TestIdentifyPlainJSON(t *testing.T) {
	m := NewMCU(&readCloser{Reader: &bytes.Buffer{}})

	require.NoError(t, m.handleIdentifyChunk(&protocol.IdentifyChunk{Offset: 0, Data: []byte(`{"version":"v1","config":{}}`)}))
	require.NoError(t, m.handleIdentifyChunk(&protocol.IdentifyChunk{Offset: 28}))
	require.NotNil(t, m.GetDictionary())
	assert.Equal(t, "v1", m.GetDictionary().Version)
}

func TestIdentifyCorruptStream(t *testing.T) {
	m := NewMCU(&readCloser{Reader: &bytes.Buffer{}})

	require.NoError(t, m.handleIdentifyChunk(&protocol.IdentifyChunk{Offset: 0, Data: []byte{0x78, 0x9c, 0xff}}))
	err := m.handleIdentifyChunk(&protocol.IdentifyChunk{Offset: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decompress")
}

func TestDictionaryMissingConstant(t *testing.T) {
	d := &Dictionary{Config: map[string]string{"HSE_VALUE": "24000000", "HSI_VALUE": "bogus"}}
	_, err := d.Oscillators()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HSI_VALUE")

	_, err = d.ClockFreq()
	require.Error(t, err)
}
