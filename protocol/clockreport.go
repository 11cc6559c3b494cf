package protocol

import (
	"errors"

	"coreclock/core"
)

var (
	ErrUnexpectedMessage = errors.New("unexpected message id")
	ErrTrailingData      = errors.New("trailing data after message")
)

// IdentifyChunkMax is the largest dictionary piece that fits one frame
const IdentifyChunkMax = 40

// ClockReport is what the firmware sends after each recompute: the value it
// derived and the RCC words it read, so the host can check the derivation.
type ClockReport struct {
	CoreClock uint32
	Regs      core.Snapshot
}

// IdentifyChunk is a slice of the firmware dictionary at Offset
type IdentifyChunk struct {
	Offset uint32
	Data   []byte
}

// EncodeClockReport writes the report payload (including message id)
func EncodeClockReport(output OutputBuffer, r *ClockReport) {
	EncodeVLQUint(output, MsgClockReport)
	EncodeVLQUint(output, r.CoreClock)
	for _, w := range r.Regs {
		EncodeVLQUint(output, w)
	}
}

// EncodeIdentifyChunk writes a dictionary chunk payload (including message id)
func EncodeIdentifyChunk(output OutputBuffer, c *IdentifyChunk) {
	EncodeVLQUint(output, MsgIdentifyChunk)
	EncodeVLQUint(output, c.Offset)
	EncodeVLQBytes(output, c.Data)
}

// MessageID peeks the message id of a payload without consuming it
func MessageID(payload []byte) (uint32, error) {
	return DecodeVLQUint(&payload)
}

// DecodeClockReport parses a clock report payload
func DecodeClockReport(payload []byte) (*ClockReport, error) {
	id, err := DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	if id != MsgClockReport {
		return nil, ErrUnexpectedMessage
	}

	r := &ClockReport{}
	if r.CoreClock, err = DecodeVLQUint(&payload); err != nil {
		return nil, err
	}
	for i := range r.Regs {
		if r.Regs[i], err = DecodeVLQUint(&payload); err != nil {
			return nil, err
		}
	}
	if len(payload) != 0 {
		return nil, ErrTrailingData
	}
	return r, nil
}

// DecodeIdentifyChunk parses a dictionary chunk payload
func DecodeIdentifyChunk(payload []byte) (*IdentifyChunk, error) {
	id, err := DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	if id != MsgIdentifyChunk {
		return nil, ErrUnexpectedMessage
	}

	c := &IdentifyChunk{}
	if c.Offset, err = DecodeVLQUint(&payload); err != nil {
		return nil, err
	}
	data, err := DecodeVLQBytes(&payload)
	if err != nil {
		return nil, err
	}
	if len(payload) != 0 {
		return nil, ErrTrailingData
	}
	c.Data = make([]byte, len(data))
	copy(c.Data, data)
	return c, nil
}
