package protocol

import "errors"

var ErrFrameTooLong = errors.New("frame exceeds maximum message length")

// EncodeFrame encodes one frame with the given sequence number into output.
// The sequence is masked into the low nibble and tagged with MessageDest.
func EncodeFrame(output OutputBuffer, seq uint8, frameData func(output OutputBuffer)) error {
	cursor := output.CurPosition()

	// Write header (length placeholder and sequence)
	output.Output([]byte{0, (seq & MessageSeqMask) | MessageDest})

	// Write frame contents
	frameData(output)

	// Update length field
	msgLen := len(output.DataSince(cursor)) + MessageTrailerSize
	if msgLen > MessageLengthMax {
		return ErrFrameTooLong
	}
	output.Update(cursor+MessagePositionLen, uint8(msgLen))

	// Calculate and write CRC
	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
	return nil
}

// FrameDecoder reassembles frames from a byte stream.
// On a bad length, sequence tag, sync byte or CRC it drops to the next sync
// byte and counts one error.
type FrameDecoder struct {
	input          *FifoBuffer
	isSynchronized bool
	errors         uint32
}

// NewFrameDecoder creates a decoder that starts out synchronized
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{
		input:          NewFifoBuffer(4 * MessageLengthMax),
		isSynchronized: true,
	}
}

// Errors returns the number of framing errors seen so far
func (d *FrameDecoder) Errors() uint32 {
	return d.errors
}

// Feed consumes raw bytes and returns every complete frame found
func (d *FrameDecoder) Feed(data []byte) []*Message {
	var msgs []*Message
	for len(data) > 0 {
		n := d.input.Write(data)
		data = data[n:]
		msgs = append(msgs, d.process()...)
		if n == 0 && d.input.Free() == 0 {
			// A full buffer with no frame in it is garbage
			d.input.Reset()
			d.desync()
		}
	}
	return msgs
}

// process parses frames from the input buffer
func (d *FrameDecoder) process() []*Message {
	var msgs []*Message
	data := d.input.Data()

	for len(data) > 0 {
		if !d.isSynchronized {
			// Look for sync byte
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}

			if syncPos >= 0 {
				data = data[syncPos+1:]
				d.isSynchronized = true
			} else {
				data = nil
			}
			continue
		}

		// Skip leading sync bytes
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.desync()
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			d.desync()
			continue
		}

		// Wait for full message
		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.desync()
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.desync()
			continue
		}

		payload := make([]byte, msgLen-MessageHeaderSize-MessageTrailerSize)
		copy(payload, data[MessageHeaderSize:msgLen-MessageTrailerSize])
		msgs = append(msgs, &Message{
			Length:   uint8(msgLen),
			Sequence: seq & MessageSeqMask,
			Payload:  payload,
			CRC:      frameCRC,
		})
		data = data[msgLen:]
	}

	// Remove consumed bytes from input buffer
	consumed := d.input.Available() - len(data)
	if consumed > 0 {
		d.input.Pop(consumed)
	}
	return msgs
}

func (d *FrameDecoder) desync() {
	d.isSynchronized = false
	d.errors++
}
