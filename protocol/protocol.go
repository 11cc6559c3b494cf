// Package protocol implements the framing used to report clock state from the MCU.
// Frames follow the Klipper message block layout so the same tooling can decode them.
package protocol

// Frame layout: [len][seq][payload...][crc16 hi][crc16 lo][sync]
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	// Message sequence masks
	MessageSeqMask = 0x0F
)

// Message IDs carried as the first VLQ of every payload
const (
	MsgClockReport   = 0x40 // core clock plus the RCC words it was derived from
	MsgIdentifyChunk = 0x41 // piece of the firmware dictionary
)

// Message represents one decoded frame
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // Frame data without header/trailer
	CRC      uint16
}
