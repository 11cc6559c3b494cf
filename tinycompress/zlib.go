// Package tinycompress writes zlib streams made of stored (uncompressed)
// DEFLATE blocks. It needs no tables or hashing state, so it is cheap enough
// for firmware, and any zlib reader can inflate the result.
package tinycompress

import (
	"errors"
	"hash/adler32"
	"io"
)

const (
	// zlib header: deflate, 32K window, default level, FCHECK so the pair is a multiple of 31
	zlibCMF = 0x78
	zlibFLG = 0x9C

	// maxStoredBlock is the largest LEN a stored block header can carry
	maxStoredBlock = 0xFFFF
)

var ErrClosed = errors.New("tinycompress: write after close")

// Writer buffers everything written to it and emits the zlib stream on Close
type Writer struct {
	output io.Writer
	input  []byte
	closed bool
}

// NewWriter creates a Writer that sends the stream to w on Close
func NewWriter(w io.Writer) *Writer {
	return &Writer{output: w}
}

// NewWriterSize is NewWriter with the input buffer allocated up front.
// Firmware callers pass the expected payload size to avoid growing it later.
func NewWriterSize(w io.Writer, size int) *Writer {
	return &Writer{output: w, input: make([]byte, 0, size)}
}

// Write implements io.Writer
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	w.input = append(w.input, p...)
	return len(p), nil
}

// Close implements io.Closer and writes the stream
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if _, err := w.output.Write([]byte{zlibCMF, zlibFLG}); err != nil {
		return err
	}

	data := w.input
	for {
		n := len(data)
		final := byte(0)
		if n <= maxStoredBlock {
			final = 1
		} else {
			n = maxStoredBlock
		}

		length := uint16(n)
		nlength := ^length
		header := []byte{final, byte(length), byte(length >> 8), byte(nlength), byte(nlength >> 8)}
		if _, err := w.output.Write(header); err != nil {
			return err
		}
		if _, err := w.output.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
		if final == 1 {
			break
		}
	}

	sum := adler32.Checksum(w.input)
	_, err := w.output.Write([]byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)})
	return err
}

// StoredSize returns the stream length for n input bytes
func StoredSize(n int) int {
	blocks := n / maxStoredBlock
	if n%maxStoredBlock != 0 || n == 0 {
		blocks++
	}
	return 2 + blocks*5 + n + 4
}

// Compress wraps data in a zlib stream in one call
func Compress(data []byte) []byte {
	out := &sliceWriter{buf: make([]byte, 0, StoredSize(len(data)))}
	w := &Writer{output: out, input: data}
	// sliceWriter never fails
	_ = w.Close()
	return out.buf
}

type sliceWriter struct {
	buf []byte
}

func (s *sliceWriter) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}
