package tinycompress

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"
)

func inflate(t *testing.T, stream []byte) []byte {
	t.Helper()
	r, err := zlib.NewReader(bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("zlib header rejected: %v", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("inflate failed: %v", err)
	}
	return out
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write([]byte(`{"version":"coreclock-0.1.0",`))
	w.Write([]byte(`"config":{"CLOCK_FREQ":"600000000"}}`))
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := `{"version":"coreclock-0.1.0","config":{"CLOCK_FREQ":"600000000"}}`
	if got := string(inflate(t, buf.Bytes())); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if buf.Len() != StoredSize(len(want)) {
		t.Errorf("stream is %d bytes, StoredSize says %d", buf.Len(), StoredSize(len(want)))
	}
}

func TestCompressSizes(t *testing.T) {
	for _, n := range []int{0, 1, maxStoredBlock, maxStoredBlock + 1, 3*maxStoredBlock + 17} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i * 7)
		}
		stream := Compress(data)
		if len(stream) != StoredSize(n) {
			t.Errorf("n=%d: stream %d bytes, want %d", n, len(stream), StoredSize(n))
		}
		if got := inflate(t, stream); !bytes.Equal(got, data) {
			t.Errorf("n=%d: round trip mismatch", n)
		}
	}
}

func TestWriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriterSize(&buf, 64)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("x")); err != ErrClosed {
		t.Errorf("got %v, want ErrClosed", err)
	}
	// Second close writes nothing more
	n := buf.Len()
	w.Close()
	if buf.Len() != n {
		t.Error("Close wrote twice")
	}
}
