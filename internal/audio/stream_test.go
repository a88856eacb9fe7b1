package audio

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
)

type rampSource struct {
	next    float32
	done    bool
	calls   int
	written int
}

func (s *rampSource) Process(dst []float32) {
	s.calls++
	for i := range dst {
		dst[i] = s.next
		s.next += 1.0 / 1024.0
	}
	s.written += len(dst)
}

func (s *rampSource) Finished() bool { return s.done }

func TestStreamReaderEncodesFloat32LE(t *testing.T) {
	src := &rampSource{}
	r := NewStreamReader(src)

	buf := make([]byte, 64) // 8 frames
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if n != 64 {
		t.Fatalf("read %d bytes, want 64", n)
	}
	if src.written != 16 {
		t.Fatalf("source produced %d samples, want 16", src.written)
	}

	for i := 0; i < 16; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		want := float32(i) / 1024.0
		if got != want {
			t.Fatalf("sample %d: got %f, want %f", i, got, want)
		}
	}
}

func TestStreamReaderPartialFrameRequest(t *testing.T) {
	r := NewStreamReader(&rampSource{})
	n, err := r.Read(make([]byte, 7)) // less than one frame
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 bytes for a sub-frame read, got %d", n)
	}
}

func TestStreamReaderSignalsEOFWhenFinished(t *testing.T) {
	src := &rampSource{}
	r := NewStreamReader(src)

	if _, err := r.Read(make([]byte, 32)); err != nil {
		t.Fatalf("unexpected error before finish: %v", err)
	}

	src.done = true
	n, err := r.Read(make([]byte, 32))
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if n != 32 {
		t.Fatalf("final read should still deliver data, got %d bytes", n)
	}
}
