// Package audio bridges the synth engine to the OS audio device through oto.
package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// SampleSource produces interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal end of playback. When
// Finished returns true the stream returns io.EOF on the next Read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// StreamReader adapts a SampleSource to the io.Reader oto consumes:
// little-endian float32, interleaved stereo.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	n := frames * 8
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

// Player owns an oto player wired to a StreamReader.
type Player struct {
	player *oto.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *oto.Context
	audioContextErr  error
)

// sharedAudioContext creates the process-wide oto context on first use.
// oto allows exactly one context per process.
func sharedAudioContext(sampleRate int) (*oto.Context, error) {
	audioContextOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			audioContextErr = err
			return
		}
		<-ready
		audioContext = ctx
	})
	return audioContext, audioContextErr
}

func NewPlayer(sampleRate int, source SampleSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl := ctx.NewPlayer(reader)
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play()           { p.player.Play() }
func (p *Player) Pause()          { p.player.Pause() }
func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

// SetVolume scales playback in the backend, 0..1.
func (p *Player) SetVolume(v float64) { p.player.SetVolume(v) }

// BufferedSize reports how many bytes the driver has queued; useful for
// estimating output latency.
func (p *Player) BufferedSize() int { return p.player.BufferedSize() }

// Drain waits until the driver's queue has emptied.
func (p *Player) Drain() {
	for p.player.BufferedSize() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
}

func (p *Player) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
