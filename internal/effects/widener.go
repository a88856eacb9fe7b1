// Package effects holds the output-stage processors. The only one the engine
// uses is the chorus stereo widener, a short modulated delay that turns the
// mono synth bus into a wide stereo image.
package effects

import "math"

// Widener is a mono-to-stereo chorus: the dry signal plus two modulated delay
// taps read in opposite phase, one per channel. Opposite-phase modulation is
// what creates the width; with the LFO at 0 it degenerates to a static
// Haas-style spread.
type Widener struct {
	buf  []float64
	pos  int
	size int

	sampleRate float64
	delaySamp  float64 // base delay in samples
	depthSamp  float64 // modulation depth in samples
	phase      float64
	phaseInc   float64
	mix        float64
}

const maxWidenerDelayMs = 60.0

// NewWidener returns a widener with the engine's default chorus settings.
func NewWidener(sampleRate float64) *Widener {
	w := &Widener{}
	w.Init(sampleRate)
	return w
}

// Init allocates the delay line for the worst-case delay plus depth.
func (w *Widener) Init(sampleRate float64) {
	w.sampleRate = sampleRate
	w.size = int(maxWidenerDelayMs*sampleRate/1000.0) + 2
	w.buf = make([]float64, w.size)
	w.pos = 0
	w.phase = 0
	w.SetDelayTime(15.0)
	w.SetModDepth(3.0)
	w.SetLFORate(0.5)
	w.SetMix(0.5)
}

// SetDelayTime sets the base delay in ms, clamped so delay+depth fits the line.
func (w *Widener) SetDelayTime(ms float64) {
	if ms < 1 {
		ms = 1
	}
	if ms > maxWidenerDelayMs-10 {
		ms = maxWidenerDelayMs - 10
	}
	w.delaySamp = ms * w.sampleRate / 1000.0
}

// SetModDepth sets the LFO modulation depth in ms.
func (w *Widener) SetModDepth(ms float64) {
	if ms < 0 {
		ms = 0
	}
	if ms > 10 {
		ms = 10
	}
	w.depthSamp = ms * w.sampleRate / 1000.0
}

// SetLFORate sets the modulation rate in Hz.
func (w *Widener) SetLFORate(hz float64) {
	if hz < 0 {
		hz = 0
	}
	if hz > 10 {
		hz = 10
	}
	w.phaseInc = hz / w.sampleRate
}

// SetMix sets the wet/dry balance, clamped to [0, 1].
func (w *Widener) SetMix(mix float64) {
	if mix < 0 {
		mix = 0
	}
	if mix > 1 {
		mix = 1
	}
	w.mix = mix
}

// Reset clears the delay line.
func (w *Widener) Reset() {
	for i := range w.buf {
		w.buf[i] = 0
	}
	w.pos = 0
	w.phase = 0
}

// ProcessMono widens one mono sample into a stereo pair.
func (w *Widener) ProcessMono(in float64) (left, right float64) {
	w.buf[w.pos] = in

	mod := math.Sin(w.phase*2.0*math.Pi) * w.depthSamp
	w.phase += w.phaseInc
	if w.phase >= 1.0 {
		w.phase -= 1.0
	}

	wetL := w.read(w.delaySamp + mod)
	wetR := w.read(w.delaySamp - mod)

	w.pos++
	if w.pos >= w.size {
		w.pos = 0
	}

	dry := 1.0 - w.mix
	return in*dry + wetL*w.mix, in*dry + wetR*w.mix
}

// ProcessMonoBuf widens a mono block into the left/right buffers.
func (w *Widener) ProcessMonoBuf(mono, left, right []float64) {
	for i := range mono {
		left[i], right[i] = w.ProcessMono(mono[i])
	}
}

// read fetches a linearly interpolated sample delaySamp samples behind pos.
func (w *Widener) read(delaySamp float64) float64 {
	if delaySamp < 1 {
		delaySamp = 1
	}
	readPos := float64(w.pos) - delaySamp
	for readPos < 0 {
		readPos += float64(w.size)
	}
	idx := int(readPos)
	frac := readPos - float64(idx)
	idx2 := idx + 1
	if idx2 >= w.size {
		idx2 = 0
	}
	return w.buf[idx]*(1-frac) + w.buf[idx2]*frac
}
