// Package dco implements a Jupiter-style digitally controlled oscillator:
// a phase accumulator with wavetable lookup, PolyBLEP band-limiting at
// waveform discontinuities, exponential FM input and a slow analog-style
// pitch drift.
package dco

import "math"

// Waveform selects the generated wave shape.
type Waveform int

const (
	WaveSaw    Waveform = iota // descending ramp (Roland-style)
	WaveSquare                 // 50% duty
	WavePulse                  // variable width
	WaveTriangle
	WaveSawPWM // two phase-shifted saws crossfaded by pulse width (hoover)
	WaveSine
	WaveNoise
)

const (
	// Keep the phase increment safely below Nyquist, leaving headroom for
	// the BLEP transition width. FM overshoot is clamped separately.
	maxPhaseIncrement = 0.48

	// Exponential FM range: fm amount of ±1 maps to ±1 octave.
	fmModRange = 1.0

	driftUpdatePeriod = 480 // samples between drift updates (~10ms at 48k)

	tableSize = 2048
)

// Shared wavetables, one extra entry for interpolation.
var (
	rampTable     [tableSize + 1]float64
	squareTable   [tableSize + 1]float64
	triangleTable [tableSize + 1]float64
	sineTable     [tableSize + 1]float64
)

func init() {
	for i := 0; i <= tableSize; i++ {
		phase := float64(i) / tableSize

		rampTable[i] = 1.0 - phase*2.0

		// Exactly ±1 for zero DC offset.
		if phase < 0.5 {
			squareTable[i] = 1.0
			triangleTable[i] = phase*4.0 - 1.0
		} else {
			squareTable[i] = -1.0
			triangleTable[i] = 3.0 - phase*4.0
		}

		sineTable[i] = math.Sin(phase * 2.0 * math.Pi)
	}
}

// DCO is a single band-limited oscillator. All state is per-instance; a
// Voice owns its oscillators exclusively.
type DCO struct {
	sampleRate float64
	phase      float64
	phaseInc   float64
	baseFreqHz float64
	maxFreqHz  float64
	pulseWidth float64
	fmAmount   float64

	generate func(o *DCO, phase, dt float64) float64

	// Analog-style drift state. Updated every driftUpdatePeriod samples so
	// the pitch wanders slowly instead of wobbling.
	driftPhase   float64
	driftCounter int
	currentDrift float64
	noiseSeed    uint32
	noiseSeed2   uint32

	lastPhase float64
}

// New returns an initialized oscillator.
func New(sampleRate float64) *DCO {
	o := &DCO{}
	o.Init(sampleRate)
	return o
}

// Init resets the oscillator for the given sample rate.
func (o *DCO) Init(sampleRate float64) {
	o.sampleRate = sampleRate
	o.maxFreqHz = sampleRate * maxPhaseIncrement
	o.phase = 0
	o.lastPhase = 0
	o.pulseWidth = 0.5
	o.fmAmount = 0
	o.driftPhase = 0
	o.driftCounter = 0
	o.currentDrift = 0
	o.noiseSeed = 0x41594E31
	o.noiseSeed2 = 0x4A503842
	if o.generate == nil {
		o.generate = (*DCO).generateSaw
	}
	o.SetFrequency(440.0)
}

// SetFrequency clamps to [0, 0.48·sampleRate] and recomputes the phase
// increment.
func (o *DCO) SetFrequency(freqHz float64) {
	if freqHz < 0 {
		freqHz = 0
	}
	if freqHz > o.maxFreqHz {
		freqHz = o.maxFreqHz
	}
	o.baseFreqHz = freqHz
	o.phaseInc = freqHz / o.sampleRate
}

// Frequency returns the current (clamped) base frequency.
func (o *DCO) Frequency() float64 { return o.baseFreqHz }

// SetWaveform selects the generator. The variant set is closed and the
// choice is made here, not per sample.
func (o *DCO) SetWaveform(w Waveform) {
	switch w {
	case WaveSquare:
		o.generate = (*DCO).generateSquare
	case WavePulse:
		o.generate = (*DCO).generatePulse
	case WaveTriangle:
		o.generate = (*DCO).generateTriangle
	case WaveSawPWM:
		o.generate = (*DCO).generateSawPWM
	case WaveSine:
		o.generate = (*DCO).generateSine
	case WaveNoise:
		o.generate = (*DCO).generateNoise
	default:
		o.generate = (*DCO).generateSaw
	}
}

// SetPulseWidth clamps to [0.01, 0.99]. 0.5 is a square.
func (o *DCO) SetPulseWidth(pw float64) {
	if pw < 0.01 {
		pw = 0.01
	}
	if pw > 0.99 {
		pw = 0.99
	}
	o.pulseWidth = pw
}

// PulseWidth returns the current (clamped) pulse width.
func (o *DCO) PulseWidth() float64 { return o.pulseWidth }

// ApplyFM sets the exponential frequency modulation applied on the next
// Process call: ±1 maps to ±1 octave.
func (o *DCO) ApplyFM(amount float64) { o.fmAmount = amount }

// ResetPhase rewinds the phase to 0 (used by hard sync).
func (o *DCO) ResetPhase() { o.phase = 0 }

// Phase returns the current phase in [0, 1), for syncing a slave oscillator.
func (o *DCO) Phase() float64 { return o.phase }

// DidWrap reports whether the phase wrapped on the last Process call.
func (o *DCO) DidWrap() bool { return o.phase < o.lastPhase }

// Process generates one sample in [-1, 1] and advances the phase.
func (o *DCO) Process() float64 {
	inc := o.phaseInc
	if o.fmAmount != 0 {
		inc *= math.Exp2(o.fmAmount * fmModRange)
	}

	o.driftCounter++
	if o.driftCounter >= driftUpdatePeriod {
		o.driftCounter = 0
		o.driftPhase += 0.01 // ~1 Hz drift LFO
		if o.driftPhase >= 1.0 {
			o.driftPhase -= 1.0
		}
		o.noiseSeed = o.noiseSeed*1664525 + 1013904223
		noise := float64((o.noiseSeed>>9)&0x7FFFFF)/float64(0x7FFFFF) - 0.5
		// ±0.005% drift keeps the tuner happy while still sounding analog.
		o.currentDrift = 0.00003*math.Sin(o.driftPhase*2.0*math.Pi) + 0.00002*noise
	}
	inc *= 1.0 + o.currentDrift

	// FM can try to push past Nyquist; clamp the increment, not the input.
	if inc < 0 {
		inc = 0
	}
	if inc > maxPhaseIncrement {
		inc = maxPhaseIncrement
	}

	o.lastPhase = o.phase
	sample := o.generate(o, o.phase, inc)

	o.phase += inc
	o.phase -= math.Floor(o.phase)

	return sample
}

func (o *DCO) generateSaw(phase, dt float64) float64 {
	return lookup(&rampTable, phase) - polyBlep(phase, dt)
}

func (o *DCO) generateSquare(phase, dt float64) float64 {
	v := lookup(&squareTable, phase)
	v += polyBlep(phase, dt)                // rising edge at 0
	v -= polyBlep(wrapPhase(phase+0.5), dt) // falling edge at 0.5
	return v
}

func (o *DCO) generatePulse(phase, dt float64) float64 {
	// Comparator-style PWM.
	v := -1.0
	if phase < o.pulseWidth {
		v = 1.0
	}
	v += polyBlep(phase, dt)
	v -= polyBlep(wrapPhase(phase+(1.0-o.pulseWidth)), dt)
	return v
}

func (o *DCO) generateTriangle(phase, _ float64) float64 {
	return lookup(&triangleTable, phase)
}

// generateSawPWM crossfades two phase-shifted saws by the pulse width.
// Sweeping the width moves the spectrum between bright and hollow, which is
// the core of the hoover sound.
func (o *DCO) generateSawPWM(phase, dt float64) float64 {
	saw1 := 1.0 - phase*2.0
	phase2 := wrapPhase(phase + o.pulseWidth)
	saw2 := 1.0 - phase2*2.0

	mix := o.pulseWidth
	v := saw1*(1.0-mix) + saw2*mix
	v -= polyBlep(phase, dt) * (1.0 - mix)
	v -= polyBlep(phase2, dt) * mix
	return v
}

func (o *DCO) generateSine(phase, _ float64) float64 {
	return lookup(&sineTable, phase)
}

func (o *DCO) generateNoise(_, _ float64) float64 {
	o.noiseSeed2 = o.noiseSeed2*1664525 + 1013904223
	return float64((o.noiseSeed2>>9)&0x7FFFFF)/float64(0x7FFFFF)*2.0 - 1.0
}

// polyBlep is the polynomial band-limited step correction applied around a
// discontinuity. t is the phase in [0,1), dt the phase increment; dt controls
// the transition width so the correction self-adapts to pitch and FM.
func polyBlep(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if dt > 1 {
		dt = 1
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1.0
	}
	if t > 1.0-dt {
		t = (t - 1.0) / dt
		return t*t + t + t + 1.0
	}
	return 0
}

func wrapPhase(p float64) float64 {
	return p - math.Floor(p)
}

func lookup(table *[tableSize + 1]float64, phase float64) float64 {
	pos := phase * tableSize
	idx := int(pos)
	if idx < 0 {
		idx = 0
	}
	if idx >= tableSize {
		idx = tableSize - 1
	}
	frac := pos - float64(idx)
	return table[idx] + (table[idx+1]-table[idx])*frac
}
