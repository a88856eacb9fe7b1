// Package lfo implements the free-running modulation oscillator with the
// Jupiter-style fade-in delay envelope.
package lfo

// Waveform selects the LFO shape.
type Waveform int

const (
	WaveTriangle Waveform = iota
	WaveRamp
	WaveSquare
	WaveSampleHold
)

const (
	minFreqHz = 0.1
	maxFreqHz = 50.0

	maxDelaySec = 10.0
)

// LFO is a low-frequency oscillator producing per-sample modulation in
// [-1, 1], scaled by a linear fade-in envelope that restarts on Trigger.
type LFO struct {
	sampleRate float64
	phase      float64
	phaseInc   float64
	waveform   Waveform

	// When enabled, Trigger also resets the phase. Disabled means the LFO
	// free-runs across notes, which is the authentic JP-8 behavior.
	keyTrigger bool

	delayPhase float64
	delayInc   float64
	delayTime  float64

	shValue  float64
	randSeed uint32
}

// New returns an initialized LFO with key trigger enabled.
func New(sampleRate float64) *LFO {
	l := &LFO{}
	l.Init(sampleRate)
	return l
}

// Init resets the LFO for the given sample rate.
func (l *LFO) Init(sampleRate float64) {
	l.sampleRate = sampleRate
	l.keyTrigger = true
	l.randSeed = 12345
	l.Reset()
}

// SetFrequency clamps to [0.1, 50] Hz.
func (l *LFO) SetFrequency(freqHz float64) {
	if freqHz < minFreqHz {
		freqHz = minFreqHz
	}
	if freqHz > maxFreqHz {
		freqHz = maxFreqHz
	}
	l.phaseInc = freqHz / l.sampleRate
}

// Frequency returns the current (clamped) frequency in Hz.
func (l *LFO) Frequency() float64 { return l.phaseInc * l.sampleRate }

// SetWaveform selects the LFO shape.
func (l *LFO) SetWaveform(w Waveform) { l.waveform = w }

// SetDelay sets the fade-in duration, clamped to [0, 10] s.
func (l *LFO) SetDelay(sec float64) {
	if sec < 0 {
		sec = 0
	}
	if sec > maxDelaySec {
		sec = maxDelaySec
	}
	l.delayTime = sec
	if sec > 0 {
		l.delayInc = 1.0 / (sec * l.sampleRate)
	} else {
		l.delayInc = 0
		l.delayPhase = 1.0
	}
}

// SetKeyTrigger controls whether Trigger resets the phase.
func (l *LFO) SetKeyTrigger(enable bool) { l.keyTrigger = enable }

// KeyTrigger reports the key-trigger setting.
func (l *LFO) KeyTrigger() bool { return l.keyTrigger }

// Trigger restarts the fade-in envelope, and the phase too when key trigger
// is enabled. Called on note-on.
func (l *LFO) Trigger() {
	if l.keyTrigger {
		l.phase = 0
	}
	if l.delayTime > 0 {
		l.delayPhase = 0
	}
}

// Reset zeroes the phase and disarms the fade-in.
func (l *LFO) Reset() {
	l.phase = 0
	l.delayPhase = 1.0
	l.shValue = 0
}

// Process advances one sample and returns the fade-scaled LFO value.
func (l *LFO) Process() float64 {
	l.phase += l.phaseInc
	if l.phase >= 1.0 {
		l.phase -= 1.0
	}

	out := l.generate()

	if l.delayPhase < 1.0 {
		l.delayPhase += l.delayInc
		if l.delayPhase > 1.0 {
			l.delayPhase = 1.0
		}
		out *= l.delayPhase
	}

	return out
}

func (l *LFO) generate() float64 {
	switch l.waveform {
	case WaveRamp:
		return l.phase*2.0 - 1.0

	case WaveSquare:
		if l.phase < 0.5 {
			return -1.0
		}
		return 1.0

	case WaveSampleHold:
		// New random value on each phase wrap.
		if l.phase < l.phaseInc {
			l.randSeed = (l.randSeed*1103515245 + 12345) & 0x7FFFFFFF
			l.shValue = float64(l.randSeed)/float64(0x7FFFFFFF)*2.0 - 1.0
		}
		return l.shValue

	default: // triangle
		if l.phase < 0.5 {
			return l.phase*4.0 - 1.0
		}
		return 3.0 - l.phase*4.0
	}
}
