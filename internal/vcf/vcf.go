// Package vcf implements the Jupiter-style multimode filter. The low-pass
// modes use a Krajeski-flavored four-stage ladder with a resonance feedback
// path, the band-pass mode an independent Chamberlin state-variable section,
// and the high-pass mode a non-resonant one-pole subtraction. The ladder runs
// at 2x oversampling for stability near the top of the audio band.
package vcf

import "math"

// Mode selects the filter response.
type Mode int

const (
	ModeLP12 Mode = iota // low-pass 12 dB/oct (ladder tap after stage 2)
	ModeLP24             // low-pass 24 dB/oct (ladder tap after stage 4)
	ModeHP12             // high-pass, non-resonant
	ModeBP12             // band-pass, state-variable
)

const (
	oversampling = 2

	minCutoffHz = 80.0

	// Hard cap on the resonance feedback coefficient: bounds the energy the
	// ladder can pump into self-oscillation.
	maxResonanceFeedback = 3.8
)

// VCF is one per-voice filter instance.
type VCF struct {
	sampleRate   float64
	cutoffHz     float64
	baseCutoffHz float64
	resonance    float64
	mode         Mode
	keyTracking  float64

	// Ladder state: four one-pole sections plus their unit delays
	// ("compromise" pole placement needs both).
	stage [5]float64
	delay [4]float64
	tap2  float64 // LP12 output, after stage 2

	g        float64 // per-stage coefficient with polynomial cutoff correction
	resK     float64 // feedback coefficient, capped at maxResonanceFeedback
	gainComp float64 // passband loss compensation at high resonance

	// One-pole low-pass used to build the HP response by subtraction.
	hpLpState float64
	hpAlpha   float64

	// Chamberlin SVF state for BP mode.
	svfLP, svfBP, svfHP float64
	svfF, svfQ          float64
}

// New returns an initialized filter.
func New(sampleRate float64) *VCF {
	f := &VCF{}
	f.Init(sampleRate)
	return f
}

// Init resets state and coefficients for the given sample rate.
func (f *VCF) Init(sampleRate float64) {
	f.sampleRate = sampleRate
	f.cutoffHz = 1000.0
	f.baseCutoffHz = 1000.0
	f.resonance = 0
	f.keyTracking = 0.5 // Jupiter-8 typical
	f.Reset()
	f.updateCoefficients()
}

// Reset zeroes all delay taps without touching the parameters.
func (f *VCF) Reset() {
	for i := range f.stage {
		f.stage[i] = 0
	}
	for i := range f.delay {
		f.delay[i] = 0
	}
	f.tap2 = 0
	f.hpLpState = 0
	f.svfLP, f.svfBP, f.svfHP = 0, 0, 0
}

// SetCutoff sets the unmodulated base cutoff, clamped to
// [80 Hz, 0.45·oversampled rate].
func (f *VCF) SetCutoff(freqHz float64) {
	f.baseCutoffHz = f.clampCutoff(freqHz)
	f.cutoffHz = f.baseCutoffHz
	f.updateCoefficients()
}

// SetCutoffModulated moves the effective cutoff without changing the base,
// so per-block modulation does not accumulate into the stored parameter.
func (f *VCF) SetCutoffModulated(freqHz float64) {
	f.cutoffHz = f.clampCutoff(freqHz)
	f.updateCoefficients()
}

// Cutoff returns the current effective cutoff in Hz.
func (f *VCF) Cutoff() float64 { return f.cutoffHz }

// SetResonance clamps to [0, 1].
func (f *VCF) SetResonance(res float64) {
	if res < 0 {
		res = 0
	}
	if res > 1 {
		res = 1
	}
	f.resonance = res
	f.updateCoefficients()
}

// Resonance returns the current (clamped) resonance.
func (f *VCF) Resonance() float64 { return f.resonance }

// SetMode selects the filter response.
func (f *VCF) SetMode(m Mode) { f.mode = m }

// SetKeyboardTracking sets how strongly cutoff follows the played note,
// clamped to [0, 1].
func (f *VCF) SetKeyboardTracking(amount float64) {
	if amount < 0 {
		amount = 0
	}
	if amount > 1 {
		amount = 1
	}
	f.keyTracking = amount
}

// ApplyKeyboardTracking scales the base cutoff by
// 2^(keyTracking · octavesFromC4) for the given MIDI note.
func (f *VCF) ApplyKeyboardTracking(note int) {
	if f.keyTracking <= 0 {
		return
	}
	octaves := float64(note-60) / 12.0
	f.cutoffHz = f.clampCutoff(f.baseCutoffHz * math.Exp2(octaves*f.keyTracking))
	f.updateCoefficients()
}

// Process filters one sample.
func (f *VCF) Process(input float64) float64 {
	switch f.mode {
	case ModeHP12:
		// input - lowpass(input); no resonance on the Jupiter HPF.
		f.hpLpState += f.hpAlpha * (input - f.hpLpState)
		return input - f.hpLpState

	case ModeBP12:
		for i := 0; i < oversampling; i++ {
			f.svfHP = input - f.svfLP - f.svfQ*f.svfBP
			f.svfBP += f.svfF * f.svfHP
			f.svfLP += f.svfF * f.svfBP
			f.svfBP = clampState(f.svfBP)
			f.svfLP = clampState(f.svfLP)
		}
		return f.svfBP * f.gainComp * 0.5 // BP needs less compensation

	default:
		for i := 0; i < oversampling; i++ {
			f.ladderStep(input)
		}
		if f.mode == ModeLP12 {
			return softClip(f.tap2 * f.gainComp)
		}
		return softClip(f.stage[4] * f.gainComp)
	}
}

// ladderStep runs one oversampled iteration of the four-stage ladder.
func (f *VCF) ladderStep(input float64) {
	// Feedback from the fourth stage, with half the input mixed back in to
	// compensate passband loss (Krajeski's gComp = 0.5).
	x := input - f.resK*(f.stage[4]-0.5*input)
	f.stage[0] = softClip(x)

	for i := 0; i < 4; i++ {
		// Compromise pole: blend the current and one-sample-delayed input of
		// each stage (0.3/1.3 and 1/1.3).
		in := (0.3*f.stage[i] + f.delay[i]) / 1.3
		f.stage[i+1] += f.g * (in - f.stage[i+1])
		f.delay[i] = f.stage[i]
	}
	f.tap2 = f.stage[2]
}

func (f *VCF) updateCoefficients() {
	osRate := f.sampleRate * oversampling
	wc := 2.0 * math.Pi * f.cutoffHz / osRate

	// Polynomial correction keeps the realized cutoff on target as wc grows
	// (empirically tuned; do not re-derive).
	f.g = 0.9892*wc - 0.4342*wc*wc + 0.1381*wc*wc*wc - 0.0202*wc*wc*wc*wc
	if f.g < 0 {
		f.g = 0
	}
	if f.g > 1 {
		f.g = 1
	}

	// Resonance feedback with its own cutoff-dependent correction so the
	// resonance "feel" stays constant across the range.
	k := 4.0 * f.resonance * (1.0029 + 0.0526*wc - 0.926*wc*wc + 0.0218*wc*wc*wc)
	if k < 0 {
		k = 0
	}
	if k > maxResonanceFeedback {
		k = maxResonanceFeedback
	}
	f.resK = k

	f.gainComp = 1.0 + f.resonance*0.5

	// One-pole LP for the HP path (not oversampled).
	rc := 1.0 / (2.0 * math.Pi * f.cutoffHz)
	dt := 1.0 / f.sampleRate
	f.hpAlpha = dt / (rc + dt)

	// Chamberlin coefficients at the oversampled rate.
	norm := f.cutoffHz / osRate
	if norm > 0.45 {
		norm = 0.45
	}
	f.svfF = 2.0 * math.Sin(math.Pi*norm)
	f.svfQ = 2.0 - f.resonance*1.95
	if f.svfQ < 0.05 {
		f.svfQ = 0.05
	}
}

func (f *VCF) clampCutoff(freq float64) float64 {
	maxHz := 0.45 * f.sampleRate * oversampling
	if freq < minCutoffHz {
		return minCutoffHz
	}
	if freq > maxHz {
		return maxHz
	}
	return freq
}

// softClip is a cubic tanh approximation: linear-ish below unity, saturating
// to ±2/3 beyond it. Cheap enough to run per ladder stage.
func softClip(x float64) float64 {
	if x > 1 {
		return 2.0 / 3.0
	}
	if x < -1 {
		return -2.0 / 3.0
	}
	return x - x*x*x/3.0
}

func clampState(v float64) float64 {
	if v > 10 {
		return 10
	}
	if v < -10 {
		return -10
	}
	return v
}
