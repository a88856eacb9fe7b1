// Package unison implements the detuned oscillator stack used for hoover
// and supersaw sounds. Detune follows an alternating golden-ratio power
// progression and panning a golden-angle spiral, both of which avoid the
// periodic beating that even spacing produces.
package unison

import (
	"math"

	"github.com/cldmnky/drupiter-go/internal/dco"
)

const (
	// MaxVoices is the largest stack size.
	MaxVoices = 7

	goldenRatio = 1.618033988749895
)

// Oscillator is a bank of up to 7 detuned, panned DCOs sharing one pitch.
// Slot 0 is always centered and undetuned.
type Oscillator struct {
	oscs    [MaxVoices]dco.DCO
	detunes [MaxVoices]float64 // frequency ratios, slot 0 = 1.0
	pans    [MaxVoices]float64 // pan positions in [-1, 1]

	numVoices    int
	sampleRate   float64
	baseFreqHz   float64
	detuneCents  float64
	stereoSpread float64
	scale        float64 // 1/sqrt(numVoices)
}

// New returns an initialized stack.
func New(sampleRate float64, numVoices int) *Oscillator {
	u := &Oscillator{}
	u.Init(sampleRate, numVoices)
	return u
}

// Init clamps numVoices to an odd count in [3, 7] (so one voice is always
// centered) and precomputes the detune and pan tables.
func (u *Oscillator) Init(sampleRate float64, numVoices int) {
	u.sampleRate = sampleRate
	if numVoices < 3 {
		numVoices = 3
	}
	if numVoices > MaxVoices {
		numVoices = MaxVoices
	}
	if numVoices%2 == 0 {
		numVoices++
	}
	u.numVoices = numVoices
	u.scale = 1.0 / math.Sqrt(float64(numVoices))

	if u.baseFreqHz == 0 {
		u.baseFreqHz = 440.0
	}
	if u.detuneCents == 0 {
		u.detuneCents = 10.0
	}
	if u.stereoSpread == 0 {
		u.stereoSpread = 0.7
	}

	for i := range u.oscs {
		u.oscs[i].Init(sampleRate)
		u.oscs[i].SetWaveform(dco.WaveSawPWM)
		u.oscs[i].SetPulseWidth(0.5)
	}

	u.calculateDetuneRatios()
	u.calculatePanPositions()
	u.SetFrequency(u.baseFreqHz)
}

// NumVoices returns the active stack size.
func (u *Oscillator) NumVoices() int { return u.numVoices }

// DetuneRatio returns slot i's precomputed frequency ratio.
func (u *Oscillator) DetuneRatio(i int) float64 { return u.detunes[i] }

// Pan returns slot i's pan position in [-1, 1].
func (u *Oscillator) Pan(i int) float64 { return u.pans[i] }

// SetFrequency applies the base frequency, multiplied per slot by its
// detune ratio.
func (u *Oscillator) SetFrequency(freqHz float64) {
	u.baseFreqHz = freqHz
	for i := 0; i < u.numVoices; i++ {
		u.oscs[i].SetFrequency(freqHz * u.detunes[i])
	}
}

// SetWaveform sets the wave shape on every slot.
func (u *Oscillator) SetWaveform(w dco.Waveform) {
	for i := 0; i < u.numVoices; i++ {
		u.oscs[i].SetWaveform(w)
	}
}

// SetPulseWidth sets the pulse width on every slot.
func (u *Oscillator) SetPulseWidth(pw float64) {
	for i := 0; i < u.numVoices; i++ {
		u.oscs[i].SetPulseWidth(pw)
	}
}

// SetDetune sets the base detune in cents and recomputes all slot ratios.
func (u *Oscillator) SetDetune(cents float64) {
	u.detuneCents = cents
	u.calculateDetuneRatios()
	u.SetFrequency(u.baseFreqHz)
}

// SetStereoSpread clamps to [0, 1]; 0 collapses the stack to mono.
func (u *Oscillator) SetStereoSpread(spread float64) {
	if spread < 0 {
		spread = 0
	}
	if spread > 1 {
		spread = 1
	}
	u.stereoSpread = spread
}

// Reset rewinds every slot's phase.
func (u *Oscillator) Reset() {
	for i := 0; i < u.numVoices; i++ {
		u.oscs[i].ResetPhase()
	}
}

// Process renders one stereo sample pair, normalized by 1/sqrt(numVoices)
// so loudness does not grow with the stack size.
func (u *Oscillator) Process() (left, right float64) {
	for i := 0; i < u.numVoices; i++ {
		sample := u.oscs[i].Process()

		pan := u.pans[i] * u.stereoSpread
		panLeft := (1.0 - pan) * 0.5
		panRight := (1.0 + pan) * 0.5

		left += sample * panLeft
		right += sample * panRight
	}
	return left * u.scale, right * u.scale
}

// calculateDetuneRatios fills the per-slot ratios: slot 0 stays at unity,
// then pairs alternate +/- with increasing golden-ratio powers:
//
//	1: +d·φ⁰  2: -d·φ⁰  3: +d·φ¹  4: -d·φ¹  5: +d·φ²  6: -d·φ²
func (u *Oscillator) calculateDetuneRatios() {
	u.detunes[0] = 1.0

	power := 1.0
	for i := 1; i < u.numVoices; i += 2 {
		u.detunes[i] = centsToRatio(u.detuneCents * power)
		if i+1 < u.numVoices {
			u.detunes[i+1] = centsToRatio(-u.detuneCents * power)
		}
		power *= goldenRatio
	}
}

// calculatePanPositions spreads slots on a golden-angle spiral (sunflower
// packing) projected onto the stereo axis. Slot 0 stays centered.
func (u *Oscillator) calculatePanPositions() {
	goldenAngle := 2.0 * math.Pi * (1.0 - 1.0/goldenRatio)
	for i := 0; i < u.numVoices; i++ {
		u.pans[i] = math.Cos(float64(i) * goldenAngle)
	}
	u.pans[0] = 0
}

func centsToRatio(cents float64) float64 {
	return math.Exp2(cents / 1200.0)
}
