// Package synth wires the DSP components into the full voice engine: the
// allocator-owned voice pool, the shared LFO, the unison stack, the per-block
// parameter snapshot and the three mode-specific render paths.
package synth

import (
	"math"

	"github.com/cldmnky/drupiter-go/internal/dco"
	"github.com/cldmnky/drupiter-go/internal/effects"
	"github.com/cldmnky/drupiter-go/internal/lfo"
	"github.com/cldmnky/drupiter-go/internal/unison"
	"github.com/cldmnky/drupiter-go/internal/vcf"
	"github.com/cldmnky/drupiter-go/internal/voice"
)

// MaxFrames bounds one render block. Longer buffers are processed in chunks.
const MaxFrames = 1024

// minModulation is the depth below which a modulation path is skipped.
const minModulation = 0.001

// Octave selects the footage of a DCO.
type Octave int

const (
	Octave16 Octave = iota // one octave down
	Octave8                // unison
	Octave4                // one octave up
)

func (o Octave) multiplier() float64 {
	switch o {
	case Octave16:
		return 0.5
	case Octave4:
		return 2.0
	default:
		return 1.0
	}
}

// SyncMode selects oscillator sync (monophonic mode only). Sync is mutually
// exclusive with cross-modulation: FM requires DCO2 to run first, which breaks
// the master/slave ordering sync needs.
type SyncMode int

const (
	SyncOff  SyncMode = iota
	SyncSoft          // reset DCO2 on wrap only past half phase
	SyncHard          // reset DCO2 on every DCO1 wrap
)

// EffectMode selects the output stage treatment.
type EffectMode int

const (
	EffectChorus EffectMode = iota
	EffectSpace
	EffectDry
	EffectBoth
)

// smoothedValue is a one-pole parameter smoother for zipper-free sweeps.
type smoothedValue struct {
	value, target, coef float64
}

func (s *smoothedValue) init(v, coef float64) {
	s.value, s.target, s.coef = v, v, coef
}

func (s *smoothedValue) setTarget(t float64)    { s.target = t }
func (s *smoothedValue) setImmediate(v float64) { s.value, s.target = v, v }

func (s *smoothedValue) process() float64 {
	s.value += s.coef * (s.target - s.value)
	return s.value
}

// Engine is the complete synthesizer voice engine. All methods must be called
// from a single goroutine; note events and Render are never concurrent (the
// audio host serializes them).
type Engine struct {
	sampleRate float64

	alloc   *voice.Allocator
	uni     *unison.Oscillator
	lfo     *lfo.LFO
	widener *effects.Widener

	dco1Wave, dco2Wave dco.Waveform
	dco1Oct, dco2Oct   Octave
	pulseWidth         float64
	xmodDepth          float64
	syncMode           SyncMode
	detuneCents        float64

	dco1Level smoothedValue
	dco2Level smoothedValue
	cutoff    smoothedValue

	cutoffNorm float64 // unsmoothed, for the wide-open bypass check
	resonance  float64
	keyTrack   float64
	vcfMode    vcf.Mode
	hpfAmount  float64

	lfoToVCO, lfoToVCF, lfoToPWM float64
	envToPWM                     float64
	envToVCF                     float64 // bipolar
	pitchEnvDepth                float64 // semitones

	effectMode EffectMode

	monoBuf   [MaxFrames]float64
	leftBuf   [MaxFrames]float64
	rightBuf  [MaxFrames]float64
	scratch32 [2 * MaxFrames]float32
}

// blockParams is the immutable control-rate snapshot taken once per block.
// The render loops read only this, never the engine's live setters, so a
// parameter change mid-block cannot tear.
type blockParams struct {
	oct1, oct2     float64
	detuneRatio    float64
	xmod           float64
	sync           SyncMode
	lfoVCO, lfoVCF float64
	lfoPWM, envPWM float64
	envVCF         float64
	pitchDepth     float64
	keyTrack       float64
	hpfAlpha       float64
	cutoffBypass   bool
}

// New returns a fully initialized engine.
func New(sampleRate float64) *Engine {
	e := &Engine{}
	e.Init(sampleRate)
	return e
}

// Init allocates and initializes every component. All buffers and pools are
// sized here; the render path never allocates.
func (e *Engine) Init(sampleRate float64) {
	e.sampleRate = sampleRate
	e.alloc = voice.NewAllocator(sampleRate)
	e.uni = unison.New(sampleRate, voice.MaxVoices)
	e.lfo = lfo.New(sampleRate)
	e.widener = effects.NewWidener(sampleRate)

	e.dco1Level.init(1.0, 0.01)
	e.dco2Level.init(0.0, 0.01)
	e.cutoff.init(0.79, 0.005)

	e.ApplyPreset(FactoryPresets()[0])
}

// Reset clears all run-time DSP state (phases, envelopes, delay lines)
// without touching the parameter values.
func (e *Engine) Reset() {
	e.alloc.AllNotesOff()
	for i := 0; i < voice.MaxVoices; i++ {
		v := e.alloc.Voice(i)
		v.Reset()
		v.DCO1.ResetPhase()
		v.DCO2.ResetPhase()
		v.VCF.Reset()
	}
	e.uni.Reset()
	e.lfo.Reset()
	e.widener.Reset()
}

// SampleRate returns the configured rate in Hz.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// --- Note events -----------------------------------------------------------

// NoteOn triggers a voice. velocity is MIDI 0-127.
func (e *Engine) NoteOn(note, velocity int) {
	if note < 0 {
		note = 0
	}
	if note > 127 {
		note = 127
	}
	vel := float64(velocity) / 127.0
	if vel < 0 {
		vel = 0
	}
	if vel > 1 {
		vel = 1
	}
	e.alloc.NoteOn(note, vel)
	e.lfo.Trigger()
}

// NoteOff releases a note; release tails keep rendering until idle.
func (e *Engine) NoteOff(note int) {
	e.alloc.NoteOff(note)
}

// AllNotesOff gates every voice into release.
func (e *Engine) AllNotesOff() {
	e.alloc.AllNotesOff()
}

// IsAnyVoiceSounding reports whether a render would produce output.
func (e *Engine) IsAnyVoiceSounding() bool { return e.alloc.IsAnyVoiceSounding() }

// HasHeldNotes reports whether any key is currently down.
func (e *Engine) HasHeldNotes() bool { return e.alloc.HasHeldNotes() }

// Voice exposes pool entry idx for inspection.
func (e *Engine) Voice(idx int) *voice.Voice { return e.alloc.Voice(idx) }

// --- Mode and allocation ---------------------------------------------------

// SetMode switches the synthesis topology.
func (e *Engine) SetMode(m voice.Mode) { e.alloc.SetMode(m) }

// Mode returns the current topology.
func (e *Engine) Mode() voice.Mode { return e.alloc.Mode() }

// SetAllocationStrategy selects the polyphonic stealing policy.
func (e *Engine) SetAllocationStrategy(s voice.Strategy) { e.alloc.SetStrategy(s) }

// SetPortamentoTime sets glide time in seconds, clamped to [0, 0.5].
func (e *Engine) SetPortamentoTime(sec float64) {
	if sec > 0.5 {
		sec = 0.5
	}
	e.alloc.SetPortamentoTime(sec)
}

// SetUnisonDetune sets the unison stack detune in cents, clamped to [0, 50].
func (e *Engine) SetUnisonDetune(cents float64) {
	if cents < 0 {
		cents = 0
	}
	if cents > 50 {
		cents = 50
	}
	e.uni.SetDetune(cents)
}

// SetUnisonStereoSpread sets the stack's pan spread, clamped to [0, 1].
func (e *Engine) SetUnisonStereoSpread(spread float64) {
	e.uni.SetStereoSpread(spread)
}

// --- Oscillator parameters -------------------------------------------------

// SetDCO1Waveform applies to every pool voice and the unison stack.
func (e *Engine) SetDCO1Waveform(w dco.Waveform) {
	e.dco1Wave = w
	for i := 0; i < voice.MaxVoices; i++ {
		e.alloc.Voice(i).DCO1.SetWaveform(w)
	}
	e.uni.SetWaveform(w)
}

// SetDCO2Waveform applies to every pool voice.
func (e *Engine) SetDCO2Waveform(w dco.Waveform) {
	e.dco2Wave = w
	for i := 0; i < voice.MaxVoices; i++ {
		e.alloc.Voice(i).DCO2.SetWaveform(w)
	}
}

// SetDCO1Octave sets the footage of DCO1.
func (e *Engine) SetDCO1Octave(o Octave) { e.dco1Oct = o }

// SetDCO2Octave sets the footage of DCO2.
func (e *Engine) SetDCO2Octave(o Octave) { e.dco2Oct = o }

// SetPulseWidth sets the shared base pulse width, clamped to [0, 1].
func (e *Engine) SetPulseWidth(pw float64) {
	e.pulseWidth = clamp01(pw)
}

// SetXMod sets cross-modulation depth (DCO2 frequency-modulates DCO1),
// clamped to [0, 1]. Monophonic mode only; full depth is about one semitone.
func (e *Engine) SetXMod(depth float64) {
	e.xmodDepth = clamp01(depth)
}

// SetSync selects the oscillator sync mode (monophonic mode only).
func (e *Engine) SetSync(m SyncMode) { e.syncMode = m }

// SetDetune sets DCO2's detune from DCO1 in cents, clamped to ±200.
func (e *Engine) SetDetune(cents float64) {
	if cents < -200 {
		cents = -200
	}
	if cents > 200 {
		cents = 200
	}
	e.detuneCents = cents
}

// SetOscMix sets the DCO1/DCO2 balance: 0 = DCO1 only, 1 = DCO2 only.
// Smoothed to avoid zipper noise.
func (e *Engine) SetOscMix(mix float64) {
	mix = clamp01(mix)
	e.dco1Level.setTarget(1.0 - mix)
	e.dco2Level.setTarget(mix)
}

// --- Filter parameters -----------------------------------------------------

// SetCutoff sets the normalized cutoff (0 = ~100 Hz, 1 = wide open). The
// value is smoothed; at 1.0 the filter is bypassed entirely.
func (e *Engine) SetCutoff(norm float64) {
	e.cutoffNorm = clamp01(norm)
	e.cutoff.setTarget(e.cutoffNorm)
}

// SetResonance applies to every pool voice, clamped to [0, 1].
func (e *Engine) SetResonance(res float64) {
	e.resonance = clamp01(res)
	for i := 0; i < voice.MaxVoices; i++ {
		e.alloc.Voice(i).VCF.SetResonance(e.resonance)
	}
}

// SetFilterMode applies to every pool voice.
func (e *Engine) SetFilterMode(m vcf.Mode) {
	e.vcfMode = m
	for i := 0; i < voice.MaxVoices; i++ {
		e.alloc.Voice(i).VCF.SetMode(m)
	}
}

// SetKeyTracking sets how strongly cutoff follows the note, clamped to [0, 1].
func (e *Engine) SetKeyTracking(amount float64) {
	e.keyTrack = clamp01(amount)
}

// SetHPF sets the output high-pass amount: 0 disables, 1 maps to 2 kHz.
func (e *Engine) SetHPF(amount float64) {
	e.hpfAmount = clamp01(amount)
}

// --- Envelope parameters (control values 0-100) ----------------------------

// SetVCFEnvelope configures the filter envelope on every voice.
func (e *Engine) SetVCFEnvelope(attack, decay, sustain, release float64) {
	for i := 0; i < voice.MaxVoices; i++ {
		env := &e.alloc.Voice(i).EnvFilter
		env.SetAttack(envTime(attack))
		env.SetDecay(envTime(decay))
		env.SetSustain(clamp01(sustain / 100.0))
		env.SetRelease(envTime(release))
	}
}

// SetVCAEnvelope configures the amplitude envelope on every voice.
func (e *Engine) SetVCAEnvelope(attack, decay, sustain, release float64) {
	for i := 0; i < voice.MaxVoices; i++ {
		env := &e.alloc.Voice(i).EnvAmp
		env.SetAttack(envTime(attack))
		env.SetDecay(envTime(decay))
		env.SetSustain(clamp01(sustain / 100.0))
		env.SetRelease(envTime(release))
	}
}

// SetPitchEnvDepth sets the pitch envelope depth in semitones, clamped ±12.
func (e *Engine) SetPitchEnvDepth(semitones float64) {
	if semitones < -12 {
		semitones = -12
	}
	if semitones > 12 {
		semitones = 12
	}
	e.pitchEnvDepth = semitones
}

// --- LFO and modulation routing --------------------------------------------

// SetLFORate maps a 0-100 control value quadratically onto 0.1-20 Hz.
func (e *Engine) SetLFORate(value float64) {
	n := clamp01(value / 100.0)
	e.lfo.SetFrequency(0.1 + n*n*19.9)
}

// SetLFOWaveform selects the LFO shape.
func (e *Engine) SetLFOWaveform(w lfo.Waveform) { e.lfo.SetWaveform(w) }

// SetLFODelay maps a 0-100 control value onto a 0-5 s fade-in.
func (e *Engine) SetLFODelay(value float64) {
	e.lfo.SetDelay(clamp01(value/100.0) * 5.0)
}

// SetLFOKeyTrigger controls whether note-on restarts the LFO phase.
func (e *Engine) SetLFOKeyTrigger(enable bool) { e.lfo.SetKeyTrigger(enable) }

// SetLFOToVCO sets vibrato depth (full depth is ±5 %), clamped to [0, 1].
func (e *Engine) SetLFOToVCO(depth float64) { e.lfoToVCO = clamp01(depth) }

// SetLFOToVCF sets LFO cutoff modulation depth, clamped to [0, 1].
func (e *Engine) SetLFOToVCF(depth float64) { e.lfoToVCF = clamp01(depth) }

// SetLFOToPWM sets LFO pulse-width modulation depth, clamped to [0, 1].
func (e *Engine) SetLFOToPWM(depth float64) { e.lfoToPWM = clamp01(depth) }

// SetEnvToPWM sets filter-envelope PWM depth, clamped to [0, 1].
func (e *Engine) SetEnvToPWM(depth float64) { e.envToPWM = clamp01(depth) }

// SetEnvToVCF sets the bipolar filter-envelope cutoff depth, clamped to ±1.
// Negative depths close the filter as the envelope rises.
func (e *Engine) SetEnvToVCF(depth float64) {
	if depth < -1 {
		depth = -1
	}
	if depth > 1 {
		depth = 1
	}
	e.envToVCF = depth
}

// SetEffectMode selects the output stage treatment.
func (e *Engine) SetEffectMode(m EffectMode) { e.effectMode = m }

// --- Rendering -------------------------------------------------------------

// Render fills the stereo buffers. Buffers longer than MaxFrames are
// processed in chunks; left and right must be the same length.
func (e *Engine) Render(left, right []float32) {
	frames := len(left)
	if len(right) < frames {
		frames = len(right)
	}
	for start := 0; start < frames; start += MaxFrames {
		end := start + MaxFrames
		if end > frames {
			end = frames
		}
		e.renderBlock(left[start:end], right[start:end])
	}
}

// Process renders into an interleaved stereo buffer (len must be even).
func (e *Engine) Process(out []float32) {
	frames := len(out) / 2
	for start := 0; start < frames; start += MaxFrames {
		end := start + MaxFrames
		if end > frames {
			end = frames
		}
		n := end - start
		// Render into the scratch halves, then interleave. The scratch is
		// per-engine state so independent engines never alias.
		lbuf := e.scratch32[: 2*n : 2*n]
		e.renderBlock(lbuf[:n], lbuf[n:])
		for i := 0; i < n; i++ {
			out[(start+i)*2] = lbuf[i]
			out[(start+i)*2+1] = lbuf[n+i]
		}
	}
}

func (e *Engine) renderBlock(left, right []float32) {
	n := len(left)
	e.alloc.ReclaimIdleVoices()

	p := e.snapshotParams()

	mono := e.monoBuf[:n]
	switch e.alloc.Mode() {
	case voice.ModePolyphonic:
		e.renderPoly(mono, p)
	case voice.ModeUnison:
		e.renderUnison(mono, p)
	default:
		e.renderMono(mono, p)
	}

	sanitize(mono)

	lb, rb := e.leftBuf[:n], e.rightBuf[:n]
	switch e.effectMode {
	case EffectDry:
		copy(lb, mono)
		copy(rb, mono)
	case EffectBoth:
		e.widener.SetModDepth(8.0)
		e.widener.SetMix(0.8)
		e.widener.SetDelayTime(40.0)
		e.widener.ProcessMonoBuf(mono, lb, rb)
	case EffectSpace:
		e.widener.SetModDepth(6.0)
		e.widener.SetMix(0.7)
		e.widener.SetDelayTime(35.0)
		e.widener.ProcessMonoBuf(mono, lb, rb)
	default: // chorus
		e.widener.SetModDepth(3.0)
		e.widener.SetMix(0.5)
		e.widener.SetDelayTime(15.0)
		e.widener.ProcessMonoBuf(mono, lb, rb)
	}

	for i := 0; i < n; i++ {
		left[i] = float32(lb[i])
		right[i] = float32(rb[i])
	}
}

func (e *Engine) snapshotParams() blockParams {
	p := blockParams{
		oct1:        e.dco1Oct.multiplier(),
		oct2:        e.dco2Oct.multiplier(),
		detuneRatio: math.Exp2(e.detuneCents / 1200.0),
		xmod:        e.xmodDepth,
		sync:        e.syncMode,
		lfoVCO:      e.lfoToVCO,
		lfoVCF:      e.lfoToVCF,
		lfoPWM:      e.lfoToPWM,
		envPWM:      e.envToPWM,
		envVCF:      e.envToVCF,
		pitchDepth:  e.pitchEnvDepth,
		keyTrack:    e.keyTrack,
	}

	if e.hpfAmount > 0 {
		hpfHz := 20.0 + e.hpfAmount*1980.0
		rc := 1.0 / (2.0 * math.Pi * hpfHz)
		dt := 1.0 / e.sampleRate
		p.hpfAlpha = rc / (rc + dt)
	}

	// Wide open means the ladder only colors the sound; skip it entirely.
	p.cutoffBypass = e.cutoffNorm >= 0.999
	return p
}

// renderMono is the single-voice path: both DCOs of voice 0 with optional
// cross-modulation or sync.
func (e *Engine) renderMono(mono []float64, p blockParams) {
	v := e.alloc.Voice(0)
	for i := range mono {
		lfoOut := e.lfo.Process()
		d1Level := e.dco1Level.process()
		d2Level := e.dco2Level.process()
		cutNorm := e.cutoff.process()

		if !v.Sounding() {
			mono[i] = 0
			continue
		}

		v.AdvanceGlide()
		vcfEnv := v.EnvFilter.Process()
		vcaEnv := v.EnvAmp.Process()
		pitchEnv := v.EnvPitch.Process()

		pw := e.modulatedPulseWidth(lfoOut, vcfEnv, p)
		v.DCO1.SetPulseWidth(pw)
		v.DCO2.SetPulseWidth(pw)

		freq1 := v.PitchHz * p.oct1
		freq2 := v.PitchHz * p.oct2 * p.detuneRatio
		if p.lfoVCO > minModulation {
			m := 1.0 + lfoOut*p.lfoVCO*0.05
			freq1 *= m
			freq2 *= m
		}
		if p.pitchDepth != 0 {
			r := math.Exp2(pitchEnv * p.pitchDepth / 12.0)
			freq1 *= r
			freq2 *= r
		}
		v.DCO1.SetFrequency(freq1)
		v.DCO2.SetFrequency(freq2)

		var d1Out, d2Out float64
		if p.xmod > minModulation {
			// FM needs DCO2's fresh output, so it runs first; sync is
			// unavailable in this ordering.
			d2Out = v.DCO2.Process()
			v.DCO1.ApplyFM(d2Out * p.xmod * 0.083)
			d1Out = v.DCO1.Process()
		} else {
			v.DCO1.ApplyFM(0)
			d1Out = v.DCO1.Process()
			switch p.sync {
			case SyncHard:
				if v.DCO1.DidWrap() {
					v.DCO2.ResetPhase()
				}
			case SyncSoft:
				if v.DCO1.DidWrap() && v.DCO2.Phase() > 0.5 {
					v.DCO2.ResetPhase()
				}
			}
			if d2Level > minModulation {
				d2Out = v.DCO2.Process()
			}
		}

		mix := d1Out*d1Level + d2Out*d2Level
		out := e.processVoiceFilter(v, mix, cutNorm, vcfEnv, lfoOut, p)
		mono[i] = out * vcaEnv * vcaGain(v.Velocity) * 0.5
	}
}

// renderPoly mixes every sounding voice, each with its own oscillators,
// filter and envelopes, normalized by 1/sqrt(count).
func (e *Engine) renderPoly(mono []float64, p blockParams) {
	for i := range mono {
		lfoOut := e.lfo.Process()
		d1Level := e.dco1Level.process()
		d2Level := e.dco2Level.process()
		cutNorm := e.cutoff.process()

		var mixed float64
		active := 0
		for vi := 0; vi < voice.MaxVoices; vi++ {
			v := e.alloc.Voice(vi)
			if !v.Sounding() {
				continue
			}
			active++

			v.AdvanceGlide()
			vcfEnv := v.EnvFilter.Process()
			vcaEnv := v.EnvAmp.Process()
			pitchEnv := v.EnvPitch.Process()

			pw := e.modulatedPulseWidth(lfoOut, vcfEnv, p)
			v.DCO1.SetPulseWidth(pw)
			v.DCO2.SetPulseWidth(pw)

			freq1 := v.PitchHz * p.oct1
			freq2 := v.PitchHz * p.oct2 * p.detuneRatio
			if p.lfoVCO > minModulation {
				m := 1.0 + lfoOut*p.lfoVCO*0.05
				freq1 *= m
				freq2 *= m
			}
			if p.pitchDepth != 0 {
				r := math.Exp2(pitchEnv * p.pitchDepth / 12.0)
				freq1 *= r
				freq2 *= r
			}
			v.DCO1.SetFrequency(freq1)
			v.DCO2.SetFrequency(freq2)

			d1Out := v.DCO1.Process()
			var d2Out float64
			if d2Level > minModulation {
				d2Out = v.DCO2.Process()
			}

			mix := d1Out*d1Level + d2Out*d2Level
			out := e.processVoiceFilter(v, mix, cutNorm, vcfEnv, lfoOut, p)
			mixed += out * vcaEnv * vcaGain(v.Velocity)
		}

		if active > 0 {
			mixed /= math.Sqrt(float64(active))
		}
		mono[i] = mixed * 0.5
	}
}

// renderUnison drives the detuned stack at voice 0's pitch plus DCO2 as a
// sub-layer, through voice 0's filter and envelopes.
func (e *Engine) renderUnison(mono []float64, p blockParams) {
	v := e.alloc.Voice(0)
	for i := range mono {
		lfoOut := e.lfo.Process()
		d1Level := e.dco1Level.process()
		d2Level := e.dco2Level.process()
		cutNorm := e.cutoff.process()

		if !v.Sounding() {
			mono[i] = 0
			continue
		}

		v.AdvanceGlide()
		vcfEnv := v.EnvFilter.Process()
		vcaEnv := v.EnvAmp.Process()
		pitchEnv := v.EnvPitch.Process()

		pw := e.modulatedPulseWidth(lfoOut, vcfEnv, p)
		e.uni.SetPulseWidth(pw)
		v.DCO2.SetPulseWidth(pw)

		pitchRatio := 1.0
		if p.pitchDepth != 0 {
			pitchRatio = math.Exp2(pitchEnv * p.pitchDepth / 12.0)
		}
		vib := 1.0
		if p.lfoVCO > minModulation {
			vib = 1.0 + lfoOut*p.lfoVCO*0.05
		}

		e.uni.SetFrequency(v.PitchHz * p.oct1 * vib * pitchRatio)
		ul, ur := e.uni.Process()
		uniMono := (ul + ur) * 0.5

		v.DCO2.SetFrequency(v.PitchHz * p.oct2 * p.detuneRatio * vib * pitchRatio)
		d2Out := v.DCO2.Process()

		mix := uniMono*d1Level + d2Out*d2Level
		out := e.processVoiceFilter(v, mix, cutNorm, vcfEnv, lfoOut, p)
		mono[i] = out * vcaEnv * vcaGain(v.Velocity) * 0.5
	}
}

// modulatedPulseWidth combines the base width with LFO and envelope PWM,
// clamped to 10-90 % so the pulse never collapses to DC.
func (e *Engine) modulatedPulseWidth(lfoOut, vcfEnv float64, p blockParams) float64 {
	pw := e.pulseWidth
	if p.lfoPWM > minModulation {
		pw += lfoOut * p.lfoPWM * 0.4
	}
	if p.envPWM > minModulation {
		pw += vcfEnv * p.envPWM * 0.4
	}
	if pw < 0.1 {
		pw = 0.1
	}
	if pw > 0.9 {
		pw = 0.9
	}
	return pw
}

// processVoiceFilter runs one sample through the per-voice HPF and VCF with
// all cutoff modulation sources applied.
func (e *Engine) processVoiceFilter(v *voice.Voice, input, cutNorm, vcfEnv, lfoOut float64, p blockParams) float64 {
	x := input
	if p.hpfAlpha > 0 {
		y := p.hpfAlpha * (v.HPFPrevOut + x - v.HPFPrevIn)
		v.HPFPrevOut = y
		v.HPFPrevIn = x
		x = y
	}

	if p.cutoffBypass {
		return x
	}

	// Cutoff mapping: mostly exponential over 7 octaves from 100 Hz, with a
	// linear portion at the low end so the filter never gets stuck closed.
	const linearBlend = 0.15
	expPortion := math.Exp2(cutNorm * 7.0)
	linPortion := 1.0 + cutNorm*127.0
	cutoffBase := 100.0 * (linearBlend*linPortion + (1.0-linearBlend)*expPortion)

	// Keyboard tracking, clamped to ±4 octaves.
	octaves := float64(v.Note-60) / 12.0 * p.keyTrack
	if octaves > 4 {
		octaves = 4
	}
	if octaves < -4 {
		octaves = -4
	}
	cutoffBase *= math.Exp2(octaves)

	velMod := v.Velocity * 0.5
	totalMod := vcfEnv*2.0 + p.envVCF*vcfEnv + lfoOut*p.lfoVCF + velMod*2.0
	if totalMod > 3 {
		totalMod = 3
	}
	if totalMod < -3 {
		totalMod = -3
	}

	v.VCF.SetCutoffModulated(cutoffBase * math.Exp2(totalMod))
	return v.VCF.Process(x)
}

// vcaGain maps velocity to an amplitude multiplier in [0.2, 1.0]: soft hits
// stay audible, hard hits reach full level.
func vcaGain(velocity float64) float64 {
	return 0.2 + velocity*0.8
}

// sanitize removes NaN/Inf and hard-clamps to ±1. The DSP is designed not to
// blow up, but a NaN that escapes would otherwise latch the filter state
// forever.
func sanitize(buf []float64) {
	for i, v := range buf {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf[i] = 0
			continue
		}
		if v > 1 {
			buf[i] = 1
		} else if v < -1 {
			buf[i] = -1
		}
	}
}

// envTime maps a 0-100 control value to segment seconds.
func envTime(value float64) float64 {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	n := value / 100.0
	return 0.001 + n*n*4.999
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
