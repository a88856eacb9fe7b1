package synth

import (
	"github.com/cldmnky/drupiter-go/internal/dco"
	"github.com/cldmnky/drupiter-go/internal/lfo"
	"github.com/cldmnky/drupiter-go/internal/vcf"
)

// ADSR holds envelope segment control values (0-100; times map quadratically
// onto seconds, sustain onto level).
type ADSR struct {
	Attack, Decay, Sustain, Release float64
}

// Preset is a complete parameter snapshot.
type Preset struct {
	Name string

	DCO1Octave  Octave
	DCO1Wave    dco.Waveform
	DCO2Octave  Octave
	DCO2Wave    dco.Waveform
	PulseWidth  float64 // 0-1
	XMod        float64 // 0-1
	DetuneCents float64 // DCO2 offset
	Sync        SyncMode

	OscMix      float64 // 0=DCO1 only, 1=DCO2 only
	Cutoff      float64 // 0-1 normalized
	Resonance   float64 // 0-1
	KeyTracking float64 // 0-1
	FilterMode  vcf.Mode

	VCFEnv ADSR
	VCAEnv ADSR

	LFORate  float64 // 0-100 control value
	LFOWave  lfo.Waveform
	LFOToVCF float64 // 0-1
	LFOToVCO float64 // 0-1
	EnvToVCF float64 // -1..1

	Effect EffectMode
}

// ApplyPreset pushes every preset field through the engine's setters, so all
// clamping and smoothing rules apply. Smoothed values jump immediately: a
// preset change should not sweep.
func (e *Engine) ApplyPreset(p Preset) {
	e.SetDCO1Octave(p.DCO1Octave)
	e.SetDCO1Waveform(p.DCO1Wave)
	e.SetDCO2Octave(p.DCO2Octave)
	e.SetDCO2Waveform(p.DCO2Wave)
	e.SetPulseWidth(p.PulseWidth)
	e.SetXMod(p.XMod)
	e.SetDetune(p.DetuneCents)
	e.SetSync(p.Sync)

	e.SetOscMix(p.OscMix)
	e.SetCutoff(p.Cutoff)
	e.SetResonance(p.Resonance)
	e.SetKeyTracking(p.KeyTracking)
	e.SetFilterMode(p.FilterMode)

	e.SetVCFEnvelope(p.VCFEnv.Attack, p.VCFEnv.Decay, p.VCFEnv.Sustain, p.VCFEnv.Release)
	e.SetVCAEnvelope(p.VCAEnv.Attack, p.VCAEnv.Decay, p.VCAEnv.Sustain, p.VCAEnv.Release)

	e.SetLFORate(p.LFORate)
	e.SetLFOWaveform(p.LFOWave)
	e.SetLFOToVCF(p.LFOToVCF)
	e.SetLFOToVCO(p.LFOToVCO)
	e.SetEnvToVCF(p.EnvToVCF)

	e.SetEffectMode(p.Effect)

	e.dco1Level.setImmediate(e.dco1Level.target)
	e.dco2Level.setImmediate(e.dco2Level.target)
	e.cutoff.setImmediate(e.cutoff.target)
}

// FactoryPresets returns the built-in sounds. Index 0 is the init patch.
func FactoryPresets() []Preset {
	return []Preset{
		{
			Name:       "Init 1",
			DCO1Octave: Octave8, DCO1Wave: dco.WaveSaw,
			DCO2Octave: Octave8, DCO2Wave: dco.WaveSaw,
			PulseWidth: 0.5,
			OscMix:     0.0,
			Cutoff:     0.79, Resonance: 0.16, KeyTracking: 0.5,
			FilterMode: vcf.ModeLP24,
			VCFEnv:     ADSR{Attack: 4, Decay: 31, Sustain: 50, Release: 24},
			VCAEnv:     ADSR{Attack: 1, Decay: 39, Sustain: 79, Release: 16},
			LFORate:    32, LFOWave: lfo.WaveTriangle,
			Effect: EffectChorus,
		},
		{
			Name:       "Bass 1",
			DCO1Octave: Octave16, DCO1Wave: dco.WavePulse,
			DCO2Octave: Octave16, DCO2Wave: dco.WaveSaw,
			PulseWidth: 0.31,
			OscMix:     0.0,
			Cutoff:     0.39, Resonance: 0.39, KeyTracking: 0.75,
			FilterMode: vcf.ModeLP24,
			VCFEnv:     ADSR{Attack: 0, Decay: 27, Sustain: 16, Release: 8},
			VCAEnv:     ADSR{Attack: 0, Decay: 31, Sustain: 63, Release: 12},
			LFORate:    32, LFOWave: lfo.WaveTriangle,
			Effect: EffectChorus,
		},
		{
			Name:       "Lead 1",
			DCO1Octave: Octave8, DCO1Wave: dco.WaveSaw,
			DCO2Octave: Octave4, DCO2Wave: dco.WaveSaw,
			PulseWidth: 0.5,
			Sync:       SyncHard,
			OscMix:     0.3,
			Cutoff:     0.71, Resonance: 0.55, KeyTracking: 0.4,
			FilterMode: vcf.ModeLP24,
			VCFEnv:     ADSR{Attack: 4, Decay: 24, Sustain: 47, Release: 20},
			VCAEnv:     ADSR{Attack: 2, Decay: 24, Sustain: 79, Release: 16},
			LFORate:    50, LFOWave: lfo.WaveTriangle,
			LFOToVCF: 0.3,
			Effect:   EffectChorus,
		},
		{
			Name:       "Pad 1",
			DCO1Octave: Octave8, DCO1Wave: dco.WaveSaw,
			DCO2Octave: Octave8, DCO2Wave: dco.WaveSaw,
			PulseWidth:  0.5,
			DetuneCents: 12,
			OscMix:      0.5,
			Cutoff:      0.63, Resonance: 0.2, KeyTracking: 0.2,
			FilterMode: vcf.ModeLP24,
			VCFEnv:     ADSR{Attack: 35, Decay: 39, Sustain: 55, Release: 39},
			VCAEnv:     ADSR{Attack: 39, Decay: 39, Sustain: 79, Release: 55},
			LFORate:    35, LFOWave: lfo.WaveTriangle,
			Effect: EffectChorus,
		},
		{
			Name:       "Brass 1",
			DCO1Octave: Octave8, DCO1Wave: dco.WaveSaw,
			DCO2Octave: Octave8, DCO2Wave: dco.WaveSaw,
			PulseWidth: 0.5,
			XMod:       0.15,
			OscMix:     0.4,
			Cutoff:     0.59, Resonance: 0.24, KeyTracking: 0.6,
			FilterMode: vcf.ModeLP24,
			VCFEnv:     ADSR{Attack: 12, Decay: 35, Sustain: 51, Release: 27},
			VCAEnv:     ADSR{Attack: 12, Decay: 35, Sustain: 71, Release: 24},
			LFORate:    40, LFOWave: lfo.WaveTriangle,
			EnvToVCF: -0.2,
			Effect:   EffectChorus,
		},
		{
			Name:       "String 1",
			DCO1Octave: Octave8, DCO1Wave: dco.WaveSaw,
			DCO2Octave: Octave8, DCO2Wave: dco.WaveSaw,
			PulseWidth:  0.5,
			DetuneCents: 20,
			OscMix:      0.5,
			Cutoff:      0.75, Resonance: 0.16, KeyTracking: 0.25,
			FilterMode: vcf.ModeLP24,
			VCFEnv:     ADSR{Attack: 47, Decay: 43, Sustain: 59, Release: 47},
			VCAEnv:     ADSR{Attack: 51, Decay: 43, Sustain: 79, Release: 63},
			LFORate:    38, LFOWave: lfo.WaveTriangle,
			LFOToVCO: 0.2,
			Effect:   EffectChorus,
		},
	}
}
