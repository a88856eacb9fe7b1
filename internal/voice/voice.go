// Package voice implements the fixed-size voice pool and the note-on/note-off
// allocation policy: held-note bookkeeping with last-note priority for the
// monophonic modes, and pluggable stealing strategies for polyphonic mode.
package voice

import (
	"math"

	"github.com/cldmnky/drupiter-go/internal/dco"
	"github.com/cldmnky/drupiter-go/internal/env"
	"github.com/cldmnky/drupiter-go/internal/vcf"
)

// MaxVoices is the pool size. Fixed at init, never grows.
const MaxVoices = 4

// maxHeldNotes caps the held-note stack used by the monophonic modes.
const maxHeldNotes = 16

// Mode selects the synthesis topology.
type Mode int

const (
	ModeMonophonic Mode = iota
	ModePolyphonic
	ModeUnison
)

// Strategy selects how a voice is stolen when the pool is exhausted.
type Strategy int

const (
	StrategyRoundRobin Strategy = iota
	StrategyOldestNote
	StrategyFirstAvailable
)

// Voice is one unit of allocation: an oscillator pair, a filter, three
// envelopes and glide state. All fields are owned exclusively by the render
// loop; nothing here is shared across voices.
type Voice struct {
	Active     bool
	Note       int
	Velocity   float64
	PitchHz    float64
	NoteOnTime uint32

	DCO1      dco.DCO
	DCO2      dco.DCO
	VCF       vcf.VCF
	EnvAmp    env.Envelope
	EnvFilter env.Envelope
	EnvPitch  env.Envelope

	// Per-voice output HPF state (one-pole, y = a*(y1 + x - x1)).
	HPFPrevOut float64
	HPFPrevIn  float64

	GlideTargetHz  float64
	GlideIncrement float64 // per-sample step in log-frequency space
	Gliding        bool
}

// Init prepares all DSP components for the given sample rate.
func (v *Voice) Init(sampleRate float64) {
	v.DCO1.Init(sampleRate)
	v.DCO2.Init(sampleRate)
	v.VCF.Init(sampleRate)
	v.EnvAmp.Init(sampleRate)
	v.EnvFilter.Init(sampleRate)
	v.EnvPitch.Init(sampleRate)
	v.Reset()
}

// Reset returns the voice to its inactive post-init state.
func (v *Voice) Reset() {
	v.Active = false
	v.Note = 0
	v.Velocity = 0
	v.PitchHz = 0
	v.NoteOnTime = 0
	v.HPFPrevOut = 0
	v.HPFPrevIn = 0
	v.GlideTargetHz = 0
	v.GlideIncrement = 0
	v.Gliding = false
	v.EnvAmp.Reset()
	v.EnvFilter.Reset()
	v.EnvPitch.Reset()
}

// Sounding reports whether the voice must still be rendered: either gated, or
// ringing out its release tail.
func (v *Voice) Sounding() bool {
	return v.Active || v.EnvAmp.IsActive()
}

// AdvanceGlide moves the pitch one sample along the portamento ramp. Glide
// runs in log-frequency space so the sweep is perceptually linear.
func (v *Voice) AdvanceGlide() {
	if !v.Gliding {
		return
	}
	v.PitchHz *= math.Exp(v.GlideIncrement)

	arrived := (v.GlideIncrement > 0 && v.PitchHz >= v.GlideTargetHz) ||
		(v.GlideIncrement < 0 && v.PitchHz <= v.GlideTargetHz)
	if arrived || v.GlideIncrement == 0 {
		v.PitchHz = v.GlideTargetHz
		v.Gliding = false
	}
}

// NoteOnResult reports what a NoteOn did.
type NoteOnResult struct {
	VoiceIndex int
	Legato     bool // continue envelopes instead of retriggering
}

// NoteOffResult reports what a NoteOff did.
type NoteOffResult struct {
	Retrigger     bool // mono/unison: a previously-held note takes over
	RetriggerNote int
	HasHeldNotes  bool
}

// Allocator owns the voice pool, the held-note stack and the stealing policy.
// It is bookkeeping only; rendering reads the pool from outside. All methods
// assume serialized calls (the host never overlaps note events with a block).
type Allocator struct {
	voices     [MaxVoices]Voice
	mode       Mode
	strategy   Strategy
	sampleRate float64

	heldNotes    [maxHeldNotes]int
	numHeldNotes int
	currentNote  int

	roundRobinIndex int
	timestamp       uint32

	portamentoSec float64
}

// NewAllocator returns an initialized pool.
func NewAllocator(sampleRate float64) *Allocator {
	a := &Allocator{}
	a.Init(sampleRate)
	return a
}

// Init prepares every voice in the pool.
func (a *Allocator) Init(sampleRate float64) {
	a.sampleRate = sampleRate
	a.mode = ModeMonophonic
	a.strategy = StrategyRoundRobin
	a.numHeldNotes = 0
	a.currentNote = 0
	a.roundRobinIndex = 0
	a.timestamp = 0
	for i := range a.voices {
		a.voices[i].Init(sampleRate)
	}
}

// SetMode selects the synthesis topology. Held notes survive a mode switch;
// sounding voices keep ringing out.
func (a *Allocator) SetMode(m Mode) { a.mode = m }

// Mode returns the current topology.
func (a *Allocator) Mode() Mode { return a.mode }

// SetStrategy selects the polyphonic stealing policy.
func (a *Allocator) SetStrategy(s Strategy) { a.strategy = s }

// Strategy returns the stealing policy.
func (a *Allocator) Strategy() Strategy { return a.strategy }

// SetPortamentoTime sets the glide duration in seconds (0 disables).
func (a *Allocator) SetPortamentoTime(sec float64) {
	if sec < 0 {
		sec = 0
	}
	a.portamentoSec = sec
}

// PortamentoTime returns the glide duration in seconds.
func (a *Allocator) PortamentoTime() float64 { return a.portamentoSec }

// Voice returns the voice at idx for rendering. idx must be < MaxVoices.
func (a *Allocator) Voice(idx int) *Voice { return &a.voices[idx] }

// IsAnyVoiceSounding reports whether any voice still needs rendering.
func (a *Allocator) IsAnyVoiceSounding() bool {
	for i := range a.voices {
		if a.voices[i].Sounding() {
			return true
		}
	}
	return false
}

// HasHeldNotes reports whether any key is down (mono/unison bookkeeping).
func (a *Allocator) HasHeldNotes() bool { return a.numHeldNotes > 0 }

// NoteOn triggers a voice for the note. Allocation never fails: with a full
// pool the configured strategy steals a sounding voice, which is an audible
// but normal trade-off.
func (a *Allocator) NoteOn(note int, velocity float64) NoteOnResult {
	a.timestamp++

	hadHeldNotes := a.numHeldNotes > 0

	idx := 0
	stolen := false
	if a.mode == ModePolyphonic {
		idx, stolen = a.allocateVoiceIndex()
	} else {
		a.addHeldNote(note)
		a.currentNote = note
	}

	// Legato applies only in the monophonic modes, when a key was already
	// down. A stolen voice always hard-retriggers.
	legato := a.mode != ModePolyphonic && hadHeldNotes && !stolen

	a.triggerVoice(&a.voices[idx], note, velocity, legato)
	return NoteOnResult{VoiceIndex: idx, Legato: legato}
}

// NoteOff releases the note. In the monophonic modes, releasing the sounding
// note while other keys are held retriggers the most recently held one
// (last-note priority); the caller applies the returned retrigger.
func (a *Allocator) NoteOff(note int) NoteOffResult {
	result := NoteOffResult{}

	a.removeHeldNote(note)
	result.HasHeldNotes = a.numHeldNotes > 0

	switch a.mode {
	case ModePolyphonic:
		for i := range a.voices {
			v := &a.voices[i]
			if v.Active && v.Note == note {
				a.releaseVoice(v)
			}
		}

	default: // mono, unison
		if note != a.currentNote {
			break
		}
		if result.HasHeldNotes {
			result.Retrigger = true
			result.RetriggerNote = a.heldNotes[a.numHeldNotes-1]
			a.currentNote = result.RetriggerNote
			a.triggerVoice(&a.voices[0], result.RetriggerNote, a.voices[0].Velocity, true)
		} else {
			a.currentNote = 0
			if a.voices[0].Active && a.voices[0].Note == note {
				a.releaseVoice(&a.voices[0])
			}
		}
	}

	return result
}

// AllNotesOff clears the held-note stack and gates every active voice into
// release. Cooperative: voices ring out rather than being hard-zeroed.
func (a *Allocator) AllNotesOff() {
	a.numHeldNotes = 0
	a.currentNote = 0
	for i := range a.voices {
		if a.voices[i].Active {
			a.releaseVoice(&a.voices[i])
		}
	}
}

// ReclaimIdleVoices flips the active bit off on voices whose amplitude
// envelope has finished. Called once per block by the render loop.
func (a *Allocator) ReclaimIdleVoices() {
	for i := range a.voices {
		v := &a.voices[i]
		if v.Active && !v.EnvAmp.IsActive() && v.EnvAmp.State() == env.StateIdle {
			v.Active = false
		}
	}
}

func (a *Allocator) allocateVoiceIndex() (idx int, stolen bool) {
	for i := range a.voices {
		if !a.voices[i].Sounding() {
			return i, false
		}
	}
	return a.stealVoiceIndex(), true
}

func (a *Allocator) stealVoiceIndex() int {
	switch a.strategy {
	case StrategyOldestNote:
		return a.stealOldestVoiceIndex()
	case StrategyFirstAvailable:
		return 0
	default:
		a.roundRobinIndex = (a.roundRobinIndex + 1) % MaxVoices
		return a.roundRobinIndex
	}
}

// stealOldestVoiceIndex prefers the oldest voice already in release, falling
// back to the oldest gated voice. Stealing a release tail is far less audible
// than cutting a note still in its attack.
func (a *Allocator) stealOldestVoiceIndex() int {
	oldestReleasing := -1
	oldestActive := -1
	var releasingTime, activeTime uint32 = math.MaxUint32, math.MaxUint32

	for i := range a.voices {
		v := &a.voices[i]
		if v.EnvAmp.State() == env.StateRelease {
			if v.NoteOnTime < releasingTime {
				releasingTime = v.NoteOnTime
				oldestReleasing = i
			}
		} else if v.Active && v.NoteOnTime < activeTime {
			activeTime = v.NoteOnTime
			oldestActive = i
		}
	}

	if oldestReleasing >= 0 {
		return oldestReleasing
	}
	if oldestActive >= 0 {
		return oldestActive
	}
	return 0
}

func (a *Allocator) triggerVoice(v *Voice, note int, velocity float64, legato bool) {
	targetHz := NoteToFreq(note)
	isLegato := legato && v.Active

	if a.portamentoSec > 0.00001 && isLegato && v.PitchHz > 0 {
		v.GlideTargetHz = targetHz
		v.Gliding = true
		logRatio := math.Log(targetHz / v.PitchHz)
		v.GlideIncrement = logRatio / (a.portamentoSec * a.sampleRate)
	} else {
		v.PitchHz = targetHz
		v.GlideTargetHz = targetHz
		v.Gliding = false
		v.GlideIncrement = 0
	}

	v.Active = true
	v.Note = note
	v.Velocity = velocity
	v.NoteOnTime = a.timestamp

	if !isLegato {
		v.EnvAmp.Reset()
		v.EnvFilter.Reset()
		v.EnvPitch.Reset()
		v.HPFPrevOut = 0
		v.HPFPrevIn = 0
		// Velocity shapes the VCA gain and filter modulation downstream, so
		// the envelopes themselves run at full scale.
		v.EnvAmp.NoteOn(1.0)
		v.EnvFilter.NoteOn(1.0)
		v.EnvPitch.NoteOn(1.0)
	}
}

func (a *Allocator) releaseVoice(v *Voice) {
	v.EnvAmp.NoteOff()
	v.EnvFilter.NoteOff()
	v.EnvPitch.NoteOff()
}

// addHeldNote pushes note onto the stack; an already-held note is promoted to
// the tail (most recent) instead of duplicated.
func (a *Allocator) addHeldNote(note int) {
	for i := 0; i < a.numHeldNotes; i++ {
		if a.heldNotes[i] == note {
			copy(a.heldNotes[i:], a.heldNotes[i+1:a.numHeldNotes])
			a.heldNotes[a.numHeldNotes-1] = note
			return
		}
	}
	if a.numHeldNotes == maxHeldNotes {
		// Full stack: evict the oldest entry so the stack always tracks the
		// note that is actually sounding.
		copy(a.heldNotes[:], a.heldNotes[1:a.numHeldNotes])
		a.numHeldNotes--
	}
	a.heldNotes[a.numHeldNotes] = note
	a.numHeldNotes++
}

func (a *Allocator) removeHeldNote(note int) {
	n := 0
	for i := 0; i < a.numHeldNotes; i++ {
		if a.heldNotes[i] != note {
			a.heldNotes[n] = a.heldNotes[i]
			n++
		}
	}
	a.numHeldNotes = n
}

// NoteToFreq converts a MIDI note number to Hz (equal temperament, A4=440).
func NoteToFreq(note int) float64 {
	return 440.0 * math.Exp2(float64(note-69)/12.0)
}
