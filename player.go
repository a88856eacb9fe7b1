package drupiter

import (
	"errors"
	"fmt"
	"sync"

	intaudio "github.com/cldmnky/drupiter-go/internal/audio"
	intsynth "github.com/cldmnky/drupiter-go/internal/synth"
	intvoice "github.com/cldmnky/drupiter-go/internal/voice"
)

// Mode selects the synthesis topology.
type Mode int

const (
	ModeMonophonic Mode = iota
	ModePolyphonic
	ModeUnison
)

// Strategy selects the polyphonic voice-stealing policy.
type Strategy int

const (
	StealRoundRobin Strategy = iota
	StealOldestNote
	StealFirstAvailable
)

// Effect selects the output stage treatment.
type Effect int

const (
	EffectChorus Effect = iota
	EffectSpace
	EffectDry
	EffectBoth
)

func (m Mode) internal() intvoice.Mode {
	switch m {
	case ModePolyphonic:
		return intvoice.ModePolyphonic
	case ModeUnison:
		return intvoice.ModeUnison
	default:
		return intvoice.ModeMonophonic
	}
}

func (s Strategy) internal() intvoice.Strategy {
	switch s {
	case StealOldestNote:
		return intvoice.StrategyOldestNote
	case StealFirstAvailable:
		return intvoice.StrategyFirstAvailable
	default:
		return intvoice.StrategyRoundRobin
	}
}

func (e Effect) internal() intsynth.EffectMode {
	switch e {
	case EffectSpace:
		return intsynth.EffectSpace
	case EffectDry:
		return intsynth.EffectDry
	case EffectBoth:
		return intsynth.EffectBoth
	default:
		return intsynth.EffectChorus
	}
}

type PlayerOption func(*playerConfig)

type playerConfig struct {
	preset    string
	mode      Mode
	effect    Effect
	sampleTap func([]float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{preset: "Init 1", mode: ModePolyphonic, effect: EffectChorus}
}

// WithPreset selects the starting factory preset by name (see Presets).
func WithPreset(name string) PlayerOption {
	return func(cfg *playerConfig) { cfg.preset = name }
}

// WithMode selects the starting synthesis topology.
func WithMode(mode Mode) PlayerOption {
	return func(cfg *playerConfig) { cfg.mode = mode }
}

// WithEffect selects the starting output effect.
func WithEffect(effect Effect) PlayerOption {
	return func(cfg *playerConfig) { cfg.effect = effect }
}

// WithSampleTap installs a callback invoked with each generated stereo
// buffer. The callback runs on the audio thread; keep work brief.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) { cfg.sampleTap = tap }
}

// Presets lists the factory preset names.
func Presets() []string {
	ps := intsynth.FactoryPresets()
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

// engineSource serializes engine access between the audio thread (Process)
// and the caller's note/parameter methods.
type engineSource struct {
	mu     sync.Mutex
	engine *intsynth.Engine
	tap    func([]float32)
}

func (s *engineSource) Process(dst []float32) {
	s.mu.Lock()
	s.engine.Process(dst)
	s.mu.Unlock()
	if s.tap != nil {
		s.tap(dst)
	}
}

func (s *engineSource) do(fn func(e *intsynth.Engine)) {
	s.mu.Lock()
	fn(s.engine)
	s.mu.Unlock()
}

// Player is the realtime facade: a synth engine streamed to the OS audio
// device. Create with NewPlayer, start output with Start, then drive it with
// NoteOn/NoteOff.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	source     *engineSource
	audio      *intaudio.Player
}

// NewPlayer builds the engine; audio output does not start until Start.
func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	engine := intsynth.New(float64(sampleRate))
	if cfg.preset != "" {
		if err := applyPresetByName(engine, cfg.preset); err != nil {
			return nil, err
		}
	}
	engine.SetMode(cfg.mode.internal())
	engine.SetEffectMode(cfg.effect.internal())

	return &Player{
		sampleRate: sampleRate,
		source:     &engineSource{engine: engine, tap: cfg.sampleTap},
	}, nil
}

func applyPresetByName(engine *intsynth.Engine, name string) error {
	for _, p := range intsynth.FactoryPresets() {
		if p.Name == name {
			engine.ApplyPreset(p)
			return nil
		}
	}
	return fmt.Errorf("unknown preset %q", name)
}

// Start opens the audio device and begins streaming.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
		return nil
	}
	backend, err := intaudio.NewPlayer(p.sampleRate, p.source)
	if err != nil {
		return err
	}
	p.audio = backend
	p.audio.Play()
	return nil
}

// Pause suspends output without losing engine state.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

// Stop releases every voice and closes the audio device.
func (p *Player) Stop() error {
	p.source.do(func(e *intsynth.Engine) { e.AllNotesOff() })
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	return err
}

// NoteOn triggers a note. velocity is MIDI 0-127.
func (p *Player) NoteOn(note, velocity int) {
	p.source.do(func(e *intsynth.Engine) { e.NoteOn(note, velocity) })
}

// NoteOff releases a note; its release tail keeps sounding.
func (p *Player) NoteOff(note int) {
	p.source.do(func(e *intsynth.Engine) { e.NoteOff(note) })
}

// AllNotesOff gates every voice into release.
func (p *Player) AllNotesOff() {
	p.source.do(func(e *intsynth.Engine) { e.AllNotesOff() })
}

// SetPreset switches to a factory preset by name.
func (p *Player) SetPreset(name string) error {
	var err error
	p.source.do(func(e *intsynth.Engine) { err = applyPresetByName(e, name) })
	return err
}

// SetMode switches the synthesis topology.
func (p *Player) SetMode(mode Mode) {
	p.source.do(func(e *intsynth.Engine) { e.SetMode(mode.internal()) })
}

// SetAllocationStrategy selects the polyphonic stealing policy.
func (p *Player) SetAllocationStrategy(s Strategy) {
	p.source.do(func(e *intsynth.Engine) { e.SetAllocationStrategy(s.internal()) })
}

// SetEffect switches the output stage treatment.
func (p *Player) SetEffect(effect Effect) {
	p.source.do(func(e *intsynth.Engine) { e.SetEffectMode(effect.internal()) })
}

// SetUnisonDetune sets the unison stack detune in cents (0-50).
func (p *Player) SetUnisonDetune(cents float64) {
	p.source.do(func(e *intsynth.Engine) { e.SetUnisonDetune(cents) })
}

// SetPortamentoTime sets legato glide time in seconds (0-0.5).
func (p *Player) SetPortamentoTime(sec float64) {
	p.source.do(func(e *intsynth.Engine) { e.SetPortamentoTime(sec) })
}

// SetCutoff sets the normalized filter cutoff (0-1).
func (p *Player) SetCutoff(norm float64) {
	p.source.do(func(e *intsynth.Engine) { e.SetCutoff(norm) })
}

// SetResonance sets filter resonance (0-1).
func (p *Player) SetResonance(res float64) {
	p.source.do(func(e *intsynth.Engine) { e.SetResonance(res) })
}

// SetVolume scales output in the audio backend (0-1).
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.SetVolume(v)
	}
}

// IsPlaying reports whether the audio device is streaming.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audio != nil && p.audio.IsPlaying()
}
