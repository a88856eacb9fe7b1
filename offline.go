package drupiter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	intsynth "github.com/cldmnky/drupiter-go/internal/synth"
)

// NoteEvent schedules one note for offline rendering. Times are in seconds
// from the start of the render.
type NoteEvent struct {
	Note     int
	Velocity int
	Start    float64
	Duration float64
}

// RenderConfig controls an offline render.
type RenderConfig struct {
	SampleRate int
	Preset     string
	Mode       Mode
	Effect     Effect
	// Tail keeps rendering after the last note-off so releases ring out.
	Tail float64
}

// DefaultRenderConfig renders polyphonically at 48 kHz with a one-second tail.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		SampleRate: 48000,
		Preset:     "Init 1",
		Mode:       ModePolyphonic,
		Effect:     EffectChorus,
		Tail:       1.0,
	}
}

// RenderNotes renders the scheduled notes to interleaved stereo float32.
// Events may be given in any order.
func RenderNotes(cfg RenderConfig, events []NoteEvent) ([]float32, error) {
	if cfg.SampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}

	engine := intsynth.New(float64(cfg.SampleRate))
	if cfg.Preset != "" {
		if err := applyPresetByName(engine, cfg.Preset); err != nil {
			return nil, err
		}
	}
	engine.SetMode(cfg.Mode.internal())
	engine.SetEffectMode(cfg.Effect.internal())

	type timedEvent struct {
		frame int
		note  int
		vel   int
		on    bool
	}
	var timeline []timedEvent
	end := 0.0
	for _, ev := range events {
		if ev.Start < 0 || ev.Duration <= 0 {
			return nil, fmt.Errorf("bad note event timing: start=%v duration=%v", ev.Start, ev.Duration)
		}
		timeline = append(timeline,
			timedEvent{frame: int(ev.Start * float64(cfg.SampleRate)), note: ev.Note, vel: ev.Velocity, on: true},
			timedEvent{frame: int((ev.Start + ev.Duration) * float64(cfg.SampleRate)), note: ev.Note, on: false},
		)
		if off := ev.Start + ev.Duration; off > end {
			end = off
		}
	}
	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].frame < timeline[j].frame })

	totalFrames := int((end + cfg.Tail) * float64(cfg.SampleRate))
	out := make([]float32, totalFrames*2)

	next := 0
	for frame := 0; frame < totalFrames; {
		for next < len(timeline) && timeline[next].frame <= frame {
			ev := timeline[next]
			if ev.on {
				engine.NoteOn(ev.note, ev.vel)
			} else {
				engine.NoteOff(ev.note)
			}
			next++
		}

		blockEnd := frame + intsynth.MaxFrames
		if next < len(timeline) && timeline[next].frame < blockEnd {
			blockEnd = timeline[next].frame
		}
		if blockEnd > totalFrames {
			blockEnd = totalFrames
		}
		if blockEnd <= frame {
			blockEnd = frame + 1
		}

		engine.Process(out[frame*2 : blockEnd*2])
		frame = blockEnd
	}

	return out, nil
}

// WriteWAV encodes interleaved stereo float32 samples as 16-bit PCM WAV.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		v := int(s * 32767.0)
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		buf.Data[i] = v
	}

	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// WriteWAVFile renders samples to a WAV file at path.
func WriteWAVFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
