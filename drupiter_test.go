package drupiter_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cldmnky/drupiter-go"
)

func TestPresetsListsFactorySounds(t *testing.T) {
	names := drupiter.Presets()
	require.NotEmpty(t, names)
	assert.Equal(t, "Init 1", names[0])
	assert.Contains(t, names, "Bass 1")
	assert.Contains(t, names, "Pad 1")
}

func TestRenderNotesProducesAudio(t *testing.T) {
	cfg := drupiter.DefaultRenderConfig()
	cfg.Tail = 0.5

	samples, err := drupiter.RenderNotes(cfg, []drupiter.NoteEvent{
		{Note: 60, Velocity: 100, Start: 0, Duration: 0.5},
		{Note: 64, Velocity: 100, Start: 0.25, Duration: 0.5},
	})
	require.NoError(t, err)

	wantFrames := int((0.75 + 0.5) * float64(cfg.SampleRate))
	assert.Len(t, samples, wantFrames*2)

	var maxAbs float64
	for _, s := range samples {
		require.False(t, math.IsNaN(float64(s)))
		if a := math.Abs(float64(s)); a > maxAbs {
			maxAbs = a
		}
	}
	assert.Greater(t, maxAbs, 0.001, "render should contain signal")
	assert.LessOrEqual(t, maxAbs, 1.0, "render should not clip")
}

func TestRenderNotesRejectsUnknownPreset(t *testing.T) {
	cfg := drupiter.DefaultRenderConfig()
	cfg.Preset = "No Such Patch"
	_, err := drupiter.RenderNotes(cfg, []drupiter.NoteEvent{{Note: 60, Velocity: 100, Start: 0, Duration: 0.1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No Such Patch")
}

func TestRenderNotesRejectsBadTiming(t *testing.T) {
	cfg := drupiter.DefaultRenderConfig()
	_, err := drupiter.RenderNotes(cfg, []drupiter.NoteEvent{{Note: 60, Velocity: 100, Start: -1, Duration: 0.1}})
	require.Error(t, err)

	_, err = drupiter.RenderNotes(cfg, []drupiter.NoteEvent{{Note: 60, Velocity: 100, Start: 0, Duration: 0}})
	require.Error(t, err)
}

func TestRenderModesDiffer(t *testing.T) {
	render := func(mode drupiter.Mode) []float32 {
		cfg := drupiter.DefaultRenderConfig()
		cfg.Mode = mode
		cfg.Tail = 0.2
		samples, err := drupiter.RenderNotes(cfg, []drupiter.NoteEvent{
			{Note: 57, Velocity: 100, Start: 0, Duration: 0.3},
		})
		require.NoError(t, err)
		return samples
	}

	mono := render(drupiter.ModeMonophonic)
	uni := render(drupiter.ModeUnison)
	require.Equal(t, len(mono), len(uni))

	var diff float64
	for i := range mono {
		diff += math.Abs(float64(mono[i]) - float64(uni[i]))
	}
	assert.Greater(t, diff, 1.0, "unison stack should sound different from a single voice")
}

func TestWriteWAVFileRoundTrip(t *testing.T) {
	cfg := drupiter.DefaultRenderConfig()
	cfg.Tail = 0.2
	samples, err := drupiter.RenderNotes(cfg, []drupiter.NoteEvent{
		{Note: 69, Velocity: 110, Start: 0, Duration: 0.2},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "take.wav")
	require.NoError(t, drupiter.WriteWAVFile(path, samples, cfg.SampleRate))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	require.True(t, dec.IsValidFile())
	assert.Equal(t, uint16(2), dec.NumChans)
	assert.Equal(t, uint32(cfg.SampleRate), dec.SampleRate)
	assert.Equal(t, uint16(16), dec.BitDepth)

	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, len(samples), len(buf.Data))
}

func TestNewPlayerValidatesInput(t *testing.T) {
	_, err := drupiter.NewPlayer(0)
	require.Error(t, err)

	_, err = drupiter.NewPlayer(48000, drupiter.WithPreset("No Such Patch"))
	require.Error(t, err)

	pl, err := drupiter.NewPlayer(48000, drupiter.WithPreset("Lead 1"), drupiter.WithMode(drupiter.ModeUnison))
	require.NoError(t, err)
	require.NotNil(t, pl)
	assert.False(t, pl.IsPlaying(), "audio must not start before Start")

	// Engine-side controls work without an audio device.
	pl.NoteOn(60, 100)
	pl.NoteOff(60)
	pl.AllNotesOff()
	require.NoError(t, pl.SetPreset("Bass 1"))
	require.Error(t, pl.SetPreset("nope"))
	require.NoError(t, pl.Stop())
}
