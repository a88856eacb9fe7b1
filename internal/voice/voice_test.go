package voice

import (
	"math"
	"testing"

	"github.com/cldmnky/drupiter-go/internal/env"
)

func TestNoteToFreq(t *testing.T) {
	for _, tc := range []struct {
		note int
		want float64
	}{
		{69, 440.0},
		{57, 220.0},
		{81, 880.0},
		{60, 261.6255653005986},
	} {
		if got := NoteToFreq(tc.note); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("NoteToFreq(%d) = %f, want %f", tc.note, got, tc.want)
		}
	}
}

func TestPolyphonicAllocatesDistinctVoices(t *testing.T) {
	a := NewAllocator(48000)
	a.SetMode(ModePolyphonic)

	seen := map[int]bool{}
	for i, note := range []int{60, 64, 67, 71} {
		res := a.NoteOn(note, 0.8)
		if seen[res.VoiceIndex] {
			t.Fatalf("note %d reused voice %d", note, res.VoiceIndex)
		}
		seen[res.VoiceIndex] = true
		if res.Legato {
			t.Errorf("poly note %d flagged legato", i)
		}
		v := a.Voice(res.VoiceIndex)
		if !v.Active || v.Note != note {
			t.Fatalf("voice %d not holding note %d", res.VoiceIndex, note)
		}
	}
}

func TestOldestNoteStealPrefersReleasedVoice(t *testing.T) {
	a := NewAllocator(48000)
	a.SetMode(ModePolyphonic)
	a.SetStrategy(StrategyOldestNote)

	indices := map[int]int{}
	for _, note := range []int{60, 62, 64, 65} {
		res := a.NoteOn(note, 0.8)
		indices[note] = res.VoiceIndex
	}

	// Release a mid-aged note; its voice rings out in release.
	a.NoteOff(62)
	if a.Voice(indices[62]).EnvAmp.State() != env.StateRelease {
		t.Fatal("released voice should be in release stage")
	}

	res := a.NoteOn(72, 0.8)
	if res.VoiceIndex != indices[62] {
		t.Fatalf("steal picked voice %d, want the releasing voice %d", res.VoiceIndex, indices[62])
	}
}

func TestOldestNoteStealFallsBackToOldestActive(t *testing.T) {
	a := NewAllocator(48000)
	a.SetMode(ModePolyphonic)
	a.SetStrategy(StrategyOldestNote)

	first := a.NoteOn(60, 0.8)
	for _, note := range []int{62, 64, 65} {
		a.NoteOn(note, 0.8)
	}

	res := a.NoteOn(72, 0.8)
	if res.VoiceIndex != first.VoiceIndex {
		t.Fatalf("steal picked voice %d, want the oldest gated voice %d", res.VoiceIndex, first.VoiceIndex)
	}
}

func TestMonoLegatoAndLastNotePriority(t *testing.T) {
	a := NewAllocator(48000)
	a.SetMode(ModeMonophonic)

	res := a.NoteOn(60, 0.8)
	if res.Legato {
		t.Fatal("first note should not be legato")
	}
	res = a.NoteOn(64, 0.8)
	if !res.Legato {
		t.Fatal("overlapping note should be legato")
	}
	res = a.NoteOn(67, 0.8)
	if !res.Legato {
		t.Fatal("third overlapping note should be legato")
	}

	// Releasing the sounding note falls back to the most recent held one.
	off := a.NoteOff(67)
	if !off.Retrigger || off.RetriggerNote != 64 {
		t.Fatalf("expected retrigger of 64, got %+v", off)
	}
	off = a.NoteOff(64)
	if !off.Retrigger || off.RetriggerNote != 60 {
		t.Fatalf("expected retrigger of 60, got %+v", off)
	}
	off = a.NoteOff(60)
	if off.Retrigger || off.HasHeldNotes {
		t.Fatalf("last release should not retrigger, got %+v", off)
	}
	if a.Voice(0).EnvAmp.State() != env.StateRelease {
		t.Fatal("final release should gate the voice off")
	}
}

func TestMonoReleaseOfOldNoteIsSilent(t *testing.T) {
	a := NewAllocator(48000)
	a.SetMode(ModeMonophonic)

	a.NoteOn(60, 0.8)
	a.NoteOn(64, 0.8)

	// Releasing a note that is held but not sounding must not retrigger.
	off := a.NoteOff(60)
	if off.Retrigger {
		t.Fatalf("releasing a background note retriggered: %+v", off)
	}
	if a.Voice(0).Note != 64 {
		t.Fatalf("sounding note changed to %d", a.Voice(0).Note)
	}
}

func TestDuplicateHeldNotePromoted(t *testing.T) {
	a := NewAllocator(48000)
	a.SetMode(ModeMonophonic)

	a.NoteOn(60, 0.8)
	a.NoteOn(64, 0.8)
	a.NoteOn(60, 0.8) // re-press: promote 60 to most recent

	off := a.NoteOff(60)
	if !off.Retrigger || off.RetriggerNote != 64 {
		t.Fatalf("expected fallback to 64 after releasing re-pressed 60, got %+v", off)
	}
}

func TestHeldNoteOverflowEvictsOldest(t *testing.T) {
	a := NewAllocator(48000)
	a.SetMode(ModeMonophonic)

	// One more key than the stack holds.
	first := 48
	last := first + maxHeldNotes
	for note := first; note <= last; note++ {
		a.NoteOn(note, 0.8)
	}

	// The newest key is tracked: releasing it falls back to its predecessor.
	off := a.NoteOff(last)
	if !off.Retrigger || off.RetriggerNote != last-1 {
		t.Fatalf("newest key lost on overflow, got %+v", off)
	}

	// Unwind everything that should still be held.
	for note := last - 1; note > first; note-- {
		a.NoteOff(note)
	}
	if a.HasHeldNotes() {
		t.Fatal("stack not empty after releasing all surviving keys")
	}

	// The oldest key was evicted, so its release is a no-op.
	off = a.NoteOff(first)
	if off.Retrigger || off.HasHeldNotes {
		t.Fatalf("evicted key should be gone, got %+v", off)
	}
}

func TestGlideRampsToTarget(t *testing.T) {
	const sampleRate = 48000.0
	a := NewAllocator(sampleRate)
	a.SetMode(ModeMonophonic)
	a.SetPortamentoTime(0.1)

	a.NoteOn(57, 0.8) // 220 Hz
	res := a.NoteOn(69, 0.8)
	v := a.Voice(res.VoiceIndex)

	if !v.Gliding {
		t.Fatal("legato note with portamento should glide")
	}
	if v.PitchHz != 220.0 {
		t.Fatalf("glide should start at the old pitch, got %f", v.PitchHz)
	}

	prev := v.PitchHz
	for i := 0; i < int(0.2*sampleRate); i++ {
		v.AdvanceGlide()
		if v.PitchHz < prev {
			t.Fatalf("glide moved backwards at sample %d", i)
		}
		prev = v.PitchHz
	}
	if v.Gliding {
		t.Fatal("glide never arrived")
	}
	if math.Abs(v.PitchHz-440.0) > 1e-6 {
		t.Fatalf("glide settled at %f, want 440", v.PitchHz)
	}
}

func TestZeroPortamentoJumpsImmediately(t *testing.T) {
	a := NewAllocator(48000)
	a.SetMode(ModeMonophonic)
	a.SetPortamentoTime(0)

	a.NoteOn(57, 0.8)
	res := a.NoteOn(69, 0.8)
	v := a.Voice(res.VoiceIndex)
	if v.Gliding {
		t.Fatal("no glide expected with zero portamento")
	}
	if v.PitchHz != 440.0 {
		t.Fatalf("pitch should jump to 440, got %f", v.PitchHz)
	}
}

func TestAllNotesOffReleasesEverything(t *testing.T) {
	a := NewAllocator(48000)
	a.SetMode(ModePolyphonic)
	for _, note := range []int{60, 64, 67} {
		a.NoteOn(note, 0.8)
	}

	a.AllNotesOff()
	if a.HasHeldNotes() {
		t.Fatal("held notes survived AllNotesOff")
	}
	for i := 0; i < MaxVoices; i++ {
		v := a.Voice(i)
		if v.Active && v.EnvAmp.State() != env.StateRelease {
			t.Fatalf("voice %d not released (state %d)", i, v.EnvAmp.State())
		}
	}
}

func TestReclaimIdleVoices(t *testing.T) {
	a := NewAllocator(48000)
	a.SetMode(ModePolyphonic)
	res := a.NoteOn(60, 0.8)
	v := a.Voice(res.VoiceIndex)
	v.EnvAmp.SetRelease(0.001)

	// Run the envelope through attack and then all the way out.
	for i := 0; i < 48000 && v.EnvAmp.State() != env.StateSustain; i++ {
		v.EnvAmp.Process()
	}
	a.NoteOff(60)
	for i := 0; i < 48000 && v.EnvAmp.IsActive(); i++ {
		v.EnvAmp.Process()
	}

	a.ReclaimIdleVoices()
	if v.Active {
		t.Fatal("finished voice not reclaimed")
	}
	if a.IsAnyVoiceSounding() {
		t.Fatal("pool should be silent after reclaim")
	}
}
