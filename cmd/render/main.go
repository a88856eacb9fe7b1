package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/cldmnky/drupiter-go"
)

// Default demo phrase: an Am arpeggio followed by a held chord.
const defaultNotes = "57@0:0.4 60@0.4:0.4 64@0.8:0.4 69@1.2:0.8 57@2.2:1.5 60@2.2:1.5 64@2.2:1.5"

func main() {
	var (
		outPath    = flag.String("o", "out.wav", "output WAV path")
		sampleRate = flag.Int("sample-rate", 48000, "render sample rate")
		presetName = flag.String("preset", "Init 1", "factory preset name")
		modeName   = flag.String("mode", "poly", "voice mode: mono|poly|unison")
		effectName = flag.String("effect", "chorus", "effect: chorus|space|both|dry")
		tail       = flag.Float64("tail", 1.5, "seconds to render after the last note-off")
		notesSpec  = flag.String("notes", defaultNotes, "notes as space-separated midi@start:dur entries")
	)
	flag.Parse()

	events, err := parseNotes(*notesSpec)
	if err != nil {
		log.Fatal(err)
	}

	cfg := drupiter.DefaultRenderConfig()
	cfg.SampleRate = *sampleRate
	cfg.Preset = *presetName
	cfg.Tail = *tail
	switch strings.ToLower(*modeName) {
	case "mono":
		cfg.Mode = drupiter.ModeMonophonic
	case "poly":
		cfg.Mode = drupiter.ModePolyphonic
	case "unison":
		cfg.Mode = drupiter.ModeUnison
	default:
		log.Fatalf("invalid -mode %q (expected mono|poly|unison)", *modeName)
	}
	switch strings.ToLower(*effectName) {
	case "chorus":
		cfg.Effect = drupiter.EffectChorus
	case "space":
		cfg.Effect = drupiter.EffectSpace
	case "both":
		cfg.Effect = drupiter.EffectBoth
	case "dry":
		cfg.Effect = drupiter.EffectDry
	default:
		log.Fatalf("invalid -effect %q (expected chorus|space|both|dry)", *effectName)
	}

	samples, err := drupiter.RenderNotes(cfg, events)
	if err != nil {
		log.Fatal(err)
	}
	if err := drupiter.WriteWAVFile(*outPath, samples, cfg.SampleRate); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%d frames, %g s)\n", *outPath, len(samples)/2, float64(len(samples)/2)/float64(cfg.SampleRate))
}

// parseNotes reads entries of the form midi@start:duration, e.g. "60@0:0.5".
func parseNotes(spec string) ([]drupiter.NoteEvent, error) {
	var events []drupiter.NoteEvent
	for _, tok := range strings.Fields(spec) {
		at := strings.IndexByte(tok, '@')
		colon := strings.LastIndexByte(tok, ':')
		if at < 0 || colon < at {
			return nil, fmt.Errorf("bad note entry %q (want midi@start:duration)", tok)
		}
		note, err := strconv.Atoi(tok[:at])
		if err != nil {
			return nil, fmt.Errorf("bad midi note in %q: %w", tok, err)
		}
		start, err := strconv.ParseFloat(tok[at+1:colon], 64)
		if err != nil {
			return nil, fmt.Errorf("bad start time in %q: %w", tok, err)
		}
		dur, err := strconv.ParseFloat(tok[colon+1:], 64)
		if err != nil {
			return nil, fmt.Errorf("bad duration in %q: %w", tok, err)
		}
		events = append(events, drupiter.NoteEvent{Note: note, Velocity: 100, Start: start, Duration: dur})
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	return events, nil
}
