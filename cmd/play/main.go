package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cldmnky/drupiter-go"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		presetName = flag.String("preset", "Init 1", "factory preset name (use -list to see them)")
		modeName   = flag.String("mode", "poly", "voice mode: mono|poly|unison")
		effectName = flag.String("effect", "chorus", "effect: chorus|space|both|dry")
		detune     = flag.Float64("detune", 10, "unison detune in cents (0-50)")
		glide      = flag.Float64("glide", 0, "portamento time in seconds (mono/unison)")
		tempo      = flag.Duration("step", 300*time.Millisecond, "arpeggio step duration")
		list       = flag.Bool("list", false, "list factory presets and exit")
	)
	flag.Parse()

	if *list {
		for _, name := range drupiter.Presets() {
			fmt.Println(name)
		}
		return
	}

	mode, err := parseMode(*modeName)
	if err != nil {
		log.Fatal(err)
	}
	effect, err := parseEffect(*effectName)
	if err != nil {
		log.Fatal(err)
	}

	pl, err := drupiter.NewPlayer(*sampleRate,
		drupiter.WithPreset(*presetName),
		drupiter.WithMode(mode),
		drupiter.WithEffect(effect),
	)
	if err != nil {
		log.Fatal(err)
	}
	pl.SetUnisonDetune(*detune)
	pl.SetPortamentoTime(*glide)

	if err := pl.Start(); err != nil {
		log.Fatal(err)
	}
	defer pl.Stop()

	// A minor arpeggio up and a chord to finish.
	notes := []int{57, 60, 64, 69, 64, 60}
	for _, note := range notes {
		pl.NoteOn(note, 100)
		time.Sleep(*tempo)
		pl.NoteOff(note)
	}
	for _, note := range []int{45, 57, 60, 64} {
		pl.NoteOn(note, 110)
	}
	time.Sleep(4 * *tempo)
	pl.AllNotesOff()
	time.Sleep(2 * time.Second) // let releases ring out
}

func parseMode(name string) (drupiter.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mono":
		return drupiter.ModeMonophonic, nil
	case "poly":
		return drupiter.ModePolyphonic, nil
	case "unison":
		return drupiter.ModeUnison, nil
	default:
		return 0, fmt.Errorf("invalid -mode %q (expected mono|poly|unison)", name)
	}
}

func parseEffect(name string) (drupiter.Effect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "chorus":
		return drupiter.EffectChorus, nil
	case "space":
		return drupiter.EffectSpace, nil
	case "both":
		return drupiter.EffectBoth, nil
	case "dry":
		return drupiter.EffectDry, nil
	default:
		return 0, fmt.Errorf("invalid -effect %q (expected chorus|space|both|dry)", name)
	}
}
