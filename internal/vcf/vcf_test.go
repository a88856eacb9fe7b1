package vcf

import (
	"math"
	"testing"
)

func sineRMS(f *VCF, freqHz, sampleRate float64, n int) float64 {
	var sum float64
	// Let the filter settle before measuring.
	for i := 0; i < n*2; i++ {
		in := math.Sin(2 * math.Pi * freqHz * float64(i) / sampleRate)
		out := f.Process(in)
		if i >= n {
			sum += out * out
		}
	}
	return math.Sqrt(sum / float64(n))
}

func TestLowpassAttenuatesAboveCutoff(t *testing.T) {
	for _, mode := range []Mode{ModeLP12, ModeLP24} {
		f := New(48000)
		f.SetMode(mode)
		f.SetCutoff(500)

		low := sineRMS(f, 100, 48000, 4096)
		f.Reset()
		high := sineRMS(f, 8000, 48000, 4096)

		if high >= low*0.3 {
			t.Errorf("mode %d: 8 kHz should be well below 100 Hz, got low=%f high=%f", mode, low, high)
		}
	}
}

func TestLP24RollsOffSteeperThanLP12(t *testing.T) {
	f12 := New(48000)
	f12.SetMode(ModeLP12)
	f12.SetCutoff(500)

	f24 := New(48000)
	f24.SetMode(ModeLP24)
	f24.SetCutoff(500)

	out12 := sineRMS(f12, 8000, 48000, 4096)
	out24 := sineRMS(f24, 8000, 48000, 4096)

	if out24 >= out12 {
		t.Fatalf("24 dB slope should attenuate more than 12 dB at 8 kHz: lp12=%f lp24=%f", out12, out24)
	}
}

func TestHighpassBlocksDC(t *testing.T) {
	f := New(48000)
	f.SetMode(ModeHP12)
	f.SetCutoff(1000)

	var out float64
	for i := 0; i < 48000; i++ {
		out = f.Process(1.0)
	}
	if math.Abs(out) > 0.01 {
		t.Fatalf("DC should be rejected, settled at %f", out)
	}
}

func TestBandpassPassesCenterFrequency(t *testing.T) {
	f := New(48000)
	f.SetMode(ModeBP12)
	f.SetCutoff(1000)

	center := sineRMS(f, 1000, 48000, 4096)
	f.Reset()
	far := sineRMS(f, 10000, 48000, 4096)

	if center < 0.01 {
		t.Fatalf("band-pass killed its center frequency, rms=%f", center)
	}
	if far >= center {
		t.Fatalf("band-pass should attenuate off-center input: center=%f far=%f", center, far)
	}
}

func TestFullResonanceStaysStable(t *testing.T) {
	f := New(48000)
	f.SetMode(ModeLP24)
	f.SetCutoff(2000)
	f.SetResonance(1.0)

	for i := 0; i < 96000; i++ {
		in := 0.0
		if i%100 < 50 {
			in = 0.8
		} else {
			in = -0.8
		}
		out := f.Process(in)
		if math.IsNaN(out) || math.IsInf(out, 0) {
			t.Fatalf("filter blew up at sample %d", i)
		}
		if math.Abs(out) > 10 {
			t.Fatalf("unbounded output %f at sample %d", out, i)
		}
	}
}

func TestCutoffClamps(t *testing.T) {
	f := New(48000)

	f.SetCutoff(5)
	if f.Cutoff() != 80 {
		t.Fatalf("cutoff floor should be 80 Hz, got %f", f.Cutoff())
	}

	f.SetCutoff(1e6)
	if want := 0.45 * 48000 * 2; f.Cutoff() != want {
		t.Fatalf("cutoff ceiling should be %f, got %f", want, f.Cutoff())
	}
}

func TestKeyboardTrackingFollowsNote(t *testing.T) {
	f := New(48000)
	f.SetCutoff(1000)
	f.SetKeyboardTracking(0.5)

	f.ApplyKeyboardTracking(84) // two octaves above C4
	if f.Cutoff() <= 1000 {
		t.Fatalf("high note should raise cutoff, got %f", f.Cutoff())
	}

	f.SetCutoff(1000)
	f.ApplyKeyboardTracking(36) // two octaves below C4
	if f.Cutoff() >= 1000 {
		t.Fatalf("low note should lower cutoff, got %f", f.Cutoff())
	}

	f.SetCutoff(1000)
	f.SetKeyboardTracking(0)
	f.ApplyKeyboardTracking(96)
	if f.Cutoff() != 1000 {
		t.Fatalf("zero tracking should leave cutoff unchanged, got %f", f.Cutoff())
	}
}

func TestModulatedCutoffKeepsBase(t *testing.T) {
	f := New(48000)
	f.SetCutoff(1000)

	f.SetCutoffModulated(4000)
	if f.Cutoff() != 4000 {
		t.Fatalf("modulated cutoff not applied, got %f", f.Cutoff())
	}

	f.SetCutoff(1000)
	if f.Cutoff() != 1000 {
		t.Fatalf("base cutoff lost after modulation, got %f", f.Cutoff())
	}
}
