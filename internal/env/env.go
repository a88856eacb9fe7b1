// Package env implements the four-stage exponential envelope used for the
// VCA, VCF and pitch modulation. Segments are RC-style one-pole approaches:
// attack chases an overshoot target above 1.0 for a punchy analog rise,
// decay and release sink exponentially toward sustain and zero.
package env

import "math"

// State is the envelope stage.
type State int

const (
	StateIdle State = iota
	StateAttack
	StateDecay
	StateSustain
	StateRelease
)

const (
	minTime = 0.001 // 1 ms
	maxTime = 10.0  // 10 s

	// The attack segment aims past full level so the approach is still
	// steep when it crosses 1.0. Empirically tuned; keep as is.
	attackOvershoot = 1.3

	// Below this the release snaps to zero, avoiding denormal-range math.
	idleEpsilon = 1e-4

	// Decay is considered settled once within this distance of sustain.
	sustainEpsilon = 1e-3

	// An exponential approach covers ~1-1/e^5 of the distance in timeConstants
	// time constants; 5 gives a perceptually complete segment.
	timeConstants = 5.0
)

// Envelope is a retriggerable ADSR generator.
type Envelope struct {
	sampleRate float64
	state      State
	level      float64
	velocity   float64

	attackTime   float64
	decayTime    float64
	sustainLevel float64
	releaseTime  float64

	attackCoef  float64
	decayCoef   float64
	releaseCoef float64
}

// New returns an idle envelope with moderate defaults.
func New(sampleRate float64) *Envelope {
	e := &Envelope{}
	e.Init(sampleRate)
	return e
}

// Init resets the envelope for the given sample rate.
func (e *Envelope) Init(sampleRate float64) {
	e.sampleRate = sampleRate
	e.attackTime = 0.001
	e.decayTime = 0.1
	e.sustainLevel = 0.7
	e.releaseTime = 0.05
	e.velocity = 1.0
	e.Reset()
	e.updateCoefficients()
}

// Reset forces the envelope to idle at zero level.
func (e *Envelope) Reset() {
	e.state = StateIdle
	e.level = 0
}

// SetAttack clamps to [1 ms, 10 s].
func (e *Envelope) SetAttack(sec float64) {
	e.attackTime = clampTime(sec)
	e.updateCoefficients()
}

// SetDecay clamps to [1 ms, 10 s].
func (e *Envelope) SetDecay(sec float64) {
	e.decayTime = clampTime(sec)
	e.updateCoefficients()
}

// SetSustain clamps to [0, 1].
func (e *Envelope) SetSustain(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	e.sustainLevel = level
}

// SetRelease clamps to [1 ms, 10 s].
func (e *Envelope) SetRelease(sec float64) {
	e.releaseTime = clampTime(sec)
	e.updateCoefficients()
}

// ControlToSeconds maps a 0-100 control value to seconds on a quadratic
// (perceptually linear) curve: 0 -> 1 ms, 100 -> ~10 s.
func ControlToSeconds(value float64) float64 {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	n := value / 100.0
	return clampTime(minTime + n*n*(maxTime-minTime))
}

// NoteOn moves to attack from any state. The current level is deliberately
// kept: a legato retrigger continues from where the envelope is, which avoids
// the click a hard reset would produce.
func (e *Envelope) NoteOn(velocity float64) {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 1 {
		velocity = 1
	}
	e.velocity = velocity
	e.state = StateAttack
}

// NoteOff gates into release; a no-op when idle.
func (e *Envelope) NoteOff() {
	if e.state != StateIdle {
		e.state = StateRelease
	}
}

// State returns the current stage.
func (e *Envelope) State() State { return e.state }

// IsActive reports whether the envelope is producing output. The allocator
// uses this to decide when a voice is reclaimable.
func (e *Envelope) IsActive() bool { return e.state != StateIdle }

// Level returns the current raw level without advancing.
func (e *Envelope) Level() float64 { return e.level }

// Process advances one sample and returns the velocity-scaled level.
func (e *Envelope) Process() float64 {
	switch e.state {
	case StateAttack:
		e.level += e.attackCoef * (attackOvershoot - e.level)
		if e.level >= 1.0 {
			e.level = 1.0
			e.state = StateDecay
		}

	case StateDecay:
		e.level += e.decayCoef * (e.sustainLevel - e.level)
		if math.Abs(e.level-e.sustainLevel) <= sustainEpsilon {
			e.level = e.sustainLevel
			e.state = StateSustain
		}

	case StateSustain:
		e.level = e.sustainLevel

	case StateRelease:
		e.level += e.releaseCoef * (0 - e.level)
		if e.level <= idleEpsilon {
			e.level = 0
			e.state = StateIdle
		}

	default:
		e.level = 0
	}

	return e.level * e.velocity
}

func (e *Envelope) updateCoefficients() {
	e.attackCoef = segmentCoef(e.attackTime, e.sampleRate)
	e.decayCoef = segmentCoef(e.decayTime, e.sampleRate)
	e.releaseCoef = segmentCoef(e.releaseTime, e.sampleRate)
}

// segmentCoef returns the one-pole coefficient that completes the segment
// (to within e^-5) in the given time.
func segmentCoef(sec, sampleRate float64) float64 {
	samples := sec * sampleRate
	if samples < 1 {
		samples = 1
	}
	return 1.0 - math.Exp(-timeConstants/samples)
}

func clampTime(sec float64) float64 {
	if sec < minTime {
		return minTime
	}
	if sec > maxTime {
		return maxTime
	}
	return sec
}
