package game

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

type PaceStatus string

const (
	PaceIdle PaceStatus = "idle"
	PaceSlow PaceStatus = "slow"
	PaceGood PaceStatus = "good"
	PaceFast PaceStatus = "fast"
)

// ClassifyCadence maps a steps-per-minute estimate to a pace status.
// Idle is only ever set by decay, so a zero cadence here is slow.
func ClassifyCadence(cadence int) PaceStatus {
	switch {
	case cadence < SlowCadence:
		return PaceSlow
	case cadence > FastCadence:
		return PaceFast
	default:
		return PaceGood
	}
}

// PacerState is the externally visible pacer reading.
type PacerState struct {
	SensingAvailable bool
	StepCount        int
	Cadence          int
	Distance         float64
	PaceStatus       PaceStatus
}

// Pacer turns acceleration samples into steps, cadence and distance.
// It is not safe for concurrent use; one owner drives both samples and ticks.
type Pacer struct {
	tuning PacerTuning
	state  PacerState

	window   []time.Time // most recent step instants, oldest first
	lastStep time.Time
	stepped  bool
}

func NewPacer(tuning PacerTuning, sensing bool) *Pacer {
	if tuning.StrideLength <= 0 {
		tuning.StrideLength = DefaultStrideLength
	}
	return &Pacer{
		tuning: tuning,
		state: PacerState{
			SensingAvailable: sensing,
			PaceStatus:       PaceIdle,
		},
		window: make([]time.Time, 0, CadenceWindow+1),
	}
}

// State returns a copy of the current reading.
func (p *Pacer) State() PacerState {
	return p.state
}

func (p *Pacer) Tuning() PacerTuning {
	return p.tuning
}

// SetSensing flips the sensor capability flag. Without a sensor only
// ManualStep registers steps.
func (p *Pacer) SetSensing(ok bool) {
	p.state.SensingAvailable = ok
}

// IngestSample registers a step when the acceleration magnitude peaks above
// the threshold outside the refractory period. A nil sample is ignored.
func (p *Pacer) IngestSample(accel *mgl64.Vec3, now time.Time) bool {
	if accel == nil || !p.state.SensingAvailable {
		return false
	}
	if accel.Len() <= p.tuning.StepThreshold {
		return false
	}
	if p.stepped && now.Sub(p.lastStep) <= p.tuning.Refractory {
		return false
	}
	p.registerStep(now)
	return true
}

// ManualStep registers a step unconditionally.
func (p *Pacer) ManualStep(now time.Time) {
	p.registerStep(now)
}

func (p *Pacer) registerStep(now time.Time) {
	p.window = append(p.window, now)
	if len(p.window) > CadenceWindow {
		p.window = append(p.window[:0], p.window[len(p.window)-CadenceWindow:]...)
	}

	switch n := len(p.window); {
	case n < 2:
		p.state.Cadence = 0
	default:
		// Two steps on the same instant carry no interval; keep the last estimate.
		if elapsed := p.window[n-1].Sub(p.window[0]).Seconds(); elapsed > 0 {
			p.state.Cadence = int(math.Round(60 * float64(n-1) / elapsed))
		}
	}
	p.state.PaceStatus = ClassifyCadence(p.state.Cadence)

	p.state.StepCount++
	p.state.Distance = float64(p.state.StepCount) * p.tuning.StrideLength

	p.lastStep = now
	p.stepped = true
}

// Tick decays cadence and pace to idle once no step has been seen for the
// idle window. Step count and distance are never touched.
func (p *Pacer) Tick(now time.Time) {
	if p.stepped && now.Sub(p.lastStep) <= p.tuning.IdleAfter {
		return
	}
	p.state.Cadence = 0
	p.state.PaceStatus = PaceIdle
	p.window = p.window[:0]
}
