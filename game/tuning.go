package game

import "time"

const (
	StepThreshold       = 11.5 // m/s², gravity included
	StepRefractory      = 350 * time.Millisecond
	IdleAfter           = 2 * time.Second // no steps for this long => idle
	CadenceWindow       = 5               // step timestamps kept for cadence
	SlowCadence         = 60              // below => slow
	FastCadence         = 130             // above => fast
	DefaultStrideLength = 0.76            // meters per step

	OrbCount          = 50
	OrbSpacing        = 10.0 // meters between orbs
	OrbMaxLateral     = 40.0 // lateral offset range is [-40, 40]
	CollectTolerance  = 2.0  // meters behind the trigger still collectible
	VisibilityHorizon = 30.0 // meters ahead that orbs are rendered
	DepthScale        = 15.0 // projection units per meter of delta
	MinDrawScale      = 0.1

	LegendaryDraw = 0.9 // tier draw r > this => LEGENDARY
	RareDraw      = 0.7 // tier draw r > this => RARE

	PointsCommon    = 10
	PointsRare      = 20
	PointsLegendary = 50
)

// PacerTuning holds the calibration knobs of a Pacer.
type PacerTuning struct {
	StrideLength  float64
	StepThreshold float64
	Refractory    time.Duration
	IdleAfter     time.Duration
}

// DefaultPacerTuning returns the stock calibration.
func DefaultPacerTuning() PacerTuning {
	return PacerTuning{
		StrideLength:  DefaultStrideLength,
		StepThreshold: StepThreshold,
		Refractory:    StepRefractory,
		IdleAfter:     IdleAfter,
	}
}

// CollectMode selects how Course.Update decides an orb was reached.
type CollectMode uint8

const (
	// CollectCrossing collects any orb whose trigger lies in (previous, current]
	// in addition to the tolerance band, so large distance jumps never skip orbs.
	CollectCrossing CollectMode = iota
	// CollectBand only collects orbs with -CollectTolerance < delta <= 0.
	CollectBand
)
