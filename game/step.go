package game

import "time"

// Step is the periodic tick of a run: it advances the tick counter and lets
// the pacer decay to idle.
func Step(r *Run, now time.Time) {
	r.Tick++
	r.Pacer.Tick(now)
}
