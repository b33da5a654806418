package game

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Run binds one pacer to one orb course for the length of a session.
type Run struct {
	Tick    int
	Playing bool
	Pacer   *Pacer
	Course  *Course
}

func NewRun(p *Pacer, c *Course) *Run {
	return &Run{Pacer: p, Course: c}
}

// Sample feeds an acceleration sample and returns any orbs it collected.
func (r *Run) Sample(accel *mgl64.Vec3, now time.Time) []Orb {
	if !r.Pacer.IngestSample(accel, now) {
		return nil
	}
	return r.advance()
}

// ManualStep registers a step without a sensor and returns any orbs it collected.
func (r *Run) ManualStep(now time.Time) []Orb {
	r.Pacer.ManualStep(now)
	return r.advance()
}

// Start resumes collection and returns the orbs already inside the
// tolerance band at the current distance.
func (r *Run) Start() []Orb {
	r.Playing = true
	return r.Course.Settle(r.Pacer.State().Distance)
}

func (r *Run) Pause() {
	r.Playing = false
}

func (r *Run) advance() []Orb {
	d := r.Pacer.State().Distance
	if !r.Playing {
		r.Course.Seek(d)
		return nil
	}
	return r.Course.Update(d)
}
