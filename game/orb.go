package game

import (
	"iter"
	"math"
	"math/rand/v2"
	"sync/atomic"
)

type Tier uint8

const (
	TierCommon Tier = iota
	TierRare
	TierLegendary
)

func (t Tier) String() string {
	switch t {
	case TierRare:
		return "RARE"
	case TierLegendary:
		return "LEGENDARY"
	default:
		return "COMMON"
	}
}

func (t Tier) Points() int {
	switch t {
	case TierRare:
		return PointsRare
	case TierLegendary:
		return PointsLegendary
	default:
		return PointsCommon
	}
}

// DrawTier maps a uniform draw in [0,1) to a tier.
func DrawTier(r float64) Tier {
	switch {
	case r > LegendaryDraw:
		return TierLegendary
	case r > RareDraw:
		return TierRare
	default:
		return TierCommon
	}
}

// Orb is a collectible tied to a trigger distance. Only Collected ever
// changes, and only from false to true.
type Orb struct {
	ID              int
	TriggerDistance float64
	LateralOffset   float64
	Tier            Tier
	Collected       bool
}

// VisibleOrb is an uncollected orb inside the visibility horizon with its
// render projection.
type VisibleOrb struct {
	Orb
	Delta     float64 // meters ahead of the traveler
	Scale     float64 // 1 at the orb, 0 at the horizon
	DrawScale float64 // Scale clamped to MinDrawScale
	X, Y      float64
}

// CourseSnapshot is an immutable view of a course published after each update.
type CourseSnapshot struct {
	Orbs      []Orb
	Score     int
	Collected int
}

// Visible yields the uncollected orbs with 0 <= delta <= horizon in trigger
// order. It never mutates the snapshot.
func (s *CourseSnapshot) Visible(distance, horizon float64) iter.Seq[VisibleOrb] {
	return func(yield func(VisibleOrb) bool) {
		if s == nil || horizon <= 0 {
			return
		}
		for _, o := range s.Orbs {
			if o.Collected {
				continue
			}
			delta := o.TriggerDistance - distance
			if delta < 0 || delta > horizon {
				continue
			}
			scale := 1 - delta/horizon
			v := VisibleOrb{
				Orb:       o,
				Delta:     delta,
				Scale:     scale,
				DrawScale: math.Max(MinDrawScale, scale),
				X:         o.LateralOffset,
				Y:         delta * DepthScale,
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Remaining counts orbs not yet collected.
func (s *CourseSnapshot) Remaining() int {
	if s == nil {
		return 0
	}
	return len(s.Orbs) - s.Collected
}

// Course owns the orb set of one run and its score. Update must only be
// called by a single writer; Snapshot and Visible are safe from any goroutine.
type Course struct {
	orbs  []Orb
	score int
	count int
	mode  CollectMode
	prev  float64

	snap atomic.Pointer[CourseSnapshot]
}

// SeededRand returns the random source a course is generated from.
func SeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewCourse lays out count orbs every spacing meters, drawing lateral offset
// and tier from rng. The same seed always yields the same course.
func NewCourse(count int, spacing float64, rng *rand.Rand) *Course {
	if count < 0 {
		count = 0
	}
	if spacing <= 0 {
		spacing = OrbSpacing
	}
	c := &Course{orbs: make([]Orb, 0, count)}
	for i := 1; i <= count; i++ {
		c.orbs = append(c.orbs, Orb{
			ID:              i,
			TriggerDistance: float64(i) * spacing,
			LateralOffset:   rng.Float64()*2*OrbMaxLateral - OrbMaxLateral,
			Tier:            DrawTier(rng.Float64()),
		})
	}
	c.publish()
	return c
}

func (c *Course) SetMode(m CollectMode) {
	c.mode = m
}

// Update collects every orb reached at distance, in increasing trigger
// order, and returns the ones collected by this call. Collection is
// exactly-once: repeated calls never score an orb twice.
func (c *Course) Update(distance float64) []Orb {
	return c.collect(distance, c.mode == CollectCrossing)
}

// Settle collects only the orbs inside the tolerance band behind distance,
// as happens when a paused run resumes without moving.
func (c *Course) Settle(distance float64) []Orb {
	return c.collect(distance, false)
}

func (c *Course) collect(distance float64, crossing bool) []Orb {
	var got []Orb
	for i := range c.orbs {
		o := &c.orbs[i]
		if o.Collected {
			continue
		}
		if !c.reached(o.TriggerDistance, distance, crossing) {
			continue
		}
		o.Collected = true
		c.score += o.Tier.Points()
		c.count++
		got = append(got, *o)
	}
	c.Seek(distance)
	if len(got) > 0 {
		c.publish()
	}
	return got
}

// Seek moves the traveler without collecting anything, e.g. while a run is
// paused. Orbs passed this way stay uncollected.
func (c *Course) Seek(distance float64) {
	if distance > c.prev {
		c.prev = distance
	}
}

func (c *Course) reached(trigger, distance float64, crossing bool) bool {
	delta := trigger - distance
	if delta <= 0 && delta > -CollectTolerance {
		return true
	}
	return crossing && c.prev < trigger && trigger <= distance
}

func (c *Course) publish() {
	orbs := make([]Orb, len(c.orbs))
	copy(orbs, c.orbs)
	c.snap.Store(&CourseSnapshot{Orbs: orbs, Score: c.score, Collected: c.count})
}

// Snapshot returns the latest published view.
func (c *Course) Snapshot() *CourseSnapshot {
	return c.snap.Load()
}

func (c *Course) Visible(distance, horizon float64) iter.Seq[VisibleOrb] {
	return c.Snapshot().Visible(distance, horizon)
}

func (c *Course) Score() int {
	return c.score
}
