package room

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"mallathon/game"
	"mallathon/logging"
	"mallathon/protocol"
)

// Settings shapes every run hosted by a room.
type Settings struct {
	Tuning  game.PacerTuning
	Orbs    int
	Spacing float64
	Horizon float64
	Mode    game.CollectMode
	Seed    uint64 // 0 = derive from the room code
	Clock   func() time.Time
	Logger  *zap.Logger
}

func DefaultSettings() Settings {
	return Settings{
		Tuning:  game.DefaultPacerTuning(),
		Orbs:    game.OrbCount,
		Spacing: game.OrbSpacing,
		Horizon: game.VisibilityHorizon,
		Mode:    game.CollectCrossing,
	}
}

type client struct {
	conn   Conn
	origin time.Time // room time of the client's zero timestamp
	synced bool
}

// Room hosts one run. Only the Run goroutine touches the run state; other
// goroutines talk to it through Inbox.
type Room struct {
	Inbox          chan any
	tickHz         int
	broadcastEvery int
	decayEvery     int
	ticks          int
	run            *game.Run
	horizon        float64
	seed           uint64
	clients        map[string]*client
	players        atomic.Int32
	nextID         int
	quit           chan struct{}
	done           chan struct{}
	stopOnce       sync.Once
	now            func() time.Time
	log            *zap.Logger

	Code      string            // room code (e.g. "ABC123")
	SessionID string            // unique per room instance, for logs
	OnEmpty   func(code string) // called when last player leaves
}

func New(code string, s Settings) *Room {
	broadcastEvery := protocol.SimTickHz / protocol.BroadcastHz
	if broadcastEvery <= 0 {
		broadcastEvery = 1
	}
	decayEvery := protocol.SimTickHz / protocol.DecayHz
	if decayEvery <= 0 {
		decayEvery = 1
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.Horizon <= 0 {
		s.Horizon = game.VisibilityHorizon
	}
	seed := s.Seed
	if seed == 0 {
		seed = xxh3.HashString(code)
	}

	course := game.NewCourse(s.Orbs, s.Spacing, game.SeededRand(seed))
	course.SetMode(s.Mode)
	sessionID := uuid.NewString()

	return &Room{
		Inbox:          make(chan any, 256),
		tickHz:         protocol.SimTickHz,
		broadcastEvery: broadcastEvery,
		decayEvery:     decayEvery,
		run:            game.NewRun(game.NewPacer(s.Tuning, false), course),
		horizon:        s.Horizon,
		seed:           seed,
		clients:        make(map[string]*client),
		nextID:         1,
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
		now:            s.Clock,
		log:            logging.OrNop(s.Logger).With(zap.String("room", code), zap.String("session", sessionID)),
		Code:           code,
		SessionID:      sessionID,
	}
}

func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Done is closed once Run has returned.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// NumPlayers returns the current number of connected clients.
func (r *Room) NumPlayers() int {
	return int(r.players.Load())
}

func (r *Room) Seed() uint64 {
	return r.seed
}

func (r *Room) Run() {
	defer close(r.done)
	defer r.recoverLoop()

	ticker := time.NewTicker(time.Second / time.Duration(r.tickHz))
	defer ticker.Stop()

	r.log.Info("room started", zap.Uint64("seed", r.seed))
	for {
		select {
		case <-r.quit:
			r.closeAll()
			r.log.Info("room stopped", zap.Int("steps", r.run.Pacer.State().StepCount))
			return
		case cmd := <-r.Inbox:
			r.handleCommand(cmd)
		case <-ticker.C:
			r.ticks++
			if r.ticks%r.decayEvery == 0 {
				game.Step(r.run, r.now())
			}
			if r.ticks%r.broadcastEvery == 0 {
				r.broadcastState()
			}
		}
	}
}

func (r *Room) recoverLoop() {
	if err := recover(); err != nil {
		r.log.Error("room loop crashed", zap.Any("panic", err))
		hub := sentry.CurrentHub().Clone()
		hub.ConfigureScope(func(s *sentry.Scope) {
			s.SetTag("room", r.Code)
			s.SetTag("session", r.SessionID)
		})
		hub.Recover(err)
		hub.Flush(time.Second * 5)
		r.closeAll()
	}
}

func (r *Room) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case Join:
		idNum := r.nextID
		playerID := fmt.Sprintf("p%d", idNum)
		r.nextID++
		r.clients[playerID] = &client{conn: c.Conn}
		r.players.Store(int32(len(r.clients)))
		if c.Sensing {
			r.run.Pacer.SetSensing(true)
		}
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("Player %d", idNum)
		}
		r.log.Info("player joined", zap.String("player", playerID), zap.String("name", name), zap.Bool("sensing", c.Sensing))
		c.Reply <- JoinResult{PlayerID: playerID, SessionID: r.SessionID, Seed: r.seed}
		// welcome goes out before the next broadcast can reach the new client
		if b, err := protocol.Encode(protocol.MsgWelcome, protocol.Welcome{
			PlayerID:  playerID,
			SessionID: r.SessionID,
			Room:      r.Code,
			TickHz:    r.tickHz,
			Seed:      r.seed,
		}); err == nil {
			_ = c.Conn.Send(b)
		}
	case Sample:
		cl, ok := r.clients[c.PlayerID]
		if !ok {
			return
		}
		r.collect(r.run.Sample(accelOf(c.Sample), r.sampleTime(cl, c.Sample.T)))
	case ManualStep:
		cl, ok := r.clients[c.PlayerID]
		if !ok {
			return
		}
		r.collect(r.run.ManualStep(r.sampleTime(cl, c.T)))
	case Start:
		r.collect(r.run.Start())
		r.broadcastState()
	case Pause:
		r.run.Pause()
		r.broadcastState()
	case Leave:
		r.handleLeave(c.PlayerID)
	}
}

// accelOf returns nil when the sample carries no acceleration at all;
// individual missing axes read as zero.
func accelOf(s protocol.Sample) *mgl64.Vec3 {
	if s.X == nil && s.Y == nil && s.Z == nil {
		return nil
	}
	var v mgl64.Vec3
	for i, p := range []*float64{s.X, s.Y, s.Z} {
		if p != nil {
			v[i] = *p
		}
	}
	return &v
}

// sampleTime maps a client monotonic timestamp onto the room clock. The
// first timestamp from a client pins its origin; mapped times never run
// ahead of the room clock.
func (r *Room) sampleTime(cl *client, ms int64) time.Time {
	now := r.now()
	if ms <= 0 {
		return now
	}
	at := time.Duration(ms) * time.Millisecond
	if !cl.synced {
		cl.origin = now.Add(-at)
		cl.synced = true
	}
	if t := cl.origin.Add(at); t.Before(now) {
		return t
	}
	return now
}

func (r *Room) collect(orbs []game.Orb) {
	if len(orbs) == 0 {
		return
	}
	// each event carries the running total up to and including its orb
	score := r.run.Course.Score()
	for _, o := range orbs {
		score -= o.Tier.Points()
	}
	for _, o := range orbs {
		score += o.Tier.Points()
		r.log.Debug("orb collected", zap.Int("orb", o.ID), zap.Stringer("tier", o.Tier), zap.Int("score", score))
		b, err := protocol.Encode(protocol.MsgCollect, protocol.Collect{
			ID:     o.ID,
			Tier:   o.Tier.String(),
			Points: o.Tier.Points(),
			Score:  score,
		})
		if err != nil {
			continue
		}
		r.sendAll(b)
	}
}

func (r *Room) handleLeave(playerID string) {
	c, ok := r.clients[playerID]
	if ok {
		r.sendStateTo(c.conn)
		_ = c.conn.Close()
		delete(r.clients, playerID)
		r.players.Store(int32(len(r.clients)))
		r.log.Info("player left", zap.String("player", playerID))
	}
	if len(r.clients) == 0 && r.OnEmpty != nil && r.Code != "" {
		r.OnEmpty(r.Code)
	}
}

func (r *Room) removePlayer(playerID string) {
	if c, ok := r.clients[playerID]; ok {
		_ = c.conn.Close()
	}
	delete(r.clients, playerID)
	r.players.Store(int32(len(r.clients)))
	r.log.Warn("dropped player after failed send", zap.String("player", playerID))
}

func (r *Room) closeAll() {
	for id, c := range r.clients {
		_ = c.conn.Close()
		delete(r.clients, id)
	}
	r.players.Store(0)
}

func (r *Room) broadcastState() {
	b, err := protocol.Encode(protocol.MsgState, r.buildSnapshot())
	if err != nil {
		return
	}
	r.sendAll(b)
}

func (r *Room) sendAll(b []byte) {
	var failed []string
	for id, c := range r.clients {
		if err := c.conn.Send(b); err != nil {
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		r.removePlayer(id)
	}
}

func (r *Room) sendStateTo(c Conn) {
	b, err := protocol.Encode(protocol.MsgState, r.buildSnapshot())
	if err != nil {
		return
	}
	_ = c.Send(b)
}

func (r *Room) buildSnapshot() protocol.State {
	ps := r.run.Pacer.State()
	course := r.run.Course.Snapshot()
	snapshot := protocol.State{
		Tick:    r.ticks,
		Playing: r.run.Playing,
		Pacer: protocol.PacerSnapshot{
			Sensing:  ps.SensingAvailable,
			Steps:    ps.StepCount,
			Cadence:  ps.Cadence,
			Distance: ps.Distance,
			Pace:     string(ps.PaceStatus),
		},
		Score:     course.Score,
		Collected: course.Collected,
		Remaining: course.Remaining(),
		Orbs:      make([]protocol.OrbSnapshot, 0, 4),
	}
	if !r.run.Playing {
		return snapshot
	}
	for v := range course.Visible(ps.Distance, r.horizon) {
		snapshot.Orbs = append(snapshot.Orbs, protocol.OrbSnapshot{
			ID:    v.ID,
			Tier:  v.Tier.String(),
			X:     v.X,
			Y:     v.Y,
			Scale: v.DrawScale,
			Alpha: v.Scale,
		})
	}
	return snapshot
}
