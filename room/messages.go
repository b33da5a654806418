package room

import "mallathon/protocol"

type Conn interface {
	Send([]byte) error
	Close() error
}

// Join: issued once after hello parsed
type Join struct {
	Conn    Conn
	Name    string
	Sensing bool
	Reply   chan<- JoinResult
}

type JoinResult struct {
	PlayerID  string
	SessionID string
	Seed      uint64
}

// Sample: one accelerometer reading from a player
type Sample struct {
	PlayerID string
	Sample   protocol.Sample
}

// ManualStep: step trigger from a player without a sensor
type ManualStep struct {
	PlayerID string
	T        int64
}

// Start and Pause toggle orb collection for the run.
type Start struct{}

type Pause struct{}

// Leave: issued on disconnect
type Leave struct {
	PlayerID string
}
