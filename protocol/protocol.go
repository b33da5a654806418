package protocol

import (
	"encoding/json"
)

const (
	MsgHello   = "hello"
	MsgSample  = "sample"
	MsgStep    = "step"
	MsgStart   = "start"
	MsgPause   = "pause"
	MsgWelcome = "welcome"
	MsgState   = "state"
	MsgCollect = "collect"
)

const (
	SimTickHz   = 20
	BroadcastHz = 10
	DecayHz     = 1
)

type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p,omitempty"` // raw payload bytes
}
