package protocol

//input structs coming in from the client.

type Hello struct {
	V       int    `json:"v"`              // version
	Name    string `json:"name,omitempty"` // optional name
	Sensing bool   `json:"sensing"`        // device has a motion sensor
}

// Sample is one accelerometer reading with gravity included. Missing axes
// mean the device reported no data for this event.
type Sample struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	Z *float64 `json:"z,omitempty"`
	T int64    `json:"t,omitempty"` // client monotonic ms, 0 = unknown
}

// Step is a manual step trigger.
type Step struct {
	T int64 `json:"t,omitempty"`
}
