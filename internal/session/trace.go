package session

import "encoding/json"

// Event is one entry in the session's transition trace. Traces are
// deterministic (no ids, no timestamps) so identical flows produce
// identical traces, which golden tests and diagnostics rely on.
type Event struct {
	Kind  string `json:"kind"`            // "state", "tick", "keep", "retake"
	State string `json:"state,omitempty"` // for "state" events
	Tick  int    `json:"tick,omitempty"`  // for "tick" events: 3, 2, 1
	Slot  int    `json:"slot"`            // slot the event applies to
}

// Trace returns a copy of the recorded events in order.
func (c *Controller) Trace() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.trace))
	copy(out, c.trace)
	return out
}

// TraceJSON serializes the trace for golden comparison.
func (c *Controller) TraceJSON() ([]byte, error) {
	return json.MarshalIndent(c.Trace(), "", "  ")
}

// setStateLocked transitions the state, records the event, and checks
// the session invariants. Caller holds c.mu.
func (c *Controller) setStateLocked(s State) {
	c.state = s
	c.trace = append(c.trace, Event{Kind: "state", State: s.String(), Slot: len(c.captured)})
	c.checkInvariants()
}

func (c *Controller) traceTick(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = append(c.trace, Event{Kind: "tick", Tick: n, Slot: len(c.captured)})
}

func (c *Controller) traceKeep(slot int) {
	c.trace = append(c.trace, Event{Kind: "keep", Slot: slot})
}

func (c *Controller) traceRetake(slot int) {
	c.trace = append(c.trace, Event{Kind: "retake", Slot: slot})
}
