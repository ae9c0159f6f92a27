package harness

import (
	"encoding/json"

	"github.com/roach88/recipedecider/internal/recipe"
)

// Trace event types.
const (
	EventDispatch  = "dispatch"  // a command reached the router
	EventDropped   = "dropped"   // a WebSocket frame that did not normalize
	EventBroadcast = "broadcast" // a frame fanned out to subscribers
	EventReply     = "reply"     // the direct answer on HTTP or RPC
)

// TraceEvent is one observable effect of a scenario step.
//
// Within a step events are ordered dispatch, broadcasts, reply, which is the
// order the router produces them in.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Step    int    `json:"step"`
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Command string `json:"command,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Status  int    `json:"status,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Event returns the top-level tag of a broadcast payload, or "".
func (e TraceEvent) Event() string {
	raw, ok := e.Payload.(json.RawMessage)
	if !ok || e.Type != EventBroadcast {
		return ""
	}
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tagged); err != nil || len(tagged) != 1 {
		return ""
	}
	for tag := range tagged {
		return tag
	}
	return ""
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Recipes is the collection the router held when the scenario ended.
	Recipes []recipe.Recipe `json:"recipes"`

	// Persisted is the collection restored from the last snapshot write.
	Persisted []recipe.Recipe `json:"persisted"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Recipes:   []recipe.Recipe{},
		Persisted: []recipe.Recipe{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}

// payload keeps valid JSON as-is and everything else as a string so traces
// stay readable.
func payload(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	if json.Valid(data) {
		return json.RawMessage(data)
	}
	return string(data)
}
