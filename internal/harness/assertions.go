package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d %s", event.Seq, event.Step, event.Type)
			if event.Channel != "" {
				fmt.Fprintf(&buf, " %s", event.Channel)
			}
			if event.Command != "" {
				fmt.Fprintf(&buf, " %s", event.Command)
			}
			if tag := event.Event(); tag != "" {
				fmt.Fprintf(&buf, " %s", tag)
			}
			if event.Outcome != "" {
				fmt.Fprintf(&buf, " -> %s", event.Outcome)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertBroadcastCount:
			err = assertBroadcastCount(result.Trace, a)
		case AssertBroadcastOrder:
			err = assertBroadcastOrder(result.Trace, a)
		case AssertDispatchCount:
			err = assertDispatchCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func broadcastTags(trace []TraceEvent) []string {
	var tags []string
	for _, ev := range trace {
		if tag := ev.Event(); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// assertBroadcastCount checks that the event was broadcast exactly Count
// times.
func assertBroadcastCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, tag := range broadcastTags(trace) {
		if tag == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertBroadcastCount,
			Expected: fmt.Sprintf("%d broadcasts of %s", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d broadcasts", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertBroadcastOrder checks that the events appear as a subsequence of
// the broadcasts. Intervening broadcasts are allowed.
func assertBroadcastOrder(trace []TraceEvent, a Assertion) error {
	tags := broadcastTags(trace)
	next := 0
	for _, tag := range tags {
		if next < len(a.Events) && tag == a.Events[next] {
			next++
		}
	}
	if next < len(a.Events) {
		return &AssertionError{
			Type:     AssertBroadcastOrder,
			Expected: fmt.Sprintf("broadcasts in order: %v", a.Events),
			Actual:   fmt.Sprintf("%v (missing %s)", tags, a.Events[next]),
			Trace:    trace,
		}
	}
	return nil
}

// assertDispatchCount counts dispatched commands, optionally only those
// with the given outcome.
func assertDispatchCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type != EventDispatch {
			continue
		}
		if a.Outcome != "" && ev.Outcome != a.Outcome {
			continue
		}
		count++
	}
	if count != a.Count {
		what := "dispatches"
		if a.Outcome != "" {
			what = fmt.Sprintf("dispatches with outcome %s", a.Outcome)
		}
		return &AssertionError{
			Type:     AssertDispatchCount,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState compares recipe names, in order, against both the live
// collection and the last persisted snapshot.
func assertFinalState(result *Result, a Assertion) error {
	want := a.Recipes
	live := make([]string, 0, len(result.Recipes))
	for _, r := range result.Recipes {
		live = append(live, r.Name)
	}
	if !slices.Equal(live, want) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("recipes %v", want),
			Actual:   fmt.Sprintf("recipes %v", live),
		}
	}

	if !slices.Equal(result.Persisted, result.Recipes) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("persisted snapshot equal to %v", result.Recipes),
			Actual:   fmt.Sprintf("persisted %v", result.Persisted),
		}
	}
	return nil
}

// checkExpect compares the events of one step against its expect clause.
func checkExpect(step int, expect Expect, events []TraceEvent) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("step %d: ", step)+fmt.Sprintf(format, args...))
	}

	var reply *TraceEvent
	var outcome string
	for i := range events {
		switch events[i].Type {
		case EventReply:
			reply = &events[i]
			outcome = events[i].Outcome
		case EventDispatch, EventDropped:
			if outcome == "" || outcome == "ok" {
				outcome = events[i].Outcome
			}
		}
	}

	if expect.Status != 0 {
		if reply == nil {
			fail("expected status %d, got no reply", expect.Status)
		} else if reply.Status != expect.Status {
			fail("expected status %d, got %d", expect.Status, reply.Status)
		}
	}

	if expect.Error != "" && outcome != expect.Error {
		fail("expected error %s, got %q", expect.Error, outcome)
	}

	if expect.Reply != "" {
		if reply == nil {
			fail("expected reply %s, got none", expect.Reply)
		} else if ok, err := jsonEqual(expect.Reply, reply.Payload); err != nil {
			fail("compare reply: %v", err)
		} else if !ok {
			got, _ := json.Marshal(reply.Payload)
			fail("expected reply %s, got %s", expect.Reply, got)
		}
	}

	if expect.Broadcasts != nil {
		got := broadcastTags(events)
		if !slices.Equal(got, *expect.Broadcasts) {
			fail("expected broadcasts %v, got %v", *expect.Broadcasts, got)
		}
	}
	return errs
}

func jsonEqual(want string, got any) (bool, error) {
	var w any
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		return false, fmt.Errorf("expected reply is not JSON: %w", err)
	}
	raw, err := json.Marshal(got)
	if err != nil {
		return false, err
	}
	var g any
	if err := json.Unmarshal(raw, &g); err != nil {
		return false, err
	}
	return reflect.DeepEqual(w, g), nil
}
