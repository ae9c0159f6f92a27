package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/recipedecider/internal/peer"
	"github.com/roach88/recipedecider/internal/recipe"
)

// Scenario drives the service through its adapters and checks what every
// channel observed.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Seed fixes the random source so rolls are reproducible. Zero means 1.
	Seed uint64 `yaml:"seed,omitempty"`

	// Recipes is the collection present before the first step.
	Recipes []recipe.Recipe `yaml:"recipes,omitempty"`

	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Channels a step can use.
const (
	ChannelHTTP = "http"
	ChannelWS   = "ws"
	ChannelRPC  = "rpc"
)

// Step sends one message through one channel.
type Step struct {
	Channel string `yaml:"channel"`

	// Method is GET or POST for http steps. Defaults to POST when Body is
	// set and GET otherwise.
	Method string `yaml:"method,omitempty"`

	// Body is the raw payload for http and ws steps.
	Body string `yaml:"body,omitempty"`

	// Tool and Args describe an rpc call.
	Tool string         `yaml:"tool,omitempty"`
	Args *recipe.Recipe `yaml:"args,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks the effects of a single step. Unset fields are not checked.
type Expect struct {
	// Status is the HTTP status code of an http step.
	Status int `yaml:"status,omitempty"`

	// Error is the expected error code; "" with Reply set means success.
	Error string `yaml:"error,omitempty"`

	// Reply is compared as JSON against the direct reply.
	Reply string `yaml:"reply,omitempty"`

	// Broadcasts lists the event tags the step fanned out, in order. An
	// explicit empty list asserts that nothing was broadcast.
	Broadcasts *[]string `yaml:"broadcasts,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is the broadcast tag (broadcast_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number of occurrences (broadcast_count,
	// dispatch_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected broadcast order (broadcast_order).
	Events []string `yaml:"events,omitempty"`

	// Outcome filters dispatch_count to "ok" or an error code.
	Outcome string `yaml:"outcome,omitempty"`

	// Recipes are the expected names, in order (final_state).
	Recipes []string `yaml:"recipes,omitempty"`
}

// Assertion type constants.
const (
	AssertBroadcastCount = "broadcast_count"
	AssertBroadcastOrder = "broadcast_order"
	AssertDispatchCount  = "dispatch_count"
	AssertFinalState     = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("missing required field: name")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}

	for i, step := range s.Steps {
		switch step.Channel {
		case ChannelHTTP:
			switch step.Method {
			case "", "GET", "POST", "PUT", "DELETE":
			default:
				return fmt.Errorf("step %d: unsupported method %q", i, step.Method)
			}
		case ChannelWS:
			if step.Body == "" {
				return fmt.Errorf("step %d: ws step needs a body", i)
			}
		case ChannelRPC:
			switch step.Tool {
			case peer.ToolAddRecipe:
				if step.Args == nil {
					return fmt.Errorf("step %d: %s needs args", i, step.Tool)
				}
			case peer.ToolGetRecipes, peer.ToolRollRecipe:
			default:
				return fmt.Errorf("step %d: unknown tool %q", i, step.Tool)
			}
		default:
			return fmt.Errorf("step %d: unknown channel %q", i, step.Channel)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertBroadcastCount:
			if a.Event == "" {
				return fmt.Errorf("assertion %d: broadcast_count needs event", i)
			}
		case AssertBroadcastOrder:
			if len(a.Events) == 0 {
				return fmt.Errorf("assertion %d: broadcast_order needs events", i)
			}
		case AssertDispatchCount, AssertFinalState:
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}
