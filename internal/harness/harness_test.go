package harness

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recipedecider/internal/recipe"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestGoldenScenarios(t *testing.T) {
	for _, name := range []string{"http_lifecycle", "cross_channel"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRejectionsScenario(t *testing.T) {
	result, err := Run(context.Background(), loadTestScenario(t, "rejections"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Recipes)
}

func TestVerbatimScenario(t *testing.T) {
	result, err := Run(context.Background(), loadTestScenario(t, "verbatim"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []recipe.Recipe{
		{Name: "", Instructions: "x"},
		{Name: "  Pie ", Instructions: "Bake.\n"},
	}, result.Recipes)
	assert.Equal(t, result.Recipes, result.Persisted)
}

func TestRun_SeedsInitialRecipes(t *testing.T) {
	s := &Scenario{
		Name:    "seeded",
		Recipes: []recipe.Recipe{{Name: "Soup", Instructions: "Boil."}},
		Steps: []Step{{
			Channel: ChannelHTTP,
			Method:  "GET",
			Expect:  &Expect{Status: 200, Reply: `{"Recipes":[{"name":"Soup","instructions":"Boil."}]}`},
		}},
	}
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, s.Recipes, result.Recipes)

	// A list never writes a snapshot.
	assert.Empty(t, result.Persisted)
}

func TestRun_PersistsMutations(t *testing.T) {
	s := &Scenario{
		Name: "persist",
		Steps: []Step{{
			Channel: ChannelRPC,
			Tool:    "AddRecipe",
			Args:    &recipe.Recipe{Name: "Pie", Instructions: "Bake."},
		}},
		Assertions: []Assertion{{Type: AssertFinalState, Recipes: []string{"Pie"}}},
	}
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, result.Recipes, result.Persisted)
}

func TestRun_FailedExpectationIsReported(t *testing.T) {
	none := []string{}
	s := &Scenario{
		Name: "wrong",
		Steps: []Step{{
			Channel: ChannelHTTP,
			Body:    `{"name":"Soup","instructions":"Boil."}`,
			Expect:  &Expect{Status: 200, Broadcasts: &none},
		}},
		Assertions: []Assertion{{Type: AssertFinalState, Recipes: []string{"Stew"}}},
	}
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected status 200, got 201")
	assert.Contains(t, result.Errors[1], "expected broadcasts [], got [NewRecipe]")
	assert.Contains(t, result.Errors[2], "final_state")
}

func TestMarshalTrace_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "cross_channel")

	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.True(t, strings.HasSuffix(string(a), "}\n"))
}

func TestTraceEvent_Event(t *testing.T) {
	ev := TraceEvent{Type: EventBroadcast, Payload: json.RawMessage(`{"NewRecipe":{"name":"a","instructions":"b"}}`)}
	assert.Equal(t, "NewRecipe", ev.Event())

	ev.Type = EventReply
	assert.Equal(t, "", ev.Event())

	assert.Equal(t, "", TraceEvent{Type: EventBroadcast, Payload: "text"}.Event())
}

func TestPayload(t *testing.T) {
	assert.Nil(t, payload(nil))
	assert.Equal(t, json.RawMessage(`{"a":1}`), payload([]byte(`{"a":1}`)))
	assert.Equal(t, "method not allowed\n", payload([]byte("method not allowed\n")))
}
