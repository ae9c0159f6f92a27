package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recipedecider/internal/recipe"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Success("ignored in json", map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"result": "success"}, resp.Data)
	assert.NotContains(t, buf.String(), "ignored")
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("MALFORMED_REQUEST", "name is required", []string{"name"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MALFORMED_REQUEST", resp.Error.Code)
	assert.Equal(t, "name is required", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("Added Soup", struct{}{}))
	require.NoError(t, formatter.Error("E1", "broken", "hidden"))

	assert.Equal(t, "Added Soup\nError [E1]: broken\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error("E1", "broken", map[string]string{"field": "name"}))
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			diag := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: tt.verbose}

			formatter.VerboseLog("connecting to %s", "peer")

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Equal(t, "connecting to peer\n", diag.String())
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk gone")
	err := WrapExitError(ExitCommandError, "failed to open storage", cause)

	assert.Equal(t, "failed to open storage: disk gone", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, ExitFailure, GetExitCode(cause))
	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
}

func TestFormatRecipes(t *testing.T) {
	assert.Equal(t, "No recipes.", formatRecipes(nil))
	assert.Equal(t,
		"[0] Soup\n  Boil.\n[1] Pie\n  Bake.",
		formatRecipes([]recipe.Recipe{{Name: "Soup", Instructions: "Boil."}, {Name: "Pie", Instructions: "Bake."}}),
	)
}
