package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/recipedecider/internal/recipe"
	"github.com/roach88/recipedecider/internal/router"
)

type recipeBody struct {
	Recipe *recipe.Recipe `json:"recipe"`
}

type deletedBody struct {
	Success bool `json:"success"`
}

// errorBody is the error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	TraceID string `json:"trace_id,omitempty"`
}

// replyFor maps a successful result to its status and envelope.
func replyFor(res recipe.Result) (int, any) {
	switch res.Kind {
	case recipe.KindAdd:
		return http.StatusCreated, map[string]recipeBody{"RecipeAdded": {Recipe: res.Recipe}}
	case recipe.KindRoll:
		return http.StatusOK, map[string]recipeBody{"RolledRecipe": {Recipe: res.Recipe}}
	case recipe.KindDelete:
		return http.StatusOK, map[string]deletedBody{"RecipeDeleted": {Success: true}}
	default:
		list := res.Recipes
		if list == nil {
			list = []recipe.Recipe{}
		}
		return http.StatusOK, map[string][]recipe.Recipe{"Recipes": list}
	}
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case recipe.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, router.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

// writeError writes the error envelope, including the trace id when the
// request is being traced.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: "internal error", Code: "INTERNAL"}

	var re *recipe.Error
	if errors.As(err, &re) {
		body.Error = re.Message
		body.Code = string(re.Code)
	} else if status == http.StatusServiceUnavailable {
		body.Error = err.Error()
		body.Code = "UNAVAILABLE"
	}

	if sc := trace.SpanFromContext(r.Context()).SpanContext(); sc.HasTraceID() {
		body.TraceID = sc.TraceID().String()
	}
	writeJSON(w, status, body)
}
