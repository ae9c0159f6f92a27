package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/roach88/recipedecider/internal/command"
	"github.com/roach88/recipedecider/internal/recipe"
	"github.com/roach88/recipedecider/internal/router"
)

// MaxBodyBytes caps a POST body.
const MaxBodyBytes = 1 << 20

// Dispatcher submits commands to the router.
type Dispatcher interface {
	Dispatch(ctx context.Context, req router.Request) (recipe.Result, error)
}

// Handler serves /recipes. It holds no state between requests.
type Handler struct {
	dispatcher Dispatcher
	normalizer *command.Normalizer
}

// New returns a Handler. A nil normalizer uses command.New().
func New(d Dispatcher, n *command.Normalizer) *Handler {
	if n == nil {
		n = command.New()
	}
	return &Handler{dispatcher: d, normalizer: n}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.dispatch(w, r, recipe.List())
	case http.MethodPost:
		cmd, err := h.decode(w, r)
		if err != nil {
			slog.Debug("http request rejected", "method", r.Method, "error", err)
			writeError(w, r, err)
			return
		}
		h.dispatch(w, r, cmd)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// decode reads and normalizes a POST body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (recipe.Command, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return recipe.Command{}, recipe.TransportFailure("request body required", nil)
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return recipe.Command{}, recipe.TransportFailure("request body too large", err)
		}
		return recipe.Command{}, recipe.TransportFailure("read request body", err)
	}
	if len(body) == 0 {
		return recipe.Command{}, recipe.TransportFailure("request body required", nil)
	}
	return h.normalizer.Normalize(body)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, cmd recipe.Command) {
	res, err := h.dispatcher.Dispatch(r.Context(), router.Request{Command: cmd, Origin: recipe.ChannelHTTP})
	if err != nil {
		if !recipe.IsClientError(err) {
			slog.Error("http command failed", "command", cmd.String(), "error", err)
		}
		writeError(w, r, err)
		return
	}
	status, body := replyFor(res)
	writeJSON(w, status, body)
}
