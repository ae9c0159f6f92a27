package wsapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/roach88/recipedecider/internal/broadcast"
	"github.com/roach88/recipedecider/internal/command"
	"github.com/roach88/recipedecider/internal/recipe"
	"github.com/roach88/recipedecider/internal/router"
)

// MaxFrameBytes caps an inbound frame.
const MaxFrameBytes = 1 << 20

// Dispatcher submits commands to the router.
type Dispatcher interface {
	Dispatch(ctx context.Context, req router.Request) (recipe.Result, error)
}

// Handler upgrades requests and serves one connection per request.
type Handler struct {
	dispatcher Dispatcher
	hub        *broadcast.Hub
	normalizer *command.Normalizer
	accept     websocket.AcceptOptions
}

// Option configures a Handler.
type Option func(*Handler)

// WithOriginPatterns allows cross-origin upgrades from hosts matching the
// given patterns (see websocket.AcceptOptions.OriginPatterns).
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) {
		h.accept.OriginPatterns = append(h.accept.OriginPatterns, patterns...)
	}
}

// WithNormalizer overrides command.New().
func WithNormalizer(n *command.Normalizer) Option {
	return func(h *Handler) {
		if n != nil {
			h.normalizer = n
		}
	}
}

// New returns a Handler that registers connections with hub.
func New(d Dispatcher, hub *broadcast.Hub, opts ...Option) *Handler {
	h := &Handler{
		dispatcher: d,
		hub:        hub,
		normalizer: command.New(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &h.accept)
	if err != nil {
		// Accept has already written the HTTP error response.
		slog.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c.SetReadLimit(MaxFrameBytes)

	sub := &subscriber{conn: c}
	unsubscribe := h.hub.Subscribe(sub)
	defer unsubscribe()
	defer c.CloseNow()

	slog.Info("websocket connected", "remote", r.RemoteAddr)
	h.readLoop(r.Context(), c, r.RemoteAddr)
}

func (h *Handler) readLoop(ctx context.Context, c *websocket.Conn, remote string) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				slog.Info("websocket disconnected", "remote", remote, "status", status)
			} else {
				slog.Info("websocket read failed", "remote", remote, "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			slog.Debug("ignoring binary frame", "remote", remote, "bytes", len(data))
			continue
		}

		cmd, err := h.normalizer.Normalize(data)
		if err != nil {
			slog.Info("dropping malformed frame", "remote", remote, "error", err)
			continue
		}

		if _, err := h.dispatcher.Dispatch(ctx, router.Request{Command: cmd, Origin: recipe.ChannelWebSocket}); err != nil {
			// No direct reply on this channel; the error only reaches the log.
			if errors.Is(err, router.ErrStopped) {
				_ = c.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			slog.Info("websocket command rejected", "remote", remote, "command", cmd.String(), "error", err)
		}
	}
}

// subscriber adapts a connection to broadcast.Subscriber.
type subscriber struct {
	conn *websocket.Conn
}

func (s *subscriber) Send(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *subscriber) Close() error {
	return s.conn.CloseNow()
}
