package router

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/recipedecider/internal/broadcast"
	"github.com/roach88/recipedecider/internal/metrics"
	"github.com/roach88/recipedecider/internal/recipe"
	"github.com/roach88/recipedecider/internal/store"
)

// ErrStopped is returned by Dispatch once the router has stopped.
var ErrStopped = errors.New("router stopped")

const tracerName = "github.com/roach88/recipedecider/internal/router"

// Saver persists the store after a successful mutation.
type Saver interface {
	Save(ctx context.Context, st *store.Store) error
}

// Notifier fans a result event out to subscribers. It must not fail the
// command, so it has no error return.
type Notifier interface {
	NotifyAll(ctx context.Context, ev broadcast.Event)
}

// Request is a normalized command together with the channel it came from.
type Request struct {
	Command recipe.Command
	Origin  recipe.Channel
}

// Router is the single-writer command router.
//
// Thread-safety model:
//   - Dispatch(): safe from any goroutine (adapter handlers)
//   - Run(): must be called from exactly one goroutine
//   - Stop(): safe from any goroutine, idempotent
type Router struct {
	store    *store.Store
	saver    Saver
	notifier Notifier
	queue    *jobQueue
	ids      IDGenerator
	tracer   trace.Tracer
	metrics  *metrics.Metrics
}

// Option configures a Router.
type Option func(*Router)

// WithIDGenerator overrides the UUIDv7 request id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Router) {
		if g != nil {
			r.ids = g
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(r *Router) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithMetrics records command and persistence metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// New creates a Router that owns st from now on. Callers must not touch st
// after handing it over.
//
// saver and notifier may be nil; a nil saver keeps state in memory only and
// a nil notifier skips the notification step.
func New(st *store.Store, saver Saver, notifier Notifier, opts ...Option) *Router {
	if st == nil {
		st = store.New()
	}
	r := &Router{
		store:    st,
		saver:    saver,
		notifier: notifier,
		queue:    newJobQueue(),
		ids:      UUIDv7Generator{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.metrics.SetRecipes(st.Len())
	return r
}

// Dispatch submits req to the event loop and waits for its result.
//
// The command is applied even if ctx is cancelled after it was queued; in
// that case Dispatch returns ctx.Err() and the result is discarded.
func (r *Router) Dispatch(ctx context.Context, req Request) (recipe.Result, error) {
	j := &job{
		ctx:   ctx,
		id:    r.ids.Generate(),
		req:   req,
		reply: make(chan outcome, 1),
	}
	if !r.queue.Enqueue(j) {
		return recipe.Result{}, ErrStopped
	}

	select {
	case out := <-j.reply:
		return out.result, out.err
	case <-ctx.Done():
		return recipe.Result{}, ctx.Err()
	}
}

// Run starts the single-writer event loop.
// Blocks until ctx is cancelled or Stop is called. Requests still queued at
// that point are answered with ErrStopped.
func (r *Router) Run(ctx context.Context) error {
	slog.Info("router starting", "recipes", r.store.Len())

	for {
		if r.queue.Closed() {
			r.drain()
			slog.Info("router stopping: stopped")
			return nil
		}

		if j, ok := r.queue.TryDequeue(); ok {
			res, err := r.process(j)
			j.reply <- outcome{result: res, err: err}
			continue
		}

		select {
		case <-ctx.Done():
			r.queue.Close()
			r.drain()
			slog.Info("router stopping: context cancelled")
			return ctx.Err()
		case <-r.queue.Wait():
		}
	}
}

// Stop closes the queue; Run returns after finishing the request in flight.
func (r *Router) Stop() {
	r.queue.Close()
}

func (r *Router) drain() {
	for {
		j, ok := r.queue.TryDequeue()
		if !ok {
			return
		}
		j.reply <- outcome{err: ErrStopped}
	}
}

// process runs one request through apply, persist and notify.
// CRITICAL: Called only from the Run goroutine.
func (r *Router) process(j *job) (recipe.Result, error) {
	cmd := j.req.Command
	ctx, span := r.tracer.Start(context.WithoutCancel(j.ctx), "router."+cmd.Kind.String(),
		trace.WithAttributes(
			attribute.String("request.id", j.id),
			attribute.String("command.origin", string(j.req.Origin)),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := r.apply(cmd)
	elapsed := time.Since(start)

	if err != nil {
		status := metrics.OutcomeError
		if recipe.IsClientError(err) {
			status = metrics.OutcomeRejected
		}
		r.metrics.ObserveCommand(cmd.Kind.String(), string(j.req.Origin), status, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(recipe.CodeOf(err)))
		slog.Info("command rejected",
			"request_id", j.id,
			"command", cmd.String(),
			"origin", j.req.Origin,
			"code", recipe.CodeOf(err),
			"error", err,
		)
		return recipe.Result{}, err
	}

	if cmd.Kind.Mutates() {
		r.metrics.SetRecipes(r.store.Len())
		r.persist(ctx, j.id)
	}

	if r.shouldNotify(cmd.Kind, j.req.Origin) {
		if ev, ok := broadcast.EventFor(res); ok {
			r.notifier.NotifyAll(ctx, ev)
		}
	}

	r.metrics.ObserveCommand(cmd.Kind.String(), string(j.req.Origin), metrics.OutcomeOK, time.Since(start))
	slog.Info("command applied",
		"request_id", j.id,
		"command", cmd.String(),
		"origin", j.req.Origin,
		"recipes", r.store.Len(),
	)
	return res, nil
}

// apply executes cmd against the store.
func (r *Router) apply(cmd recipe.Command) (recipe.Result, error) {
	switch cmd.Kind {
	case recipe.KindAdd:
		added := cmd.Recipe
		r.store.Append(added)
		return recipe.Result{Kind: recipe.KindAdd, Recipe: &added}, nil

	case recipe.KindList:
		return recipe.Result{Kind: recipe.KindList, Recipes: r.store.List()}, nil

	case recipe.KindRoll:
		// An empty collection is a valid "no recipe" answer, not an error.
		if r.store.Len() == 0 {
			return recipe.Result{Kind: recipe.KindRoll}, nil
		}
		picked, err := r.store.PickRandom()
		if err != nil {
			return recipe.Result{}, err
		}
		return recipe.Result{Kind: recipe.KindRoll, Recipe: &picked}, nil

	case recipe.KindDelete:
		removed, err := r.store.RemoveAt(cmd.Index)
		if err != nil {
			return recipe.Result{}, err
		}
		return recipe.Result{Kind: recipe.KindDelete, Recipe: &removed, Recipes: r.store.List()}, nil

	default:
		return recipe.Result{}, recipe.Malformed("unknown command kind", nil)
	}
}

// persist writes the snapshot. Failures leave the router in degraded mode:
// logged and counted, never returned.
func (r *Router) persist(ctx context.Context, requestID string) {
	if r.saver == nil {
		return
	}
	err := r.saver.Save(ctx, r.store)
	r.metrics.SnapshotWritten(err)
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		slog.Error("snapshot write failed",
			"request_id", requestID,
			"recipes", r.store.Len(),
			"error", err,
		)
	}
}

// shouldNotify is the notification policy.
//
// Mutations are broadcast whatever their origin. A roll from HTTP is not:
// the HTTP caller already has its answer. A list only broadcasts when it
// came over the WebSocket, which has no direct reply.
func (r *Router) shouldNotify(kind recipe.Kind, origin recipe.Channel) bool {
	if r.notifier == nil {
		return false
	}
	switch kind {
	case recipe.KindAdd, recipe.KindDelete:
		return true
	case recipe.KindRoll:
		return origin == recipe.ChannelRPC || origin == recipe.ChannelWebSocket
	case recipe.KindList:
		return origin == recipe.ChannelWebSocket
	default:
		return false
	}
}
