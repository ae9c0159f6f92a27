package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/roach88/recipedecider/internal/broadcast"
	"github.com/roach88/recipedecider/internal/command"
	"github.com/roach88/recipedecider/internal/httpapi"
	"github.com/roach88/recipedecider/internal/peer"
	"github.com/roach88/recipedecider/internal/persist"
	"github.com/roach88/recipedecider/internal/recipe"
	"github.com/roach88/recipedecider/internal/router"
	"github.com/roach88/recipedecider/internal/store"
	"github.com/roach88/recipedecider/internal/wsapi"
)

// StepTimeout bounds how long a step may take to produce its effects.
const StepTimeout = 5 * time.Second

// Harness is one isolated service instance driven by a scenario.
//
// Each run gets a fresh store with a fixed seed, an in-memory snapshot
// backend and its own loopback HTTP server carrying every adapter. A
// recording subscriber on the hub captures broadcasts; a real WebSocket
// watcher checks that clients see the same frames.
type Harness struct {
	server     *httptest.Server
	router     *router.Router
	store      *store.Store
	gateway    *persist.Gateway
	hub        *broadcast.Hub
	dispatcher *recordingDispatcher
	recorder   *frameRecorder
	watcher    *watcher
	peer       *peer.Client
	normalizer *command.Normalizer

	stopRouter context.CancelFunc
	routerDone chan struct{}
	seen       int // broadcasts already attributed to a step
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Start a fresh service instance seeded with scenario.Recipes
// 2. Execute each step and check its expect clause
// 3. Stop the instance and capture final and persisted state
// 4. Evaluate assertions
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := start(ctx, scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step, result); err != nil {
			h.stop(result)
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	h.stop(result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func start(ctx context.Context, scenario *Scenario) (*Harness, error) {
	seed := scenario.Seed
	if seed == 0 {
		seed = 1
	}
	st := store.New(store.WithSeed(seed))
	for _, r := range scenario.Recipes {
		st.Append(r)
	}

	gw := persist.NewGateway(persist.NewMemory())
	hub := broadcast.NewHub(broadcast.WithWriteTimeout(StepTimeout))
	rt := router.New(st, gw, hub)

	routerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rt.Run(routerCtx)
	}()

	h := &Harness{
		router:     rt,
		store:      st,
		gateway:    gw,
		hub:        hub,
		dispatcher: &recordingDispatcher{next: rt, records: make(chan dispatchRecord, 64)},
		recorder:   &frameRecorder{},
		normalizer: command.New(),
		stopRouter: cancel,
		routerDone: done,
	}
	hub.Subscribe(h.recorder)

	mux := http.NewServeMux()
	mux.Handle("/recipes", httpapi.New(h.dispatcher, h.normalizer))
	mux.Handle("/rpc", peer.NewServer(h.dispatcher).Handler())
	mux.Handle("/{$}", wsapi.New(h.dispatcher, hub, wsapi.WithNormalizer(h.normalizer)))
	h.server = httptest.NewServer(mux)

	dialCtx, cancelDial := context.WithTimeout(ctx, StepTimeout)
	defer cancelDial()

	w, err := dialWatcher(dialCtx, "ws"+strings.TrimPrefix(h.server.URL, "http")+"/")
	if err != nil {
		h.stop(nil)
		return nil, fmt.Errorf("connect watcher: %w", err)
	}
	h.watcher = w

	client, err := peer.Dial(dialCtx, h.server.URL+"/rpc")
	if err != nil {
		h.stop(nil)
		return nil, fmt.Errorf("connect peer: %w", err)
	}
	h.peer = client

	// The watcher is subscribed once its upgrade has been handled.
	if !waitFor(StepTimeout, func() bool { return hub.Len() == 2 }) {
		h.stop(nil)
		return nil, fmt.Errorf("watcher never subscribed")
	}
	return h, nil
}

func (h *Harness) execute(ctx context.Context, i int, step Step, result *Result) error {
	stepCtx, cancel := context.WithTimeout(ctx, StepTimeout)
	defer cancel()

	var (
		reply *TraceEvent
		err   error
	)
	switch step.Channel {
	case ChannelHTTP:
		reply, err = h.sendHTTP(stepCtx, step)
	case ChannelWS:
		reply, err = h.sendWS(stepCtx, step)
	case ChannelRPC:
		reply, err = h.callRPC(stepCtx, step)
	}
	if err != nil {
		return err
	}

	start := len(result.Trace)
	for _, rec := range h.dispatcher.drain() {
		result.add(TraceEvent{
			Step:    i,
			Type:    EventDispatch,
			Channel: string(rec.origin),
			Command: rec.command,
			Outcome: rec.outcome,
		})
	}
	if reply != nil && reply.Type == EventDropped {
		reply.Step = i
		result.add(*reply)
		reply = nil
	}

	frames := h.recorder.frames()
	for _, f := range frames[h.seen:] {
		result.add(TraceEvent{Step: i, Type: EventBroadcast, Payload: payload(f)})
	}
	h.seen = len(frames)

	if reply != nil {
		reply.Step = i
		result.add(*reply)
	}

	if step.Expect != nil {
		for _, msg := range checkExpect(i, *step.Expect, result.Trace[start:]) {
			result.AddError(msg)
		}
	}
	return nil
}

func (h *Harness) sendHTTP(ctx context.Context, step Step) (*TraceEvent, error) {
	method := step.Method
	if method == "" {
		method = http.MethodGet
		if step.Body != "" {
			method = http.MethodPost
		}
	}

	var body io.Reader
	if step.Body != "" {
		body = strings.NewReader(step.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.server.URL+"/recipes", body)
	if err != nil {
		return nil, err
	}
	resp, err := h.server.Client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("http %s: %w", method, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read http reply: %w", err)
	}

	ev := &TraceEvent{
		Type:    EventReply,
		Channel: string(recipe.ChannelHTTP),
		Status:  resp.StatusCode,
		Outcome: "ok",
		Payload: payload(data),
	}
	if resp.StatusCode >= 400 {
		ev.Outcome = httpErrorCode(resp.StatusCode, data)
	}
	return ev, nil
}

func httpErrorCode(status int, body []byte) string {
	var e struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Code != "" {
		return e.Code
	}
	return http.StatusText(status)
}

// sendWS writes the frame on the watcher connection. Frames that will not
// normalize never reach the router and are recorded as dropped; anything
// else is awaited until the router has processed it.
func (h *Harness) sendWS(ctx context.Context, step Step) (*TraceEvent, error) {
	if err := h.watcher.conn.Write(ctx, websocket.MessageText, []byte(step.Body)); err != nil {
		return nil, fmt.Errorf("ws write: %w", err)
	}

	if _, err := h.normalizer.Normalize([]byte(step.Body)); err != nil {
		return &TraceEvent{
			Type:    EventDropped,
			Channel: string(recipe.ChannelWebSocket),
			Outcome: string(recipe.CodeOf(err)),
		}, nil
	}

	if err := h.dispatcher.await(ctx); err != nil {
		return nil, fmt.Errorf("ws frame was never dispatched: %w", err)
	}
	return nil, nil
}

func (h *Harness) callRPC(ctx context.Context, step Step) (*TraceEvent, error) {
	var (
		out any
		err error
	)
	switch step.Tool {
	case peer.ToolAddRecipe:
		var r recipe.Recipe
		r, err = h.peer.AddRecipe(ctx, *step.Args)
		out = peer.RecipeAdded{Recipe: r}
	case peer.ToolGetRecipes:
		var list []recipe.Recipe
		list, err = h.peer.GetRecipes(ctx)
		out = peer.Recipes{Recipes: list}
	case peer.ToolRollRecipe:
		var r *recipe.Recipe
		r, err = h.peer.RollRecipe(ctx)
		out = peer.RolledRecipe{Recipe: r}
	}

	ev := &TraceEvent{
		Type:    EventReply,
		Channel: string(recipe.ChannelRPC),
		Command: step.Tool,
		Outcome: "ok",
	}
	if err != nil {
		toolErr, ok := err.(*peer.ToolError)
		if !ok {
			return nil, err
		}
		ev.Outcome = string(toolErr.Code())
		out = map[string]string{"error": toolErr.Message}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode rpc reply: %w", err)
	}
	ev.Payload = json.RawMessage(data)
	return ev, nil
}

// stop tears the instance down. When result is non-nil the final and
// persisted collections are captured and the watcher's view is checked.
func (h *Harness) stop(result *Result) {
	if result != nil && h.watcher != nil {
		want := h.recorder.frames()
		if !waitFor(StepTimeout, func() bool { return len(h.watcher.frames()) >= len(want) }) {
			result.AddError(fmt.Sprintf("watcher received %d of %d broadcasts", len(h.watcher.frames()), len(want)))
		} else if got := h.watcher.frames(); !equalFrames(got[:len(want)], want) {
			result.AddError("watcher frames differ from broadcast frames")
		}
	}

	if h.peer != nil {
		_ = h.peer.Close()
	}
	if h.watcher != nil {
		h.watcher.close()
	}
	if h.server != nil {
		h.server.Close()
	}
	h.hub.Close()
	h.stopRouter()
	<-h.routerDone

	if result == nil {
		return
	}
	result.Recipes = append(result.Recipes, h.store.List()...)
	if persisted, ok := h.gateway.Load(context.Background()); ok {
		result.Persisted = append(result.Persisted, persisted.List()...)
	}
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
	return true
}

func equalFrames(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if string(a[i]) != string(b[i]) {
			return false
		}
	}
	return true
}

// dispatchRecord is what the router made of one command.
type dispatchRecord struct {
	origin  recipe.Channel
	command string
	outcome string
}

// recordingDispatcher sits between the adapters and the router and records
// every command once the router has answered it.
type recordingDispatcher struct {
	next    *router.Router
	records chan dispatchRecord

	mu      sync.Mutex
	pending []dispatchRecord
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, req router.Request) (recipe.Result, error) {
	res, err := d.next.Dispatch(ctx, req)
	rec := dispatchRecord{origin: req.Origin, command: req.Command.String(), outcome: "ok"}
	if err != nil {
		rec.outcome = string(recipe.CodeOf(err))
		if rec.outcome == "" {
			rec.outcome = err.Error()
		}
	}
	d.records <- rec
	return res, err
}

// await blocks until the next command has been dispatched.
func (d *recordingDispatcher) await(ctx context.Context) error {
	select {
	case rec := <-d.records:
		d.mu.Lock()
		d.pending = append(d.pending, rec)
		d.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain returns every record not yet attributed to a step.
func (d *recordingDispatcher) drain() []dispatchRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		select {
		case rec := <-d.records:
			d.pending = append(d.pending, rec)
		default:
			out := d.pending
			d.pending = nil
			return out
		}
	}
}

// frameRecorder is a hub subscriber that keeps every frame.
type frameRecorder struct {
	mu  sync.Mutex
	got [][]byte
}

func (r *frameRecorder) Send(_ context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, append([]byte(nil), data...))
	return nil
}

func (r *frameRecorder) Close() error { return nil }

func (r *frameRecorder) frames() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.got...)
}

// watcher is a WebSocket client that sends ws steps and collects every
// frame the server pushes to it.
type watcher struct {
	conn *websocket.Conn
	done chan struct{}

	mu  sync.Mutex
	got [][]byte
}

func dialWatcher(ctx context.Context, url string) (*watcher, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	w := &watcher{conn: conn, done: make(chan struct{})}
	go w.read()
	return w, nil
}

func (w *watcher) read() {
	defer close(w.done)
	for {
		_, data, err := w.conn.Read(context.Background())
		if err != nil {
			return
		}
		w.mu.Lock()
		w.got = append(w.got, data)
		w.mu.Unlock()
	}
}

func (w *watcher) frames() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]byte(nil), w.got...)
}

func (w *watcher) close() {
	_ = w.conn.CloseNow()
	<-w.done
}
