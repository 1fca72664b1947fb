// Package sse streams library change notifications to browser clients.
package sse

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Event is one notification. Path, when set, is the library-relative file
// the event concerns and is matched against subscriber scopes.
type Event struct {
	Type string
	Path string
	Data any
}

// Option configures a Broker.
type Option func(*Broker)

// WithLibraryThrottle sets the minimum gap between library.updated events.
func WithLibraryThrottle(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.libraryMin = d
		}
	}
}

// WithHeartbeat makes ServeHTTP write a comment line every d so idle
// connections survive proxies. Zero disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// WithClientBuffer sets the per-client queue length. Events for a client
// whose queue is full are dropped.
func WithClientBuffer(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// client is one subscriber. An empty scope receives everything.
type client struct {
	ch    chan []byte
	scope string
}

func (c *client) wants(ev Event) bool {
	if c.scope == "" || ev.Path == "" {
		return true
	}
	return ev.Path == c.scope || strings.HasPrefix(ev.Path, c.scope+"/")
}

type change struct {
	op, kind, path string
}

// Broker fans events out to subscribers. A single goroutine owns the client
// set and the throttle clock; the exported methods talk to it over channels.
type Broker struct {
	libraryMin time.Duration
	heartbeat  time.Duration
	buffer     int

	join    chan *client
	leave   chan chan []byte
	publish chan Event
	changes chan change
	count   chan chan int

	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. By default library.updated is sent at most
// every two seconds and a heartbeat goes out every 30 seconds.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		libraryMin: 2 * time.Second,
		heartbeat:  30 * time.Second,
		buffer:     64,
	}
	for _, o := range opts {
		o(b)
	}
	b.join = make(chan *client)
	b.leave = make(chan chan []byte)
	b.publish = make(chan Event, 256)
	b.changes = make(chan change, 256)
	b.count = make(chan chan int)
	b.stop = make(chan struct{})
	b.stopped = make(chan struct{})

	go b.loop()
	return b
}

// frame renders ev in text/event-stream form with the given id.
func frame(id uint64, ev Event) ([]byte, error) {
	data := ev.Data
	if data == nil {
		data = map[string]string{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString("id: ")
	sb.WriteString(strconv.FormatUint(id, 10))
	sb.WriteString("\nevent: ")
	sb.WriteString(ev.Type)
	sb.WriteString("\ndata: ")
	sb.Write(payload)
	sb.WriteString("\n\n")
	return []byte(sb.String()), nil
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]*client)
	var seq uint64
	var lastLibrary time.Time

	send := func(ev Event) {
		seq++
		msg, err := frame(seq, ev)
		if err != nil {
			return
		}
		for _, c := range clients {
			if !c.wants(ev) {
				continue
			}
			select {
			case c.ch <- msg:
			default:
			}
		}
	}

	for {
		select {
		case <-b.stop:
			for ch := range clients {
				close(ch)
			}
			return

		case c := <-b.join:
			clients[c.ch] = c

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.publish:
			send(ev)

		case c := <-b.changes:
			if ev, ok := changeEvent(c); ok {
				send(ev)
			}
			if now := time.Now(); now.Sub(lastLibrary) >= b.libraryMin {
				lastLibrary = now
				send(Event{Type: "library.updated"})
			}

		case resp := <-b.count:
			resp <- len(clients)
		}
	}
}

// changeEvent maps a watcher change to a "<kind>.<op>" event. Only scene
// and codex files get their own event; everything else is covered by the
// throttled library.updated.
func changeEvent(c change) (Event, bool) {
	if c.kind != "scene" && c.kind != "codex" {
		return Event{}, false
	}
	switch c.op {
	case "created", "updated", "deleted":
	default:
		return Event{}, false
	}
	return Event{
		Type: c.kind + "." + c.op,
		Path: c.path,
		Data: map[string]string{"path": c.path},
	}, true
}

// Close stops the broker and closes every subscriber channel. It is safe
// to call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.stopped
}

// Subscribe registers a client limited to scope (a library-relative
// directory such as "Projects/my_novel"); "" subscribes to everything.
// The returned channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe(scope string) chan []byte {
	c := &client{
		ch:    make(chan []byte, b.buffer),
		scope: strings.Trim(scope, "/"),
	}
	if b.closed.Load() {
		close(c.ch)
		return c.ch
	}
	select {
	case b.join <- c:
	case <-b.stopped:
		close(c.ch)
	}
	return c.ch
}

// Unsubscribe removes the client owning ch.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.stopped:
	}
}

// ClientCount reports the number of subscribers.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.count <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish queues ev for delivery.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publish <- ev:
	case <-b.stopped:
	}
}

// PublishChange has the shape of the index watcher callback.
func (b *Broker) PublishChange(op, kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- change{op: op, kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client. The optional "scope" query
// parameter restricts delivery to files under that directory.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("scope"))
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
