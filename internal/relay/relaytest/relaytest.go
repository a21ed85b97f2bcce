// Package relaytest provides an in-process Nostr relay for tests.
package relaytest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/nbd-wtf/go-nostr"
)

const writeTimeout = 5 * time.Second

// Server is a minimal relay: it stores events it receives, answers REQs
// with matching stored events followed by EOSE and forwards new events to
// matching live subscriptions.
type Server struct {
	srv *httptest.Server

	mu      sync.Mutex
	reject   string
	noEcho   bool
	ackDelay time.Duration
	events  []nostr.Event
	clients map[*client]struct{}
	wg      sync.WaitGroup
}

type client struct {
	conn *websocket.Conn

	mu   sync.Mutex
	subs map[string]nostr.Filters
}

// NewServer starts a relay listening on a random local port.
func NewServer() *Server {
	s := &Server{clients: make(map[*client]struct{})}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the ws:// address of the relay.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// Close drops every client connection and stops the listener.
func (s *Server) Close() {
	s.DropConnections()
	s.srv.Close()
	s.wg.Wait()
}

// DropConnections closes all open client websockets, as a relay restart
// would.
func (s *Server) DropConnections() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "relay shutting down")
	}
}

// SetReject makes the relay answer every EVENT with OK=false and reason
// without storing it. An empty reason restores normal behaviour.
func (s *Server) SetReject(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = reason
}

// SetAckDelay makes the relay hold an accepted event for d before sending
// its OK. The event is visible through Events during the delay.
func (s *Server) SetAckDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ackDelay = d
}

// SetEcho controls whether accepted events are forwarded to live
// subscriptions. It is on by default.
func (s *Server) SetEcho(echo bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noEcho = !echo
}

// Events returns a copy of every event the relay has accepted, including
// injected ones.
func (s *Server) Events() []nostr.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]nostr.Event(nil), s.events...)
}

// Subscriptions returns the number of open subscriptions across clients.
func (s *Server) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for c := range s.clients {
		c.mu.Lock()
		n += len(c.subs)
		c.mu.Unlock()
	}
	return n
}

// Inject stores ev and delivers it to matching subscriptions, as if another
// participant had published it.
func (s *Server) Inject(ev nostr.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	s.broadcast(ev)
}

// Notice sends a NOTICE to every connected client.
func (s *Server) Notice(msg string) {
	env := nostr.NoticeEnvelope(msg)
	for _, c := range s.snapshot() {
		c.send(&env)
	}
}

func (s *Server) snapshot() []*client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		return
	}
	c := &client{conn: conn, subs: make(map[string]nostr.Filters)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		s.wg.Done()
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			_ = conn.CloseNow()
			return
		}
		s.dispatch(c, data)
	}
}

func (s *Server) dispatch(c *client, data []byte) {
	switch env := nostr.ParseMessage(data).(type) {
	case *nostr.ReqEnvelope:
		c.mu.Lock()
		c.subs[env.SubscriptionID] = env.Filters
		c.mu.Unlock()
		for _, ev := range s.Events() {
			if env.Filters.Match(&ev) {
				id := env.SubscriptionID
				c.send(&nostr.EventEnvelope{SubscriptionID: &id, Event: ev})
			}
		}
		eose := nostr.EOSEEnvelope(env.SubscriptionID)
		c.send(&eose)

	case *nostr.CloseEnvelope:
		c.mu.Lock()
		delete(c.subs, string(*env))
		c.mu.Unlock()

	case *nostr.EventEnvelope:
		ev := env.Event
		s.mu.Lock()
		reject, noEcho := s.reject, s.noEcho
		s.mu.Unlock()
		if reject != "" {
			c.send(&nostr.OKEnvelope{EventID: ev.ID, OK: false, Reason: reject})
			return
		}
		if ok, _ := ev.CheckSignature(); !ok || ev.GetID() != ev.ID {
			c.send(&nostr.OKEnvelope{EventID: ev.ID, OK: false, Reason: "invalid: bad signature"})
			return
		}
		s.mu.Lock()
		s.events = append(s.events, ev)
		delay := s.ackDelay
		s.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		c.send(&nostr.OKEnvelope{EventID: ev.ID, OK: true})
		if !noEcho {
			s.broadcast(ev)
		}
	}
}

func (s *Server) broadcast(ev nostr.Event) {
	for _, c := range s.snapshot() {
		c.mu.Lock()
		var ids []string
		for id, filters := range c.subs {
			if filters.Match(&ev) {
				ids = append(ids, id)
			}
		}
		c.mu.Unlock()
		for _, id := range ids {
			c.send(&nostr.EventEnvelope{SubscriptionID: &id, Event: ev})
		}
	}
}

func (c *client) send(env any) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_ = c.conn.Write(ctx, websocket.MessageText, data)
}
