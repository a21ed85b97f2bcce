// Package relay manages a single outbound connection to a Nostr relay: it
// connects, holds one live subscription and publishes notes signed by the
// session identity.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/alfredjeanlab/relaynotes/internal/idgen"
	"github.com/alfredjeanlab/relaynotes/internal/model"
)

var (
	// ErrConnection is returned when the relay cannot be reached or the
	// session is not in a state that allows the operation.
	ErrConnection = errors.New("relay connection error")
	// ErrPublish is returned when a note could not be signed or sent.
	ErrPublish = errors.New("relay publish error")
)

// State is the lifecycle state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Signer signs events on behalf of the session. *identity.Identity
// satisfies it.
type Signer interface {
	PublicKey() string
	Sign(ev *nostr.Event) error
}

const (
	defaultPublishTimeout = 10 * time.Second
	defaultBuffer         = 256
)

// Option configures a Session.
type Option func(*Session)

// WithDialer replaces the transport used by Connect.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithWaitForAck makes Publish wait for the relay's OK instead of returning
// once the frame is written.
func WithWaitForAck(wait bool) Option {
	return func(s *Session) { s.waitForAck = wait }
}

// WithPublishTimeout bounds each Publish call.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithBuffer sets the capacity of the notification channel.
func WithBuffer(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.buffer = n
		}
	}
}

// WithStateHook registers fn to be called after every state transition.
// fn runs synchronously and must not call back into the session.
func WithStateHook(fn func(State)) Option {
	return func(s *Session) { s.onState = fn }
}

// Session is one connection to one relay. It is safe for concurrent use:
// Publish may be called from request handlers while the subscription is
// being drained elsewhere.
type Session struct {
	url            string
	signer         Signer
	dialer         Dialer
	logger         *slog.Logger
	waitForAck     bool
	publishTimeout time.Duration
	buffer         int
	onState        func(State)

	mu    sync.Mutex
	state State
	conn  Conn
	sub   *Subscription
}

// NewSession creates a disconnected session for url signing with signer.
func NewSession(url string, signer Signer, opts ...Option) *Session {
	s := &Session{
		url:            url,
		signer:         signer,
		dialer:         NostrDialer{},
		logger:         slog.Default(),
		publishTimeout: defaultPublishTimeout,
		buffer:         defaultBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the relay address.
func (s *Session) URL() string { return s.url }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setStateLocked must be called with s.mu held.
func (s *Session) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.logger.Debug("relay state", "url", s.url, "from", s.state, "to", st)
	s.state = st
	if s.onState != nil {
		s.onState(st)
	}
}

// Connect dials the relay. It fails with ErrConnection if the session is
// not disconnected or the dial fails. There is no retry.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: connect from state %s", ErrConnection, st)
	}
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	conn, err := s.dialer.Dial(ctx, s.url)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.setStateLocked(StateDisconnected)
		return fmt.Errorf("%w: dial %s: %v", ErrConnection, s.url, err)
	}
	if s.state != StateConnecting {
		// Closed while dialing.
		_ = conn.Close()
		return fmt.Errorf("%w: session closed while connecting", ErrConnection)
	}
	s.conn = conn
	s.setStateLocked(StateConnected)
	s.logger.Info("connected to relay", "url", s.url)
	return nil
}

// Subscribe registers filter on the relay and returns the live notification
// sequence. Only one subscription may be active per session.
func (s *Session) Subscribe(ctx context.Context, filter model.Filter) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConnected:
	case StateSubscribed:
		return nil, fmt.Errorf("%w: already subscribed", ErrConnection)
	default:
		return nil, fmt.Errorf("%w: subscribe from state %s", ErrConnection, s.state)
	}

	label, err := idgen.SubscriptionLabel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	in, err := s.conn.Subscribe(subCtx, label, filter)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: subscribe: %v", ErrConnection, err)
	}

	sub := &Subscription{
		label:  label,
		filter: filter,
		out:    make(chan Notification, s.buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.sub = sub
	s.setStateLocked(StateSubscribed)
	s.logger.Info("subscribed", "url", s.url, "label", label,
		"authors", len(filter.Authors), "kinds", filter.Kinds)

	go s.forward(subCtx, sub, in, s.conn)
	return sub, nil
}

// forward copies notifications from the transport to the subscriber in
// arrival order and settles the session state when the stream ends.
func (s *Session) forward(ctx context.Context, sub *Subscription, in <-chan Notification, conn Conn) {
	defer close(sub.done)
	defer close(sub.out)
	defer s.streamEnded(sub, conn)

	for {
		select {
		case n, ok := <-in:
			if !ok {
				return
			}
			select {
			case sub.out <- n:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) streamEnded(sub *Subscription, conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != sub {
		return
	}
	s.sub = nil
	if s.conn != conn {
		return
	}
	select {
	case <-conn.Done():
		s.logger.Warn("relay connection closed", "url", s.url)
		s.conn = nil
		s.setStateLocked(StateDisconnected)
	default:
		s.setStateLocked(StateConnected)
	}
}

// Publish builds a text note with content, signs it with the session
// identity and sends it. By default it returns once the transport has
// accepted the frame; with WithWaitForAck it waits for the relay's OK.
// Content is not validated here.
func (s *Session) Publish(ctx context.Context, content string) (*model.Event, error) {
	s.mu.Lock()
	conn := s.conn
	st := s.state
	s.mu.Unlock()
	if conn == nil || (st != StateConnected && st != StateSubscribed) {
		return nil, fmt.Errorf("%w: not connected (%s)", ErrPublish, st)
	}

	ev := nostr.Event{
		CreatedAt: nostr.Now(),
		Kind:      nostr.KindTextNote,
		Tags:      nostr.Tags{},
		Content:   content,
	}
	if err := s.signer.Sign(&ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublish, err)
	}
	out := model.EventFromNostr(&ev)

	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := conn.Publish(ctx, out, s.waitForAck); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublish, err)
	}
	s.logger.Debug("published note", "id", out.ID, "acked", s.waitForAck)
	return out, nil
}

// WaitsForAck reports whether Publish waits for relay acknowledgement.
func (s *Session) WaitsForAck() bool { return s.waitForAck }

// Close ends the subscription and the transport connection. The
// notification channel is closed before Close returns. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	conn, sub := s.conn, s.sub
	s.conn = nil
	s.setStateLocked(StateDisconnected)
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("closing relay connection: %w", err)
	}
	return nil
}

// Subscription is the live binding between a filter and the relay
// connection. The notification sequence cannot be restarted; once the
// channel closes, a new Subscribe is needed.
type Subscription struct {
	label  string
	filter model.Filter
	out    chan Notification
	cancel context.CancelFunc
	done   chan struct{}
}

// Label returns the subscription id sent to the relay.
func (sub *Subscription) Label() string { return sub.label }

// Filter returns the filter the subscription was registered with.
func (sub *Subscription) Filter() model.Filter { return sub.filter }

// Notifications returns the inbound sequence. It is closed when the
// connection closes, the subscription is closed or its context ends.
func (sub *Subscription) Notifications() <-chan Notification { return sub.out }

// Close stops the subscription and waits for delivery to stop.
func (sub *Subscription) Close() {
	sub.cancel()
	<-sub.done
}
