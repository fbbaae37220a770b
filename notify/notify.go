// Package notify subscribes to a notebook's change feed so a draft store
// can observe writes made outside the current page (another tab appending
// an item, another client saving the draft).
//
// The backend exposes the feed as a websocket at
// GET /notebooks/{id}/events. Each frame is a JSON [Event]; on draft and
// item events the [Listener] reloads its store, which advances the store
// version and lets the edit buffer run its merge logic.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/notewell/notewell.go/notepad"
)

// Event types sent on the notebook change feed.
const (
	EventDraftUpdated = "notepad_draft_updated"
	EventItemAdded    = "item_added"
)

// Event is one frame of the notebook change feed.
type Event struct {
	Type   string         `json:"type"`
	ItemID notepad.ItemID `json:"item_id,omitempty"`
}

// DraftReloader re-fetches draft truth from the server. It is satisfied by
// [github.com/notewell/notewell.go/draftsync.Store].
type DraftReloader interface {
	Reload(ctx context.Context) error
}

// Listener consumes a notebook's change feed and reloads the draft store
// whenever the backend announces an external change.
type Listener struct {
	url       string
	store     DraftReloader
	log       zerolog.Logger
	dialer    *websocket.Dialer
	onEvent   func(Event)
	reconnect time.Duration
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the listener's logger. The default is a no-op
// logger.
func WithListenerLogger(log zerolog.Logger) ListenerOption {
	return func(l *Listener) { l.log = log }
}

// WithDialer replaces the default websocket dialer.
func WithDialer(d *websocket.Dialer) ListenerOption {
	return func(l *Listener) { l.dialer = d }
}

// WithOnEvent registers a hook invoked after each event is handled. The
// edit buffer's SyncFromStore is the typical subscriber.
func WithOnEvent(fn func(Event)) ListenerOption {
	return func(l *Listener) { l.onEvent = fn }
}

// WithReconnect makes Run re-dial after connection failures, waiting the
// given interval between attempts, until the context is cancelled. Without
// it Run returns on the first failure.
func WithReconnect(interval time.Duration) ListenerOption {
	return func(l *Listener) { l.reconnect = interval }
}

// NewListener creates a listener for one notebook's change feed. baseURL is
// the backend's HTTP base URL; the scheme is rewritten for the websocket
// dial.
func NewListener(baseURL string, notebookID notepad.NotebookID, store DraftReloader, opts ...ListenerOption) *Listener {
	l := &Listener{
		url:    wsURL(baseURL, notebookID),
		store:  store,
		log:    zerolog.Nop(),
		dialer: websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func wsURL(baseURL string, notebookID notepad.NotebookID) string {
	url := baseURL
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return fmt.Sprintf("%s/notebooks/%d/events", url, notebookID)
}

// Run dials the feed and handles events until the context is cancelled or
// the connection fails (or indefinitely with [WithReconnect]). Malformed
// frames are logged and skipped; they do not tear down the connection.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if l.reconnect <= 0 {
			return err
		}
		l.log.Warn().Err(err).Dur("retry_in", l.reconnect).Msg("change feed disconnected")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.reconnect):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, resp, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial change feed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Unblock the read loop when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read change feed: %w", err)
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			l.log.Warn().Err(err).Msg("skipping malformed change feed frame")
			continue
		}

		switch ev.Type {
		case EventDraftUpdated, EventItemAdded:
			if err := l.store.Reload(ctx); err != nil {
				l.log.Warn().Err(err).Str("event", ev.Type).Msg("draft reload after change event failed")
			}
		default:
			l.log.Debug().Str("event", ev.Type).Msg("ignoring unknown change feed event")
		}

		if l.onEvent != nil {
			l.onEvent(ev)
		}
	}
}
