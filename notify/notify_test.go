package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewell/notewell.go/draftsync"
	"github.com/notewell/notewell.go/notepad"
	"github.com/notewell/notewell.go/notewelltesting"
	"github.com/notewell/notewell.go/notify"
)

const testNotebook notepad.NotebookID = 42

func startListener(t *testing.T, srv *notewelltesting.Server, store notify.DraftReloader, opts ...notify.ListenerOption) chan notify.Event {
	t.Helper()

	events := make(chan notify.Event, 16)
	opts = append(opts, notify.WithOnEvent(func(ev notify.Event) { events <- ev }))
	listener := notify.NewListener(srv.URL(), testNotebook, store, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Error("listener did not stop on context cancel")
		}
	})

	// Wait for the subscription to land before tests broadcast.
	require.Eventually(t, func() bool { return srv.Subscribers(testNotebook) > 0 },
		2*time.Second, 10*time.Millisecond)
	return events
}

func TestListenerReloadsStoreOnDraftEvent(t *testing.T) {
	srv := notewelltesting.NewServer()
	defer srv.Close()

	store, err := draftsync.NewStore(srv.Client(), testNotebook)
	require.NoError(t, err)
	require.NoError(t, store.Load(context.Background()))
	version := store.Version()

	events := startListener(t, srv, store)

	external := notepad.Content{
		"p1": {ID: "p1", Type: notepad.BlockParagraph, Value: []notepad.Node{notepad.TextNode("from elsewhere")}},
	}
	srv.SeedDraft(testNotebook, external)
	srv.Broadcast(testNotebook, notify.Event{Type: notify.EventDraftUpdated})

	require.Eventually(t, func() bool { return store.Version() > version },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, external, store.Content())

	select {
	case ev := <-events:
		assert.Equal(t, notify.EventDraftUpdated, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered to hook")
	}
}

func TestListenerReloadsStoreOnItemEvent(t *testing.T) {
	srv := notewelltesting.NewServer()
	defer srv.Close()

	store, err := draftsync.NewStore(srv.Client(), testNotebook)
	require.NoError(t, err)
	require.NoError(t, store.Load(context.Background()))
	version := store.Version()

	startListener(t, srv, store)

	srv.Broadcast(testNotebook, notify.Event{Type: notify.EventItemAdded, ItemID: 7})
	require.Eventually(t, func() bool { return store.Version() > version },
		2*time.Second, 10*time.Millisecond)
}

func TestListenerIgnoresUnknownEvents(t *testing.T) {
	srv := notewelltesting.NewServer()
	defer srv.Close()

	store, err := draftsync.NewStore(srv.Client(), testNotebook)
	require.NoError(t, err)
	require.NoError(t, store.Load(context.Background()))
	gets := srv.Count(notewelltesting.OpDraftGet)

	events := startListener(t, srv, store)

	srv.Broadcast(testNotebook, notify.Event{Type: "unrelated_noise"})
	select {
	case ev := <-events:
		assert.Equal(t, "unrelated_noise", ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered to hook")
	}

	// The unknown event triggered no reload.
	assert.Equal(t, gets, srv.Count(notewelltesting.OpDraftGet))
	assert.Equal(t, uint64(1), store.Version())
}
