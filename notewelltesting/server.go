// Package notewelltesting provides an in-memory fake Notewell backend for
// tests. It serves the notebook REST surface (notepad draft, items) plus
// the per-notebook websocket change feed, and adds the hooks tests need:
// per-operation request counters, injectable failures and a record of
// deleted items.
package notewelltesting

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/notewell/notewell.go"
	"github.com/notewell/notewell.go/notepad"
	"github.com/notewell/notewell.go/notify"
)

// Op identifies one backend operation for counters and failure injection.
type Op string

const (
	OpDraftGet    Op = "draft.get"
	OpDraftPut    Op = "draft.put"
	OpDraftDelete Op = "draft.delete"
	OpItemAdd     Op = "item.add"
	OpItemRemove  Op = "item.remove"
	OpItemList    Op = "item.list"
)

// Server is a fake Notewell backend bound to an httptest listener.
//
// All state lives in memory and all mutators are safe for concurrent use.
// Draft writes and item creation broadcast change-feed events to connected
// websocket clients, mirroring the real backend.
type Server struct {
	hs *httptest.Server

	mu       sync.Mutex
	drafts   map[notepad.NotebookID]notepad.Content
	items    map[notepad.NotebookID]map[notepad.ItemID]*notewell.Item
	nextItem notepad.ItemID
	counts   map[Op]int
	failures map[Op][]int
	removed  []notepad.ItemID

	connMu sync.Mutex
	conns  map[*feedConn]struct{}
}

type feedConn struct {
	notebookID notepad.NotebookID
	ws         *websocket.Conn
	writeMu    sync.Mutex
}

// NewServer starts a fake backend. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		drafts:   make(map[notepad.NotebookID]notepad.Content),
		items:    make(map[notepad.NotebookID]map[notepad.ItemID]*notewell.Item),
		nextItem: 1,
		counts:   make(map[Op]int),
		failures: make(map[Op][]int),
		conns:    make(map[*feedConn]struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/notebooks/{notebookID}/notepad_draft", s.handleGetDraft).Methods(http.MethodGet)
	r.HandleFunc("/notebooks/{notebookID}/notepad_draft", s.handlePutDraft).Methods(http.MethodPut)
	r.HandleFunc("/notebooks/{notebookID}/notepad_draft", s.handleDeleteDraft).Methods(http.MethodDelete)
	r.HandleFunc("/notebooks/{notebookID}/items", s.handleAddItem).Methods(http.MethodPost)
	r.HandleFunc("/notebooks/{notebookID}/items", s.handleListItems).Methods(http.MethodGet)
	r.HandleFunc("/notebooks/{notebookID}/items/{itemID}", s.handleRemoveItem).Methods(http.MethodDelete)
	r.HandleFunc("/notebooks/{notebookID}/events", s.handleEvents).Methods(http.MethodGet)

	s.hs = httptest.NewServer(r)
	return s
}

// URL returns the backend's base URL.
func (s *Server) URL() string { return s.hs.URL }

// Client returns a notewell.Client pointed at this server.
func (s *Server) Client(opts ...notewell.Option) *notewell.Client {
	return notewell.NewClient(s.hs.URL, opts...)
}

// Close shuts down the listener and drops all feed connections.
func (s *Server) Close() {
	s.connMu.Lock()
	for c := range s.conns {
		c.ws.Close()
	}
	s.conns = make(map[*feedConn]struct{})
	s.connMu.Unlock()
	s.hs.Close()
}

// Count reports how many requests have reached the given operation,
// including ones that were failed by injection.
func (s *Server) Count(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[op]
}

// FailNext makes the next request to op fail with the given HTTP status.
// Calls queue: two FailNext calls fail the next two requests.
func (s *Server) FailNext(op Op, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], status)
}

// RemovedItems returns the item IDs deleted so far, in deletion order.
func (s *Server) RemovedItems() []notepad.ItemID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notepad.ItemID, len(s.removed))
	copy(out, s.removed)
	return out
}

// SeedDraft sets a notebook's stored draft directly, without counting a
// request or broadcasting an event.
func (s *Server) SeedDraft(notebookID notepad.NotebookID, content notepad.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if content.IsEmpty() {
		delete(s.drafts, notebookID)
		return
	}
	s.drafts[notebookID] = content.Clone()
}

// SeedItem inserts an item directly, assigning an ID if the given one is
// zero, and returns the stored record.
func (s *Server) SeedItem(notebookID notepad.NotebookID, item *notewell.Item) *notewell.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.nextItem
		s.nextItem++
	} else if item.ID >= s.nextItem {
		s.nextItem = item.ID + 1
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if s.items[notebookID] == nil {
		s.items[notebookID] = make(map[notepad.ItemID]*notewell.Item)
	}
	s.items[notebookID][item.ID] = item
	return item
}

// Draft returns the stored draft for a notebook, nil when absent.
func (s *Server) Draft(notebookID notepad.NotebookID) notepad.Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[notebookID].Clone()
}

// Items returns a notebook's items sorted by ID.
func (s *Server) Items(notebookID notepad.NotebookID) []*notewell.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*notewell.Item, 0, len(s.items[notebookID]))
	for _, item := range s.items[notebookID] {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// failStatus counts the request and pops an injected failure, if any.
func (s *Server) failStatus(op Op) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[op]++
	q := s.failures[op]
	if len(q) == 0 {
		return 0, false
	}
	s.failures[op] = q[1:]
	return q[0], true
}

func notebookIDVar(r *http.Request) (notepad.NotebookID, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["notebookID"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return notepad.NotebookID(id), true
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

type draftBody struct {
	Content notepad.Content `json:"content"`
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failStatus(OpDraftGet); ok {
		respondError(w, status, "injected failure")
		return
	}
	notebookID, ok := notebookIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid notebook id")
		return
	}

	s.mu.Lock()
	content := s.drafts[notebookID].Clone()
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, draftBody{Content: content})
}

func (s *Server) handlePutDraft(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failStatus(OpDraftPut); ok {
		respondError(w, status, "injected failure")
		return
	}
	notebookID, ok := notebookIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid notebook id")
		return
	}

	var body draftBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid draft body")
		return
	}

	stored := body.Content.Normalize()
	s.mu.Lock()
	if stored == nil {
		delete(s.drafts, notebookID)
	} else {
		s.drafts[notebookID] = stored.Clone()
	}
	s.mu.Unlock()

	s.broadcast(notebookID, notify.Event{Type: notify.EventDraftUpdated})
	respondJSON(w, http.StatusOK, draftBody{Content: stored})
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failStatus(OpDraftDelete); ok {
		respondError(w, status, "injected failure")
		return
	}
	notebookID, ok := notebookIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid notebook id")
		return
	}

	s.mu.Lock()
	delete(s.drafts, notebookID)
	s.mu.Unlock()

	s.broadcast(notebookID, notify.Event{Type: notify.EventDraftUpdated})
	respondJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failStatus(OpItemAdd); ok {
		respondError(w, status, "injected failure")
		return
	}
	notebookID, ok := notebookIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid notebook id")
		return
	}

	var req notewell.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid item body")
		return
	}

	s.mu.Lock()
	item := &notewell.Item{
		ID:             s.nextItem,
		ContentType:    req.ContentType,
		ObjectID:       req.ObjectID,
		SourceChannel:  req.SourceChannel,
		SourceMetadata: req.SourceMetadata,
		CreatedAt:      time.Now().UTC(),
	}
	s.nextItem++
	if s.items[notebookID] == nil {
		s.items[notebookID] = make(map[notepad.ItemID]*notewell.Item)
	}
	s.items[notebookID][item.ID] = item
	s.mu.Unlock()

	s.broadcast(notebookID, notify.Event{Type: notify.EventItemAdded, ItemID: item.ID})
	respondJSON(w, http.StatusCreated, map[string]*notewell.Item{"item": item})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failStatus(OpItemList); ok {
		respondError(w, status, "injected failure")
		return
	}
	notebookID, ok := notebookIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid notebook id")
		return
	}

	respondJSON(w, http.StatusOK, map[string][]*notewell.Item{"items": s.Items(notebookID)})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	if status, ok := s.failStatus(OpItemRemove); ok {
		respondError(w, status, "injected failure")
		return
	}
	notebookID, ok := notebookIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid notebook id")
		return
	}
	rawItemID, err := strconv.ParseInt(mux.Vars(r)["itemID"], 10, 64)
	if err != nil || rawItemID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	itemID := notepad.ItemID(rawItemID)

	s.mu.Lock()
	if _, exists := s.items[notebookID][itemID]; !exists {
		s.mu.Unlock()
		respondError(w, http.StatusNotFound, "item not found")
		return
	}
	delete(s.items[notebookID], itemID)
	s.removed = append(s.removed, itemID)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, struct{}{})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	notebookID, ok := notebookIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid notebook id")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &feedConn{notebookID: notebookID, ws: ws}

	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()

	// Drain until the client disconnects; the feed is write-only.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
		s.connMu.Lock()
		delete(s.conns, conn)
		s.connMu.Unlock()
		ws.Close()
	}()
}

// Subscribers reports how many change-feed connections are open for the
// notebook. Tests use it to wait for a listener before broadcasting.
func (s *Server) Subscribers(notebookID notepad.NotebookID) int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	n := 0
	for c := range s.conns {
		if c.notebookID == notebookID {
			n++
		}
	}
	return n
}

// Broadcast sends a change-feed event to every client subscribed to the
// notebook. Exposed so tests can push synthetic events.
func (s *Server) Broadcast(notebookID notepad.NotebookID, ev notify.Event) {
	s.broadcast(notebookID, ev)
}

func (s *Server) broadcast(notebookID notepad.NotebookID, ev notify.Event) {
	s.connMu.Lock()
	conns := make([]*feedConn, 0, len(s.conns))
	for c := range s.conns {
		if c.notebookID == notebookID {
			conns = append(conns, c)
		}
	}
	s.connMu.Unlock()

	for _, c := range conns {
		c.writeMu.Lock()
		err := c.ws.WriteJSON(ev)
		c.writeMu.Unlock()
		if err != nil {
			s.connMu.Lock()
			delete(s.conns, c)
			s.connMu.Unlock()
			c.ws.Close()
		}
	}
}
