package draftsync

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/notewell/notewell.go"
	"github.com/notewell/notewell.go/notepad"
)

// Store is the single source of truth for one notebook's last-synced
// notepad draft. It caches the content last fetched from or acknowledged by
// the server and tracks a version counter that advances only when remote
// truth changes (successful Load, Save or Clear) — never on local echo via
// [Store.SetLocalContent].
//
// One Store is constructed per notebook and handed to its consumers
// explicitly. Writes (Save, Clear, AppendItemRef) are serialized on a write
// lock, so an auto-save and an explicit save issued concurrently cannot
// interleave on the wire; the later caller observes the earlier result.
type Store struct {
	api        DraftAPI
	notebookID notepad.NotebookID
	log        zerolog.Logger

	// writeMu serializes remote writes and the read-modify-write cycle of
	// AppendItemRef.
	writeMu sync.Mutex

	mu      sync.Mutex
	content notepad.Content
	version uint64
	loaded  bool
	loading bool
	lastErr string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store's logger. The default is a no-op logger.
func WithStoreLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

// NewStore creates a draft store for one notebook.
func NewStore(api DraftAPI, notebookID notepad.NotebookID, opts ...StoreOption) (*Store, error) {
	if notebookID == 0 {
		return nil, notewell.ErrMissingNotebookID
	}
	s := &Store{
		api:        api,
		notebookID: notebookID,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NotebookID returns the notebook this store is bound to.
func (s *Store) NotebookID() notepad.NotebookID {
	return s.notebookID
}

// Version returns the current remote-truth version. It increases by one on
// every successful Load, Save or Clear and never changes otherwise.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Err returns the message of the last failed operation, or "" after the
// last operation succeeded.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Loaded reports whether the store holds content synced with the server.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Content returns the last-synced content. Callers must treat it as
// read-only; the edit buffer clones before editing.
func (s *Store) Content() notepad.Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Snapshot returns the content, version and loaded flag as one consistent
// view.
func (s *Store) Snapshot() (notepad.Content, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content, s.version, s.loaded
}

// Load fetches the draft from the server. It is idempotent: once content is
// loaded, or while a load is in flight, Load returns immediately without a
// network call. A failed load records the error and leaves the store
// unloaded, so the next Load retries.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded || s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	content, err := s.api.GetNotepadDraft(ctx, s.notebookID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		s.log.Warn().Err(err).Int64("notebook", int64(s.notebookID)).Msg("draft load failed")
		return err
	}
	s.content = content.Normalize()
	s.loaded = true
	s.version++
	s.lastErr = ""
	return nil
}

// Reload discards the loaded flag and fetches again, advancing the version
// on success. The notify listener calls this when the backend announces an
// external change to the notebook.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loaded = false
	s.mu.Unlock()
	return s.Load(ctx)
}

// Save overwrites the draft wholesale and stores the server's returned
// content as the new local truth. On failure the error is recorded and
// returned unwrapped, so callers performing compensating actions can react
// to the original failure.
func (s *Store) Save(ctx context.Context, content notepad.Content) (notepad.Content, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.save(ctx, content)
}

// save assumes writeMu is held.
func (s *Store) save(ctx context.Context, content notepad.Content) (notepad.Content, error) {
	saved, err := s.api.PutNotepadDraft(ctx, s.notebookID, content.Normalize())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err.Error()
		s.log.Warn().Err(err).Int64("notebook", int64(s.notebookID)).Msg("draft save failed")
		return nil, err
	}
	s.content = saved.Normalize()
	s.loaded = true
	s.version++
	s.lastErr = ""
	return s.content, nil
}

// saveMerged persists content after splicing in any reference blocks that
// reached the store between the caller's snapshot and the write lock being
// acquired (a concurrent AppendItemRef). It returns the stored content and
// the store version it produced. The Buffer saves through this path so a
// pending auto-save can never erase a just-appended reference.
func (s *Store) saveMerged(ctx context.Context, content notepad.Content) (notepad.Content, uint64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	current, loaded := s.content, s.loaded
	s.mu.Unlock()
	if loaded {
		content, _ = notepad.MergeMissingRefs(content, current)
	}

	saved, err := s.save(ctx, content)
	if err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	version := s.version
	s.mu.Unlock()
	return saved, version, nil
}

// Clear deletes the draft server-side and sets the local content to nil.
// Cascade deletion of the items the previous content referenced is the
// Buffer's responsibility; the store only owns draft truth.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.api.DeleteNotepadDraft(ctx, s.notebookID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err.Error()
		s.log.Warn().Err(err).Int64("notebook", int64(s.notebookID)).Msg("draft clear failed")
		return err
	}
	s.content = nil
	s.loaded = true
	s.version++
	s.lastErr = ""
	return nil
}

// SetLocalContent replaces the store's content without a network call and
// without advancing the version: a local echo, not a remote-truth update.
// It lets concurrent append flows observe in-progress edits instead of
// stale server content. Ignored until the store has loaded.
func (s *Store) SetLocalContent(content notepad.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return
	}
	s.content = content
}

// AppendItemRef appends an embedded-reference block for itemID to the
// current draft and persists the result, returning the saved content. The
// current content is fetched only when the store does not already hold it.
// The whole read-modify-write cycle runs under the write lock.
func (s *Store) AppendItemRef(ctx context.Context, itemID notepad.ItemID) (notepad.Content, error) {
	if itemID == 0 {
		return nil, notewell.ErrMissingItemID
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	content, have := s.content, s.loaded
	s.mu.Unlock()

	if !have {
		var err error
		content, err = s.api.GetNotepadDraft(ctx, s.notebookID)
		if err != nil {
			s.mu.Lock()
			s.lastErr = err.Error()
			s.mu.Unlock()
			return nil, err
		}
		content = content.Normalize()
	}

	return s.save(ctx, content.AppendItemRef(itemID))
}
