package draftsync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/notewell/notewell.go/notepad"
)

// DefaultAutosaveDelay is the debounce delay between the last edit and the
// automatic save.
const DefaultAutosaveDelay = 2 * time.Second

// DefaultSaveTimeout bounds saves fired without a caller context: debounce
// callbacks and teardown.
const DefaultSaveTimeout = 10 * time.Second

// Status is the transient state surfaced to the page while the buffer talks
// to the backend ("Saving…", "Saved", ...). Display and auto-dismissal are
// the page's business.
type Status string

const (
	StatusSaving   Status = "saving"
	StatusSaved    Status = "saved"
	StatusClearing Status = "clearing"
	StatusCleared  Status = "cleared"
	StatusError    Status = "error"
)

// Buffer is the page-level edit buffer for one notebook's notepad. It holds
// the user's in-progress draft, a dirty flag and a debounced auto-save, and
// merges remote-truth updates from the [Store] into local edits without
// discarding unsaved work.
//
// The buffer observes the store through its version counter, not content
// equality: a version it has not seen means something changed outside its
// own edits.
type Buffer struct {
	store *Store
	items ItemRemover
	sched *Scheduler
	log   zerolog.Logger

	onStatus    func(Status)
	saveTimeout time.Duration

	mu                sync.Mutex
	content           notepad.Content
	dirty             bool
	synced            bool
	lastSyncedVersion uint64
	baseline          notepad.RefSet
	saving            bool
	gen               uint64 // bumped on every edit; guards the dirty reset after a save
}

// BufferOption configures a Buffer.
type BufferOption func(*Buffer)

// WithAutosaveDelay overrides [DefaultAutosaveDelay].
func WithAutosaveDelay(d time.Duration) BufferOption {
	return func(b *Buffer) { b.sched = NewScheduler(d) }
}

// WithSaveTimeout overrides [DefaultSaveTimeout].
func WithSaveTimeout(d time.Duration) BufferOption {
	return func(b *Buffer) { b.saveTimeout = d }
}

// WithBufferLogger sets the buffer's logger. The default is a no-op logger.
func WithBufferLogger(log zerolog.Logger) BufferOption {
	return func(b *Buffer) { b.log = log }
}

// WithStatus registers a hook receiving status transitions. The hook runs
// on whichever goroutine drives the save, so it must not block.
func WithStatus(fn func(Status)) BufferOption {
	return func(b *Buffer) { b.onStatus = fn }
}

// NewBuffer creates an edit buffer over the given store. items is used for
// reference reconciliation and cascade cleanup.
func NewBuffer(store *Store, items ItemRemover, opts ...BufferOption) *Buffer {
	b := &Buffer{
		store:       store,
		items:       items,
		sched:       NewScheduler(DefaultAutosaveDelay),
		log:         zerolog.Nop(),
		saveTimeout: DefaultSaveTimeout,
		baseline:    make(notepad.RefSet),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Buffer) emit(s Status) {
	if b.onStatus != nil {
		b.onStatus(s)
	}
}

// Content returns the working draft. Callers must treat it as read-only and
// submit edits through [Buffer.SetContent].
func (b *Buffer) Content() notepad.Content {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content
}

// Dirty reports whether the buffer holds unsaved edits.
func (b *Buffer) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// SyncFromStore reconciles the buffer with the store's current truth. Call
// it after the store loads and whenever its version may have advanced
// (e.g. from the notify listener or an append flow).
//
// Three cases:
//   - first sync: copy the store content wholesale and capture the
//     reference baseline;
//   - version advanced, buffer clean: overwrite wholesale, refresh the
//     baseline;
//   - version advanced, buffer dirty: additively splice in reference
//     blocks the buffer has not seen, leaving local edits untouched.
func (b *Buffer) SyncFromStore() {
	content, version, loaded := b.store.Snapshot()
	if !loaded {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case !b.synced:
		b.content = content.Clone()
		b.dirty = false
		b.synced = true
		b.lastSyncedVersion = version
		b.baseline = notepad.ExtractRefs(b.content)
	case version == b.lastSyncedVersion:
		// Nothing changed outside our own edits.
	case !b.dirty:
		b.content = content.Clone()
		b.lastSyncedVersion = version
		b.baseline = notepad.ExtractRefs(b.content)
	default:
		merged, spliced := notepad.MergeMissingRefs(b.content, content)
		b.content = merged
		b.lastSyncedVersion = version
		if spliced > 0 {
			b.log.Debug().Int("blocks", spliced).Msg("merged external references into dirty draft")
		}
	}
}

// SetContent replaces the working draft with the editor's latest content,
// marks the buffer dirty, echoes the content into the store (so concurrent
// append flows build on it) and re-arms the auto-save timer.
func (b *Buffer) SetContent(content notepad.Content) {
	b.mu.Lock()
	b.content = content
	b.dirty = true
	b.gen++
	b.mu.Unlock()

	b.store.SetLocalContent(content)
	b.sched.Schedule(b.autosave)
}

// autosave is the debounce callback. Failures must never reach the editor:
// they are logged and the buffer stays dirty for the next attempt.
func (b *Buffer) autosave() {
	ctx, cancel := context.WithTimeout(context.Background(), b.saveTimeout)
	defer cancel()
	if _, _, err := b.saveBuffer(ctx, false); err != nil {
		b.log.Warn().Err(err).Msg("auto-save failed")
	}
}

// saveBuffer persists the working draft through the store. When force is
// false and a save is already in flight, or the buffer has never synced, it
// reports ok=false without issuing a request. On success the buffer adopts
// any reference blocks the store merged in from concurrent appends, and the
// dirty flag clears unless new edits arrived while the request was in
// flight.
func (b *Buffer) saveBuffer(ctx context.Context, force bool) (saved notepad.Content, ok bool, err error) {
	b.mu.Lock()
	if (b.saving && !force) || !b.synced {
		b.mu.Unlock()
		return nil, false, nil
	}
	b.saving = true
	gen := b.gen
	content := b.content.Clone()
	b.mu.Unlock()

	b.emit(StatusSaving)
	saved, version, err := b.store.saveMerged(ctx, content)

	b.mu.Lock()
	b.saving = false
	if err != nil {
		b.mu.Unlock()
		b.emit(StatusError)
		return nil, false, err
	}
	if b.gen == gen {
		b.dirty = false
	}
	// A concurrent append may have spliced references into the persisted
	// content; adopt them so the working draft matches remote truth.
	if merged, spliced := notepad.MergeMissingRefs(b.content, saved); spliced > 0 {
		b.content = merged
	}
	if version > b.lastSyncedVersion {
		b.lastSyncedVersion = version
	}
	b.mu.Unlock()
	b.emit(StatusSaved)
	return saved, true, nil
}

// Flush cancels the pending auto-save and persists immediately. The page
// calls it when it becomes hidden (tab switch, navigation) so edits are not
// left to a timer that may never fire. A save already in flight is not
// duplicated. A clean buffer is a no-op.
func (b *Buffer) Flush(ctx context.Context) error {
	b.sched.Cancel()
	b.mu.Lock()
	dirty := b.dirty
	b.mu.Unlock()
	if !dirty {
		return nil
	}
	_, _, err := b.saveBuffer(ctx, false)
	return err
}

// Save is the explicit save path: persist the working draft, then delete
// items whose embedded reference was removed since the last reconciled
// save, then advance the baseline to the persisted content's reference set.
// Reconciliation failures are logged and do not undo the save.
func (b *Buffer) Save(ctx context.Context) error {
	b.sched.Cancel()

	b.mu.Lock()
	baseline := make(notepad.RefSet, len(b.baseline))
	for id := range b.baseline {
		baseline.Add(id)
	}
	b.mu.Unlock()

	saved, ok, err := b.saveBuffer(ctx, true)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	newRefs := notepad.ExtractRefs(saved)
	for _, id := range baseline.Diff(newRefs) {
		if derr := b.items.RemoveItem(ctx, b.store.NotebookID(), id); derr != nil {
			b.log.Warn().Err(derr).Int64("item", int64(id)).Msg("orphaned item delete failed")
		}
	}

	b.mu.Lock()
	b.baseline = newRefs
	b.mu.Unlock()
	return nil
}

// Clear deletes the draft server-side and cascades deletion to every item
// the previous draft content referenced, then resets the buffer. Item
// deletions are best-effort once the draft itself is gone.
func (b *Buffer) Clear(ctx context.Context) error {
	b.sched.Cancel()

	b.mu.Lock()
	refs := notepad.ExtractRefs(b.content)
	for id := range b.baseline {
		refs.Add(id)
	}
	b.mu.Unlock()

	b.emit(StatusClearing)
	if err := b.store.Clear(ctx); err != nil {
		b.emit(StatusError)
		return err
	}

	for _, id := range refs.Sorted() {
		if err := b.items.RemoveItem(ctx, b.store.NotebookID(), id); err != nil {
			b.log.Warn().Err(err).Int64("item", int64(id)).Msg("cascade item delete failed")
		}
	}

	b.mu.Lock()
	b.content = nil
	b.dirty = false
	b.gen++
	b.baseline = make(notepad.RefSet)
	b.lastSyncedVersion = b.store.Version()
	b.mu.Unlock()
	b.emit(StatusCleared)
	return nil
}

// Close cancels the pending auto-save and, if the buffer is dirty, fires a
// best-effort save bounded by the save timeout. Errors are logged and
// swallowed: teardown must not block or fail the page.
func (b *Buffer) Close() {
	b.sched.Cancel()

	b.mu.Lock()
	dirty := b.dirty
	b.mu.Unlock()
	if !dirty {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.saveTimeout)
	defer cancel()
	if _, _, err := b.saveBuffer(ctx, true); err != nil {
		b.log.Warn().Err(err).Msg("teardown save failed")
	}
}
