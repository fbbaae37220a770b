package draftsync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/notewell/notewell.go"
)

// Linker runs the two-phase flow for adding content to a notebook: create
// the item server-side, then splice an embedded reference to it into the
// draft and persist. There is no cross-step transaction, so a failed second
// step is compensated by deleting the item just created; a crash between
// the two steps can still leave an orphaned item, which is accepted.
type Linker struct {
	store *Store
	api   ItemAPI
	log   zerolog.Logger
}

// LinkerOption configures a Linker.
type LinkerOption func(*Linker)

// WithLinkerLogger sets the linker's logger. The default is a no-op logger.
func WithLinkerLogger(log zerolog.Logger) LinkerOption {
	return func(l *Linker) { l.log = log }
}

// NewLinker creates a linker over the given store and item API.
func NewLinker(store *Store, api ItemAPI, opts ...LinkerOption) *Linker {
	l := &Linker{
		store: store,
		api:   api,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddItem creates a notebook item and links it into the draft. If the link
// step fails, the created item is deleted best-effort (a failed delete is
// logged, never masks the original error) and the link error is returned
// unchanged so callers see exactly what the persistence layer reported.
func (l *Linker) AddItem(ctx context.Context, req notewell.AddItemRequest) (*notewell.Item, error) {
	item, err := l.api.AddItem(ctx, l.store.NotebookID(), req)
	if err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}

	if _, err := l.store.AppendItemRef(ctx, item.ID); err != nil {
		if derr := l.api.RemoveItem(ctx, l.store.NotebookID(), item.ID); derr != nil {
			l.log.Error().Err(derr).Int64("item", int64(item.ID)).
				Msg("rollback delete failed; item is orphaned")
		}
		return nil, err
	}

	return item, nil
}
