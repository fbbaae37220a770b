package draftsync

import (
	"context"

	"github.com/notewell/notewell.go"
	"github.com/notewell/notewell.go/notepad"
)

// DraftAPI is the slice of the backend API the Store needs. It is satisfied
// by [notewell.Client].
type DraftAPI interface {
	GetNotepadDraft(ctx context.Context, notebookID notepad.NotebookID) (notepad.Content, error)
	PutNotepadDraft(ctx context.Context, notebookID notepad.NotebookID, content notepad.Content) (notepad.Content, error)
	DeleteNotepadDraft(ctx context.Context, notebookID notepad.NotebookID) error
}

// ItemRemover deletes notebook items; the Buffer uses it for reference
// reconciliation and cascade cleanup. It is satisfied by [notewell.Client].
type ItemRemover interface {
	RemoveItem(ctx context.Context, notebookID notepad.NotebookID, itemID notepad.ItemID) error
}

// ItemAPI creates and deletes notebook items; the Linker uses it for the
// create-then-link flow. It is satisfied by [notewell.Client].
type ItemAPI interface {
	AddItem(ctx context.Context, notebookID notepad.NotebookID, req notewell.AddItemRequest) (*notewell.Item, error)
	ItemRemover
}
