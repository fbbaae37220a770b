package notewell

import (
	"time"

	"github.com/notewell/notewell.go/notepad"
)

// Item is a server-owned notebook record (a captured message, a document
// reference, a diagram). The server is the sole owner of item lifecycle;
// drafts only reference items by ID through embedded-reference blocks.
type Item struct {
	ID             notepad.ItemID `json:"id"`
	ContentType    string         `json:"content_type,omitempty"`
	ObjectID       int64          `json:"object_id,omitempty"`
	SourceChannel  string         `json:"source_channel"`
	SourceMetadata map[string]any `json:"source_metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AddItemRequest is the payload for creating a notebook item.
//
// ContentType and ObjectID point at an existing object being added to the
// notebook (a document, a diagram); both are empty for free-standing
// content such as a captured chat message. SourceChannel records where the
// add originated and SourceMetadata carries channel-specific context.
type AddItemRequest struct {
	ContentType    string         `json:"content_type,omitempty"`
	ObjectID       int64          `json:"object_id,omitempty"`
	SourceChannel  string         `json:"source_channel"`
	SourceMetadata map[string]any `json:"source_metadata,omitempty"`
}
