// Package notepad defines the content model for a notebook's notepad draft.
//
// A draft is a flat mapping of block identifiers to [Block] records. Each
// block carries a type tag, an ordering value and a payload of inline [Node]
// elements. Blocks are rendered in ascending Order; order values are not
// required to be contiguous. One block type, [BlockNotebookItem], embeds a
// reference to a server-owned notebook item by its integer ID.
//
// Everything in this package is pure data manipulation: no I/O, no clocks,
// no global state. The persistence lifecycle lives in
// [github.com/notewell/notewell.go/draftsync].
package notepad

import (
	"github.com/google/uuid"
)

// NotebookID identifies a notebook on the server.
type NotebookID int64

// ItemID identifies a server-owned notebook item. Items are created and
// deleted by the server; drafts only hold foreign-key references to them
// inside embedded-reference blocks.
type ItemID int64

// BlockType is the type tag of a draft block.
type BlockType string

const (
	// BlockParagraph is an ordinary editable text block.
	BlockParagraph BlockType = "Paragraph"
	// BlockNotebookItem is a void (non-editable) block embedding a
	// reference to a notebook item. Removing the reference means deleting
	// the whole block; the referenced ID never changes in place.
	BlockNotebookItem BlockType = "NotebookItem"
)

// NodeType is the type tag of an inline element node.
type NodeType string

const (
	// NodeNotebookItem is the inline element carrying the foreign item ID
	// of an embedded reference.
	NodeNotebookItem NodeType = "notebookitem"
)

// Props holds the typed properties of an element node. Only embedded
// reference nodes carry properties today.
type Props struct {
	// ItemRef is the referenced item's ID as it appeared on the wire.
	// Use [ItemRef.ItemID] to coerce it; non-numeric values are not an
	// error, they simply do not count as references.
	ItemRef ItemRef `json:"notebook_item_id,omitempty"`
}

// Node is one node in a block's payload tree: either a text leaf or an
// element with a type tag, optional properties and child nodes.
type Node struct {
	Type     NodeType `json:"type,omitempty"`
	Text     *string  `json:"text,omitempty"`
	Props    *Props   `json:"props,omitempty"`
	Children []Node   `json:"children,omitempty"`
}

// TextNode returns a text leaf.
func TextNode(text string) Node {
	return Node{Text: &text}
}

// Block is a unit of draft content.
type Block struct {
	ID    string    `json:"id"`
	Type  BlockType `json:"type"`
	Order int       `json:"order"`
	Value []Node    `json:"value"`
}

// Content is a draft body: a mapping from block ID to block. The map key
// always equals the block's own ID, and IDs are unique within a draft.
// A nil Content is the absent draft.
type Content map[string]Block

// IsEmpty reports whether the draft has no blocks. Zero-entry content and
// nil content are equivalent for persistence purposes.
func (c Content) IsEmpty() bool {
	return len(c) == 0
}

// Normalize maps zero-entry content to nil so that an emptied draft
// persists as null rather than as an empty object.
func (c Content) Normalize() Content {
	if c.IsEmpty() {
		return nil
	}
	return c
}

// Clone returns a deep copy of the content. The local edit buffer clones
// store snapshots so that in-place edits never alias the store's truth.
func (c Content) Clone() Content {
	if c == nil {
		return nil
	}
	out := make(Content, len(c))
	for id, b := range c {
		out[id] = b.clone()
	}
	return out
}

func (b Block) clone() Block {
	b.Value = cloneNodes(b.Value)
	return b
}

func cloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		if n.Text != nil {
			text := *n.Text
			n.Text = &text
		}
		if n.Props != nil {
			props := *n.Props
			n.Props = &props
		}
		n.Children = cloneNodes(n.Children)
		out[i] = n
	}
	return out
}

// MaxOrder returns the highest order value in the draft, and false when the
// draft is empty.
func (c Content) MaxOrder() (int, bool) {
	if c.IsEmpty() {
		return 0, false
	}
	first := true
	max := 0
	for _, b := range c {
		if first || b.Order > max {
			max = b.Order
			first = false
		}
	}
	return max, true
}

// AppendItemRef returns a copy of the content with a new embedded-reference
// block for itemID appended at order max+1 (order 0 for an empty draft).
// The receiver is not modified.
func (c Content) AppendItemRef(itemID ItemID) Content {
	order := 0
	if max, ok := c.MaxOrder(); ok {
		order = max + 1
	}
	block := NewItemRefBlock(itemID, order)

	out := make(Content, len(c)+1)
	for id, b := range c {
		out[id] = b
	}
	out[block.ID] = block
	return out
}

// NewItemRefBlock builds an embedded-reference block for itemID with a fresh
// unique identifier. Void nodes keep a single empty text child so editors
// treating them as leaves still have a selection target.
func NewItemRefBlock(itemID ItemID, order int) Block {
	return Block{
		ID:    uuid.NewString(),
		Type:  BlockNotebookItem,
		Order: order,
		Value: []Node{
			{
				Type:     NodeNotebookItem,
				Props:    &Props{ItemRef: NewItemRef(itemID)},
				Children: []Node{TextNode("")},
			},
		},
	}
}
