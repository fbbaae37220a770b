package notepad

import "sort"

// RefSet is the set of item IDs referenced by a draft. Reconciliation
// compares two of these: the baseline captured at the last reconciled save
// and the set extracted from the content being saved.
type RefSet map[ItemID]struct{}

// Add inserts id into the set.
func (s RefSet) Add(id ItemID) {
	s[id] = struct{}{}
}

// Contains reports whether id is in the set.
func (s RefSet) Contains(id ItemID) bool {
	_, ok := s[id]
	return ok
}

// Diff returns the IDs present in s but absent from other, in ascending
// order. These are the references removed between two drafts.
func (s RefSet) Diff(other RefSet) []ItemID {
	var removed []ItemID
	for id := range s {
		if !other.Contains(id) {
			removed = append(removed, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed
}

// Sorted returns the set's members in ascending order.
func (s RefSet) Sorted() []ItemID {
	ids := make([]ItemID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ExtractRefs walks every block's payload tree and collects the item IDs of
// all embedded-reference nodes. The walk descends into children, so
// references survive being nested under other elements. Nodes whose ID does
// not coerce to a finite integer are silently skipped. The result is a set:
// deterministic and independent of block order.
func ExtractRefs(c Content) RefSet {
	refs := make(RefSet)
	for _, b := range c {
		for _, n := range b.Value {
			extractNodeRefs(n, refs)
		}
	}
	return refs
}

func extractNodeRefs(n Node, refs RefSet) {
	if n.Type == NodeNotebookItem && n.Props != nil {
		if id, ok := n.Props.ItemRef.ItemID(); ok {
			refs.Add(id)
		}
	}
	for _, child := range n.Children {
		extractNodeRefs(child, refs)
	}
}

// MergeMissingRefs splices into local every remote block that embeds a
// reference ID absent from local. Local blocks are never altered or
// removed; this is the additive merge applied when the store advances while
// the edit buffer holds unsaved work. It returns the merged content (a
// copy; local is not modified) and the number of blocks spliced in.
func MergeMissingRefs(local, remote Content) (Content, int) {
	localRefs := ExtractRefs(local)

	merged := local.Clone()
	if merged == nil {
		merged = make(Content)
	}
	spliced := 0
	for id, b := range remote {
		blockRefs := make(RefSet)
		for _, n := range b.Value {
			extractNodeRefs(n, blockRefs)
		}
		missing := false
		for ref := range blockRefs {
			if !localRefs.Contains(ref) {
				missing = true
				break
			}
		}
		if !missing {
			continue
		}
		if _, taken := merged[id]; taken {
			// Same block ID on both sides implies the block is already
			// present locally; nothing to splice.
			continue
		}
		merged[id] = b.clone()
		for ref := range blockRefs {
			localRefs.Add(ref)
		}
		spliced++
	}
	if spliced == 0 {
		return merged, 0
	}
	return merged, spliced
}
