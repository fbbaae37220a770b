package notepad

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ItemRef is a foreign item ID as found in a draft payload. Backends and
// editors have historically written it as a JSON number or as a numeric
// string, so the raw scalar is preserved verbatim for round-tripping and
// coerced lazily via [ItemRef.ItemID].
type ItemRef struct {
	raw json.RawMessage
}

// NewItemRef returns a reference to the given item ID, encoded as a number.
func NewItemRef(id ItemID) ItemRef {
	return ItemRef{raw: json.RawMessage(strconv.FormatInt(int64(id), 10))}
}

// ItemID coerces the reference to an integer item ID. String scalars are
// parsed, fractional values are truncated toward zero, and anything
// non-numeric (or non-finite) yields ok=false. A failed coercion is not an
// error: such nodes simply do not count as references.
func (r ItemRef) ItemID() (ItemID, bool) {
	s := strings.TrimSpace(string(r.raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if s[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(r.raw, &unquoted); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(unquoted)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ItemID(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return ItemID(int64(f)), true
}

// IsZero reports whether the reference is unset.
func (r ItemRef) IsZero() bool {
	return len(r.raw) == 0
}

func (r ItemRef) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return r.raw, nil
}

func (r *ItemRef) UnmarshalJSON(data []byte) error {
	r.raw = append(r.raw[:0], data...)
	return nil
}
