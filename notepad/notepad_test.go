package notepad_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewell/notewell.go/notepad"
)

func paragraph(id string, order int, text string) notepad.Block {
	return notepad.Block{
		ID:    id,
		Type:  notepad.BlockParagraph,
		Order: order,
		Value: []notepad.Node{notepad.TextNode(text)},
	}
}

func TestAppendItemRef(t *testing.T) {
	t.Run("EmptyDraftStartsAtOrderZero", func(t *testing.T) {
		var c notepad.Content
		next := c.AppendItemRef(5)
		require.Len(t, next, 1)
		for _, b := range next {
			assert.Equal(t, notepad.BlockNotebookItem, b.Type)
			assert.Equal(t, 0, b.Order)
			assert.Equal(t, b.ID, next[b.ID].ID, "map key must equal block ID")
		}
		assert.Nil(t, c, "receiver must not be modified")
	})

	t.Run("AppendsAtMaxPlusOne", func(t *testing.T) {
		c := notepad.Content{
			"a": paragraph("a", 0, "first"),
			"b": paragraph("b", 7, "sparse order"),
		}
		next := c.AppendItemRef(42)
		require.Len(t, next, 3)
		require.Len(t, c, 2, "receiver must not be modified")

		refs := notepad.ExtractRefs(next)
		assert.True(t, refs.Contains(42))
		for id, b := range next {
			if id == "a" || id == "b" {
				continue
			}
			assert.Equal(t, 8, b.Order)
		}
	})

	t.Run("GeneratedIDsAreUnique", func(t *testing.T) {
		c := notepad.Content{}.AppendItemRef(1).AppendItemRef(2)
		assert.Len(t, c, 2)
	})
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, notepad.Content{}.Normalize(), "zero-entry content normalizes to nil")
	assert.Nil(t, notepad.Content(nil).Normalize())

	c := notepad.Content{"a": paragraph("a", 0, "x")}
	assert.Equal(t, c, c.Normalize())
}

func TestClone(t *testing.T) {
	c := notepad.Content{"a": paragraph("a", 0, "before")}.AppendItemRef(9)
	cp := c.Clone()
	require.Equal(t, c, cp)

	// Mutating the clone's node text must not leak into the original.
	*cp["a"].Value[0].Text = "after"
	assert.Equal(t, "before", *c["a"].Value[0].Text)

	assert.Nil(t, notepad.Content(nil).Clone())
}

func TestContentJSONRoundTrip(t *testing.T) {
	c := notepad.Content{"a": paragraph("a", 3, "hello")}.AppendItemRef(12)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var back notepad.Content
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c, back)
	assert.Equal(t, notepad.RefSet{12: {}}, notepad.ExtractRefs(back))
}

func TestItemRefCoercion(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   notepad.ItemID
		wantOK bool
	}{
		{name: "Number", raw: `5`, want: 5, wantOK: true},
		{name: "NumericString", raw: `"7"`, want: 7, wantOK: true},
		{name: "PaddedString", raw: `" 13 "`, want: 13, wantOK: true},
		{name: "Negative", raw: `-2`, want: -2, wantOK: true},
		{name: "FractionTruncates", raw: `5.9`, want: 5, wantOK: true},
		{name: "NonNumericString", raw: `"not-an-id"`, wantOK: false},
		{name: "EmptyString", raw: `""`, wantOK: false},
		{name: "Null", raw: `null`, wantOK: false},
		{name: "NaNString", raw: `"NaN"`, wantOK: false},
		{name: "InfString", raw: `"+Inf"`, wantOK: false},
		{name: "Object", raw: `{"id":5}`, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref notepad.ItemRef
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &ref))
			got, ok := ref.ItemID()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestItemRefPreservesWireForm(t *testing.T) {
	var ref notepad.ItemRef
	require.NoError(t, json.Unmarshal([]byte(`"7"`), &ref))
	out, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.Equal(t, `"7"`, string(out), "string-encoded IDs must round-trip unchanged")

	out, err = json.Marshal(notepad.ItemRef{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(out))
}
