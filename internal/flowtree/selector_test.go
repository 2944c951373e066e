package flowtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Matches(t *testing.T) {
	box := NewElement("div", Attr{Key: "class", Val: "box main"}, Attr{Key: "id", Val: "b1"},
		Attr{Key: "data-side", Val: "left"})
	span := NewElement("span", Attr{Key: "class", Val: "box"})
	text := NewText("box")

	tests := []struct {
		sel  string
		node *Node
		want bool
	}{
		{".box", box, true},
		{".box", span, true},
		{".box", text, false},
		{"div.box", span, false},
		{"div.box.main", box, true},
		{"#b1", box, true},
		{"#b2", box, false},
		{"[data-side]", box, true},
		{"[data-side=left]", box, true},
		{"[data-side='right']", box, false},
		{"span, #b1", box, true},
		{"*", span, true},
		{"DIV", box, true},
	}
	for _, tt := range tests {
		s, err := Compile(tt.sel)
		require.NoError(t, err, tt.sel)
		assert.Equal(t, tt.want, s.Match(tt.node), "%s", tt.sel)
	}
}

func TestCompile_Errors(t *testing.T) {
	for _, sel := range []string{"", ".", "div .box", "a > b", "[x", "[]", "div,"} {
		_, err := Compile(sel)
		assert.Error(t, err, "%q", sel)
	}
}
