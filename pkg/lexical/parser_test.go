package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleDocument() Document {
	return NewDocument([]Node{
		{Type: KindHeading, Version: 1, Direction: "ltr", Tag: "h1", Children: []Node{NewText("Cells")}},
		NewParagraph("Cells are the basic unit of life."),
		{
			Type: KindList, Version: 1, Direction: "ltr", ListType: "number", Tag: "ol", Start: 1,
			Children: []Node{
				syntheticListItem("Nucleus", 1),
				syntheticListItem("Membrane", 2),
			},
		},
		NewMediaReference(MediaAudio, "12", "narration"),
	})
}

func TestPlainText(t *testing.T) {
	got := PlainText(sampleDocument())

	assert.Equal(t, "Cells\n\nCells are the basic unit of life.\n\nNucleus\nMembrane", got)
}

func TestPlainText_Empty(t *testing.T) {
	assert.Equal(t, "", PlainText(Document{}))
}

func TestToMarkdown(t *testing.T) {
	got := ToMarkdown(sampleDocument())

	assert.Contains(t, got, "# Cells")
	assert.Contains(t, got, "Cells are the basic unit of life.")
	assert.Contains(t, got, "1. Nucleus")
	assert.Contains(t, got, "2. Membrane")
	assert.Contains(t, got, "[audio: 12]")
}

func TestHandleText_Formats(t *testing.T) {
	cases := []struct {
		name  string
		flags int
		want  string
	}{
		{"plain", 0, "x"},
		{"bold", FormatBold, "**x**"},
		{"bold italic", FormatBold | FormatItalic, "**_x_**"},
		{"code", FormatCode, "`x`"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := NewText("x")
			n.TextFlags = tc.flags
			assert.Equal(t, tc.want, NewParser().Render([]Node{n}))
		})
	}
}
