package lexical

const (
	FallbackTitle   = "Lesson Content"
	FallbackMessage = "The lesson content could not be properly parsed from the PDF. Please try uploading the document again or contact support for assistance."
)

// FallbackChildren is the fixed two-node lesson used when extraction output
// cannot be parsed.
func FallbackChildren() []Node {
	return []Node{
		{
			Type:      KindHeading,
			Version:   1,
			Direction: "ltr",
			Tag:       "h1",
			Children:  []Node{NewText(FallbackTitle)},
		},
		NewParagraph(FallbackMessage),
	}
}

func FallbackDocument() Document {
	return NewDocument(FallbackChildren())
}

// IsFallback reports whether children is the fallback lesson.
func IsFallback(children []Node) bool {
	if len(children) != 2 {
		return false
	}
	h, p := children[0], children[1]
	return h.Type == KindHeading && len(h.Children) == 1 && h.Children[0].Text == FallbackTitle &&
		p.Type == KindParagraph && len(p.Children) == 1 && p.Children[0].Text == FallbackMessage
}
