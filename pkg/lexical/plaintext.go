package lexical

import "strings"

// PlainText extracts the readable text of a document. Paragraphs and
// headings end with a blank line, list entries with a newline.
func PlainText(doc Document) string {
	var sb strings.Builder
	for _, child := range doc.Root.Children {
		writePlain(child, &sb)
	}
	return strings.TrimSpace(sb.String())
}

func writePlain(node Node, sb *strings.Builder) {
	switch node.Type {
	case KindText:
		sb.WriteString(node.Text)
	case KindParagraph, KindHeading:
		for _, child := range node.Children {
			writePlain(child, sb)
		}
		sb.WriteString("\n\n")
	case KindList, KindListItem:
		for _, child := range node.Children {
			writePlain(child, sb)
		}
		sb.WriteString("\n")
	default:
		for _, child := range node.Children {
			writePlain(child, sb)
		}
	}
}
