package lexical

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Parser renders lesson trees as Markdown for model prompts.
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

// Parse converts a serialized lesson document to Markdown.
func (p *Parser) Parse(jsonContent string) (string, error) {
	var doc Document
	if err := json.Unmarshal([]byte(jsonContent), &doc); err != nil {
		return "", fmt.Errorf("failed to parse lexical json: %w", err)
	}
	return p.Render(doc.Root.Children), nil
}

// Render converts a list of top-level nodes to Markdown.
func (p *Parser) Render(children []Node) string {
	var sb strings.Builder
	for _, child := range children {
		p.walkNode(child, &sb, 0)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// ToMarkdown is a convenience wrapper around Parser.Render.
func ToMarkdown(doc Document) string {
	return NewParser().Render(doc.Root.Children)
}

func (p *Parser) walkNode(node Node, sb *strings.Builder, depth int) {
	switch node.Type {
	case KindHeading:
		level := 2
		if len(node.Tag) == 2 && node.Tag[1] >= '1' && node.Tag[1] <= '6' {
			level = int(node.Tag[1] - '0')
		}
		sb.WriteString(strings.Repeat("#", level) + " ")
		p.writeInline(node.Children, sb)
		sb.WriteString("\n")

	case KindParagraph:
		p.writeInline(node.Children, sb)
		sb.WriteString("\n")

	case KindText:
		p.handleText(node, sb)

	case KindList:
		p.handleList(node, sb, depth)

	case KindUpload:
		sb.WriteString(fmt.Sprintf("[%s: %s]\n", node.MediaKind, node.MediaID))

	default:
		for _, child := range node.Children {
			p.walkNode(child, sb, depth)
		}
	}
}

func (p *Parser) writeInline(children []Node, sb *strings.Builder) {
	for _, child := range children {
		p.walkNode(child, sb, 0)
	}
}

func (p *Parser) handleText(node Node, sb *strings.Builder) {
	var open, closing []string
	wrap := func(flag int, marker string) {
		if node.TextFlags&flag != 0 {
			open = append(open, marker)
			closing = append([]string{marker}, closing...)
		}
	}
	wrap(FormatCode, "`")
	wrap(FormatBold, "**")
	wrap(FormatItalic, "_")
	wrap(FormatStrikethrough, "~~")

	sb.WriteString(strings.Join(open, ""))
	sb.WriteString(node.Text)
	sb.WriteString(strings.Join(closing, ""))
}

func (p *Parser) handleList(node Node, sb *strings.Builder, depth int) {
	index := node.Start
	if index < 1 {
		index = 1
	}
	for _, item := range node.Children {
		if item.Type != KindListItem {
			continue
		}
		sb.WriteString(strings.Repeat("  ", depth))
		if node.ListType == "number" {
			sb.WriteString(fmt.Sprintf("%d. ", index))
			index++
		} else {
			sb.WriteString("- ")
		}
		for _, child := range item.Children {
			if child.Type == KindList {
				sb.WriteString("\n")
				p.handleList(child, sb, depth+1)
				continue
			}
			p.walkNode(child, sb, depth)
		}
		sb.WriteString("\n")
	}
}
