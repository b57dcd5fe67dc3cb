package lexical

// Document is the top-level lesson structure stored by the lesson backend.
type Document struct {
	Root Node `json:"root"`
}

// Node represents any node in the lesson tree.
// Serialization is kind-aware (see codec.go): every kind emits its full
// required-field set, so zero values are never dropped.
type Node struct {
	Type     string
	Version  int
	Children []Node

	// Block fields (paragraph, heading, list, listitem)
	Direction string
	Format    string
	Indent    int

	// Paragraph specific
	TextFormat int
	TextStyle  string

	// Heading and list
	Tag string

	// Text specific
	Text      string
	Detail    int
	TextFlags int // bitmask, serialized as "format" on text nodes
	Mode      string
	Style     string

	// List specific
	ListType string
	Start    int

	// ListItem specific
	Value int

	// Upload (media reference) specific
	ID         string
	RelationTo string
	MediaID    string
	MediaKind  MediaKind
}

// MediaKind tells audio references apart from video references.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Canonical node kinds.
const (
	KindRoot      = "root"
	KindHeading   = "heading"
	KindParagraph = "paragraph"
	KindList      = "list"
	KindListItem  = "listitem"
	KindText      = "text"
	KindUpload    = "upload"
)

// Constants for Text Format Bitmask
const (
	FormatBold          = 1
	FormatItalic        = 2
	FormatStrikethrough = 4
	FormatUnderline     = 8
	FormatCode          = 16
	FormatSubscript     = 32
	FormatSuperscript   = 64
)

// NewDocument wraps children in a root node with the backend's root defaults.
func NewDocument(children []Node) Document {
	if children == nil {
		children = []Node{}
	}
	return Document{Root: Node{
		Type:      KindRoot,
		Version:   1,
		Direction: "ltr",
		Children:  children,
	}}
}

// NewText builds a text node with default styling.
func NewText(text string) Node {
	return Node{Type: KindText, Version: 1, Mode: "normal", Text: text}
}

// NewParagraph builds a paragraph holding a single text node.
func NewParagraph(text string) Node {
	return Node{
		Type:      KindParagraph,
		Version:   1,
		Direction: "ltr",
		Children:  []Node{NewText(text)},
	}
}

// NewMediaReference builds an upload node pointing at a media record.
func NewMediaReference(kind MediaKind, mediaID, alt string) Node {
	return Node{
		Type:       KindUpload,
		Version:    3,
		ID:         alt,
		RelationTo: "media",
		MediaID:    mediaID,
		MediaKind:  kind,
	}
}

// IsBlock reports whether kind carries direction/format/indent.
func IsBlock(kind string) bool {
	switch kind {
	case KindParagraph, KindHeading, KindList, KindListItem:
		return true
	}
	return false
}
