package lexical

import (
	"encoding/json"
	"strings"
)

// normalizeFunc turns one untrusted entry into a schema-conformant node.
// position is the 1-based index of the entry among its siblings.
type normalizeFunc func(m map[string]interface{}, position int) (Node, bool)

var kindAliases = map[string]string{
	"listItem":       KindListItem,
	"ListItem":       KindListItem,
	"list_item":      KindListItem,
	"list-item":      KindListItem,
	"header":         KindHeading,
	"mediaReference": KindUpload,
	"media":          KindUpload,
}

// blockNormalizers is filled in init to break the initialization cycle
// between the table and the recursive walk.
var blockNormalizers map[string]normalizeFunc

func init() {
	blockNormalizers = map[string]normalizeFunc{
		KindHeading:   normalizeHeading,
		KindParagraph: normalizeParagraph,
		KindList:      normalizeList,
		KindListItem:  wrapLooseListItem,
		KindText:      wrapLooseText,
		KindUpload:    normalizeUpload,
	}
}

// Normalize repairs an untrusted tree into a well-formed document. It never
// fails: input that yields no usable nodes produces FallbackDocument.
func Normalize(raw interface{}) Document {
	children := NormalizeChildren(raw)
	if len(children) == 0 {
		return FallbackDocument()
	}
	return NewDocument(children)
}

// Repair runs a typed document back through Normalize. Decoding a Document
// keeps whatever shape the sender used, so trees coming back from clients
// pass through here before they are stored.
func Repair(doc Document) Document {
	data, err := json.Marshal(doc)
	if err != nil {
		return FallbackDocument()
	}
	return Normalize(json.RawMessage(data))
}

// NormalizeChildren is Normalize without the fallback substitution. The result
// may be empty.
func NormalizeChildren(raw interface{}) []Node {
	entries := unwrap(raw)
	out := make([]Node, 0, len(entries))
	for i, entry := range entries {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		fn, ok := blockNormalizers[canonicalKind(m)]
		if !ok {
			fn = normalizeUnknownBlock
		}
		if node, ok := fn(m, i+1); ok {
			out = append(out, node)
		}
	}
	return out
}

// unwrap finds the children array inside whatever the model returned.
func unwrap(raw interface{}) []interface{} {
	switch v := raw.(type) {
	case []interface{}:
		return v
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case map[string]interface{}:
		if kids, ok := v["children"].([]interface{}); ok {
			return kids
		}
		if root, ok := v["root"].(map[string]interface{}); ok {
			return unwrap(root)
		}
	case string:
		return unwrapText([]byte(v))
	case []byte:
		return unwrapText(v)
	case json.RawMessage:
		return unwrapText(v)
	}
	return nil
}

func unwrapText(data []byte) []interface{} {
	var parsed interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil
	}
	if _, isString := parsed.(string); isString {
		return nil
	}
	return unwrap(parsed)
}

func canonicalKind(m map[string]interface{}) string {
	kind := stringField(m, "type")
	if alias, ok := kindAliases[kind]; ok {
		return alias
	}
	if kind == "" {
		if _, ok := m["text"]; ok {
			return KindText
		}
		if _, ok := m["children"]; ok {
			return KindParagraph
		}
		return ""
	}
	return strings.ToLower(kind)
}

func blockBase(kind string, m map[string]interface{}) Node {
	n := Node{Type: kind, Version: versionOf(m, 1), Direction: "ltr"}
	if d := stringField(m, "direction"); d == "ltr" || d == "rtl" {
		n.Direction = d
	}
	n.Format = stringField(m, "format")
	if indent, ok := asInt(m["indent"]); ok && indent > 0 {
		n.Indent = indent
	}
	return n
}

func versionOf(m map[string]interface{}, def int) int {
	if v, ok := asInt(m["version"]); ok && v > 0 {
		return v
	}
	return def
}

func normalizeParagraph(m map[string]interface{}, _ int) (Node, bool) {
	n := blockBase(KindParagraph, m)
	n.TextFormat = intField(m, "textFormat")
	n.TextStyle = stringField(m, "textStyle")
	n.Children = inlineChildren(m["children"])
	return n, true
}

func normalizeHeading(m map[string]interface{}, _ int) (Node, bool) {
	n := blockBase(KindHeading, m)
	n.Tag = stringField(m, "tag")
	if len(n.Tag) != 2 || n.Tag[0] != 'h' || n.Tag[1] < '1' || n.Tag[1] > '6' {
		n.Tag = "h2"
	}
	n.Children = inlineChildren(m["children"])
	return n, true
}

func normalizeList(m map[string]interface{}, _ int) (Node, bool) {
	n := blockBase(KindList, m)
	switch stringField(m, "listType") {
	case "number":
		n.ListType, n.Tag = "number", "ol"
	default:
		n.ListType, n.Tag = "bullet", "ul"
	}
	n.Start = 1
	if start, ok := asInt(m["start"]); ok && start > 0 {
		n.Start = start
	}

	kids, _ := m["children"].([]interface{})
	n.Children = make([]Node, 0, len(kids))
	for i, kid := range kids {
		if km, ok := kid.(map[string]interface{}); ok && canonicalKind(km) == KindListItem {
			item, _ := normalizeListItem(km, i+1)
			n.Children = append(n.Children, item)
			continue
		}
		n.Children = append(n.Children, syntheticListItem(flattenText(kid), i+1))
	}
	return n, true
}

func normalizeListItem(m map[string]interface{}, position int) (Node, bool) {
	n := blockBase(KindListItem, m)
	n.Value = position
	if v, ok := asInt(m["value"]); ok && v > 0 {
		n.Value = v
	}

	kids, _ := m["children"].([]interface{})
	n.Children = make([]Node, 0, len(kids))
	for _, kid := range kids {
		km, ok := kid.(map[string]interface{})
		if ok && canonicalKind(km) == KindParagraph {
			grandKids, _ := km["children"].([]interface{})
			for _, gk := range grandKids {
				if text, ok := toText(gk); ok {
					n.Children = append(n.Children, text)
				}
			}
			continue
		}
		if text, ok := toText(kid); ok {
			n.Children = append(n.Children, text)
		}
	}
	return n, true
}

func syntheticListItem(text string, position int) Node {
	return Node{
		Type:      KindListItem,
		Version:   1,
		Direction: "ltr",
		Value:     position,
		Children:  []Node{NewText(text)},
	}
}

func wrapLooseListItem(m map[string]interface{}, position int) (Node, bool) {
	item, _ := normalizeListItem(m, 1)
	return Node{
		Type:      KindList,
		Version:   1,
		Direction: "ltr",
		ListType:  "bullet",
		Tag:       "ul",
		Start:     1,
		Children:  []Node{item},
	}, true
}

func wrapLooseText(m map[string]interface{}, _ int) (Node, bool) {
	text := normalizeText(m)
	p := NewParagraph("")
	p.Children = []Node{text}
	return p, true
}

func normalizeUpload(m map[string]interface{}, _ int) (Node, bool) {
	id := mediaID(m["value"])
	if id == "" {
		return Node{}, false
	}
	kind := MediaKind(stringField(m, "mediaKind"))
	if kind != MediaAudio && kind != MediaVideo {
		kind = inferMediaKind(m["value"])
	}
	if kind == "" {
		kind = MediaVideo
	}
	n := NewMediaReference(kind, id, stringField(m, "id"))
	n.Version = versionOf(m, 3)
	if rel := stringField(m, "relationTo"); rel != "" {
		n.RelationTo = rel
	}
	return n, true
}

// normalizeUnknownBlock keeps the text of kinds outside the schema as a paragraph.
func normalizeUnknownBlock(m map[string]interface{}, _ int) (Node, bool) {
	text := flattenText(m)
	if strings.TrimSpace(text) == "" {
		return Node{}, false
	}
	p := NewParagraph(text)
	p.Direction = blockBase(KindParagraph, m).Direction
	return p, true
}

func normalizeText(m map[string]interface{}) Node {
	n := NewText(stringify(m["text"]))
	n.Version = versionOf(m, 1)
	n.Detail = intField(m, "detail")
	n.TextFlags = intField(m, "format")
	switch mode := stringField(m, "mode"); mode {
	case "normal", "token", "segmented":
		n.Mode = mode
	}
	n.Style = stringField(m, "style")
	return n
}

// inlineChildren coerces the children of a paragraph or heading to text nodes.
func inlineChildren(v interface{}) []Node {
	kids, _ := v.([]interface{})
	out := make([]Node, 0, len(kids))
	for _, kid := range kids {
		if text, ok := toText(kid); ok {
			out = append(out, text)
		}
	}
	return out
}

// toText returns kid as a text node, flattening other kinds to their text.
func toText(kid interface{}) (Node, bool) {
	if km, ok := kid.(map[string]interface{}); ok && canonicalKind(km) == KindText {
		return normalizeText(km), true
	}
	text := flattenText(kid)
	if text == "" {
		return Node{}, false
	}
	return NewText(text), true
}

// flattenText renders any entry as plain text. Block-level children are
// joined by a space, inline children are concatenated.
func flattenText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]interface{}:
		if text, ok := t["text"]; ok {
			return stringify(text)
		}
		return flattenText(t["children"])
	case []interface{}:
		parts := make([]string, 0, len(t))
		sep := ""
		for _, kid := range t {
			if km, ok := kid.(map[string]interface{}); ok && IsBlock(canonicalKind(km)) {
				sep = " "
			}
			if s := flattenText(kid); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep)
	}
	return stringify(v)
}
