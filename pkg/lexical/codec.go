package lexical

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MarshalJSON emits the full field set required for n's kind.
func (n Node) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"type":    n.Type,
		"version": n.Version,
	}

	switch n.Type {
	case KindText:
		out["text"] = n.Text
		out["detail"] = n.Detail
		out["format"] = n.TextFlags
		out["mode"] = n.Mode
		out["style"] = n.Style
		return json.Marshal(out)

	case KindUpload:
		out["format"] = n.Format
		out["id"] = n.ID
		out["fields"] = nil
		out["relationTo"] = n.RelationTo
		out["value"] = mediaValue(n.MediaID)
		out["mediaKind"] = n.MediaKind
		return json.Marshal(out)
	}

	children := n.Children
	if children == nil {
		children = []Node{}
	}
	out["children"] = children

	if IsBlock(n.Type) || n.Type == KindRoot {
		out["direction"] = n.Direction
		out["format"] = n.Format
		out["indent"] = n.Indent
	}

	switch n.Type {
	case KindParagraph:
		out["textFormat"] = n.TextFormat
		out["textStyle"] = n.TextStyle
	case KindHeading:
		out["tag"] = n.Tag
	case KindList:
		out["listType"] = n.ListType
		out["start"] = n.Start
		out["tag"] = n.Tag
	case KindListItem:
		out["value"] = n.Value
	}

	return json.Marshal(out)
}

// UnmarshalJSON reads a node leniently. It performs no repair; use Normalize
// for untrusted trees.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode lexical node: %w", err)
	}
	*n = decodeNode(raw)
	return nil
}

func decodeNode(m map[string]interface{}) Node {
	n := Node{
		Type:       stringField(m, "type"),
		Version:    intField(m, "version"),
		Direction:  stringField(m, "direction"),
		Indent:     intField(m, "indent"),
		TextFormat: intField(m, "textFormat"),
		TextStyle:  stringField(m, "textStyle"),
		Tag:        stringField(m, "tag"),
		Detail:     intField(m, "detail"),
		Mode:       stringField(m, "mode"),
		Style:      stringField(m, "style"),
		ListType:   stringField(m, "listType"),
		Start:      intField(m, "start"),
		ID:         stringField(m, "id"),
		RelationTo: stringField(m, "relationTo"),
		MediaKind:  MediaKind(stringField(m, "mediaKind")),
	}

	if v, ok := m["text"]; ok {
		n.Text = stringify(v)
	}

	// "format" is a bitmask on text nodes and an alignment string on blocks.
	switch f := m["format"].(type) {
	case string:
		n.Format = f
	case float64:
		n.TextFlags = int(f)
	}

	if n.Type == KindUpload {
		n.MediaID = mediaID(m["value"])
		if n.MediaKind == "" {
			n.MediaKind = inferMediaKind(m["value"])
		}
	} else {
		n.Value = intField(m, "value")
	}

	if kids, ok := m["children"].([]interface{}); ok {
		n.Children = make([]Node, 0, len(kids))
		for _, kid := range kids {
			if km, ok := kid.(map[string]interface{}); ok {
				n.Children = append(n.Children, decodeNode(km))
			}
		}
	}
	return n
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]interface{}, key string) int {
	v, _ := asInt(m[key])
	return v
}

func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	}
	return 0, false
}

// stringify coerces a scalar (or anything else) to its textual form.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// mediaID accepts a bare id (number or string) or a populated media document.
func mediaID(v interface{}) string {
	if doc, ok := v.(map[string]interface{}); ok {
		return stringify(doc["id"])
	}
	if v == nil {
		return ""
	}
	return stringify(v)
}

func inferMediaKind(v interface{}) MediaKind {
	doc, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	mime, _ := doc["mimeType"].(string)
	switch {
	case strings.HasPrefix(mime, "audio/"):
		return MediaAudio
	case strings.HasPrefix(mime, "video/"):
		return MediaVideo
	}
	return ""
}

// mediaValue emits numeric ids as JSON numbers, matching backends with
// integer primary keys.
func mediaValue(id string) interface{} {
	if id == "" {
		return nil
	}
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return json.Number(id)
	}
	return id
}
