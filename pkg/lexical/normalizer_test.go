package lexical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, src string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(src), &v))
	return v
}

// assertSchema walks the tree and checks each kind's required fields.
func assertSchema(t *testing.T, n Node) {
	t.Helper()
	assert.GreaterOrEqual(t, n.Version, 1, "version on %s", n.Type)

	switch n.Type {
	case KindText:
		assert.NotEmpty(t, n.Mode)
		assert.Empty(t, n.Children)
	case KindList:
		assert.Contains(t, []string{"bullet", "number"}, n.ListType)
		assert.Contains(t, []string{"ul", "ol"}, n.Tag)
		for _, c := range n.Children {
			assert.Equal(t, KindListItem, c.Type)
		}
	case KindListItem:
		assert.GreaterOrEqual(t, n.Value, 1)
		for _, c := range n.Children {
			assert.Equal(t, KindText, c.Type)
		}
	case KindUpload:
		assert.NotEmpty(t, n.MediaID)
		assert.Contains(t, []MediaKind{MediaAudio, MediaVideo}, n.MediaKind)
	case KindHeading, KindParagraph:
		for _, c := range n.Children {
			assert.Equal(t, KindText, c.Type)
		}
	default:
		t.Errorf("unexpected kind %q", n.Type)
	}

	if IsBlock(n.Type) {
		assert.Contains(t, []string{"ltr", "rtl"}, n.Direction)
	}
	for _, c := range n.Children {
		assertSchema(t, c)
	}
}

func TestNormalize_FallbackOnUnusableInput(t *testing.T) {
	cases := []struct {
		name string
		raw  interface{}
	}{
		{"nil", nil},
		{"number", 42.0},
		{"garbage string", "the model said no"},
		{"object without children", map[string]interface{}{"title": "x"}},
		{"empty array", []interface{}{}},
		{"only scalars", []interface{}{"a", 3.0, true}},
		{"unknown kinds without text", []interface{}{map[string]interface{}{"type": "linebreak"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := Normalize(tc.raw)
			assert.Equal(t, FallbackDocument(), doc)
			assert.True(t, IsFallback(doc.Root.Children))
		})
	}
}

func TestNormalize_UnwrapsChildrenObject(t *testing.T) {
	raw := decode(t, `{"children":[{"type":"paragraph","children":[{"type":"text","text":"hello"}]}]}`)

	doc := Normalize(raw)

	require.Len(t, doc.Root.Children, 1)
	p := doc.Root.Children[0]
	assert.Equal(t, KindParagraph, p.Type)
	assert.Equal(t, "ltr", p.Direction)
	require.Len(t, p.Children, 1)
	assert.Equal(t, "hello", p.Children[0].Text)
	assert.False(t, IsFallback(doc.Root.Children))
}

func TestNormalize_AcceptsSerializedInput(t *testing.T) {
	doc := Normalize(`[{"type":"heading","tag":"h3","children":[{"type":"text","text":"Title"}]}]`)

	require.Len(t, doc.Root.Children, 1)
	assert.Equal(t, "h3", doc.Root.Children[0].Tag)
}

func TestNormalize_ListShape(t *testing.T) {
	raw := decode(t, `[{
		"type": "list",
		"listType": "number",
		"children": [
			"alpha",
			{"type": "paragraph", "children": [{"type": "text", "text": "beta"}]},
			{"type": "list", "children": [{"type": "listitem", "children": [{"type": "text", "text": "x"}]}]},
			{"type": "listItem", "children": [
				{"type": "paragraph", "children": [{"type": "text", "text": "gamma"}, {"type": "text", "text": " delta"}]}
			]},
			{"type": "listitem", "value": 9, "children": [
				{"type": "text", "text": "eps"},
				{"type": "list", "children": [{"type": "listitem", "children": [{"type": "text", "text": "nested"}]}]}
			]}
		]
	}]`)

	doc := Normalize(raw)
	require.Len(t, doc.Root.Children, 1)
	list := doc.Root.Children[0]
	assertSchema(t, list)

	assert.Equal(t, "number", list.ListType)
	assert.Equal(t, "ol", list.Tag)
	assert.Equal(t, 1, list.Start)
	require.Len(t, list.Children, 5)

	texts := func(item Node) []string {
		var out []string
		for _, c := range item.Children {
			out = append(out, c.Text)
		}
		return out
	}
	assert.Equal(t, []string{"alpha"}, texts(list.Children[0]))
	assert.Equal(t, []string{"beta"}, texts(list.Children[1]))
	assert.Equal(t, []string{"x"}, texts(list.Children[2]))
	assert.Equal(t, []string{"gamma", " delta"}, texts(list.Children[3]))
	assert.Equal(t, []string{"eps", "nested"}, texts(list.Children[4]))

	assert.Equal(t, 4, list.Children[3].Value)
	assert.Equal(t, 9, list.Children[4].Value)
}

func TestNormalize_ListTypeMapping(t *testing.T) {
	cases := []struct {
		in       string
		wantType string
		wantTag  string
	}{
		{"bullet", "bullet", "ul"},
		{"number", "number", "ol"},
		{"check", "bullet", "ul"},
		{"", "bullet", "ul"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			raw := []interface{}{map[string]interface{}{
				"type":     "list",
				"listType": tc.in,
				"children": []interface{}{"one"},
			}}
			list := Normalize(raw).Root.Children[0]
			assert.Equal(t, tc.wantType, list.ListType)
			assert.Equal(t, tc.wantTag, list.Tag)
		})
	}
}

func TestNormalize_TextDefaultsAndCoercion(t *testing.T) {
	raw := decode(t, `[
		{"type":"paragraph","children":[
			{"type":"text","text":42},
			{"type":"text","text":"bold","format":1,"mode":"weird"},
			{"type":"link","children":[{"type":"text","text":"see docs"}]}
		]},
		{"type":"text","text":"loose"},
		{"type":"quote","children":[{"type":"text","text":"quoted"}]}
	]`)

	doc := Normalize(raw)
	for _, n := range doc.Root.Children {
		assertSchema(t, n)
	}
	require.Len(t, doc.Root.Children, 3)

	p := doc.Root.Children[0]
	require.Len(t, p.Children, 3)
	assert.Equal(t, "42", p.Children[0].Text)
	assert.Equal(t, "normal", p.Children[0].Mode)
	assert.Equal(t, FormatBold, p.Children[1].TextFlags)
	assert.Equal(t, "normal", p.Children[1].Mode)
	assert.Equal(t, "see docs", p.Children[2].Text)

	assert.Equal(t, KindParagraph, doc.Root.Children[1].Type)
	assert.Equal(t, "loose", doc.Root.Children[1].Children[0].Text)
	assert.Equal(t, KindParagraph, doc.Root.Children[2].Type)
	assert.Equal(t, "quoted", doc.Root.Children[2].Children[0].Text)
}

func TestNormalize_MediaReferences(t *testing.T) {
	raw := decode(t, `[
		{"type":"upload","value":17,"mediaKind":"audio"},
		{"type":"upload","id":"no value"},
		{"type":"mediaReference","value":{"id":"abc","mimeType":"video/mp4"}}
	]`)

	children := NormalizeChildren(raw)

	require.Len(t, children, 2)
	assert.Equal(t, "17", children[0].MediaID)
	assert.Equal(t, MediaAudio, children[0].MediaKind)
	assert.Equal(t, "abc", children[1].MediaID)
	assert.Equal(t, MediaVideo, children[1].MediaKind)
	assert.Equal(t, "media", children[1].RelationTo)
}

func TestNode_MarshalEmitsRequiredFields(t *testing.T) {
	doc := Normalize([]interface{}{
		map[string]interface{}{"type": "paragraph", "children": []interface{}{
			map[string]interface{}{"type": "text", "text": "hi"},
		}},
		map[string]interface{}{"type": "upload", "value": 5.0, "mediaKind": "video"},
	})

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var out struct {
		Root struct {
			Type     string                   `json:"type"`
			Children []map[string]interface{} `json:"children"`
		} `json:"root"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "root", out.Root.Type)
	require.Len(t, out.Root.Children, 2)

	para := out.Root.Children[0]
	for _, key := range []string{"direction", "format", "indent", "version", "textFormat", "textStyle"} {
		assert.Contains(t, para, key)
	}
	text := para["children"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(0), text["format"])
	assert.Equal(t, float64(0), text["detail"])
	assert.Equal(t, "", text["style"])
	assert.Equal(t, "normal", text["mode"])

	upload := out.Root.Children[1]
	assert.Equal(t, float64(5), upload["value"])
	assert.Equal(t, "media", upload["relationTo"])
	assert.Nil(t, upload["fields"])
}

func TestNode_RoundTripThroughDocument(t *testing.T) {
	doc := Normalize(decode(t, `[{"type":"list","children":["a","b"]}]`))

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, doc, back)
}

func TestRepair(t *testing.T) {
	doc := Document{Root: Node{Type: KindRoot, Children: []Node{
		{Type: KindList, Children: []Node{NewParagraph("loose"), {Type: KindListItem, Children: []Node{NewParagraph("nested")}}}},
		NewMediaReference(MediaVideo, "42", "video_0"),
	}}}

	got := Repair(doc)

	require.Len(t, got.Root.Children, 2)
	for _, n := range got.Root.Children {
		assertSchema(t, n)
	}
	items := got.Root.Children[0].Children
	assert.Equal(t, "loose", items[0].Children[0].Text)
	assert.Equal(t, "nested", items[1].Children[0].Text)
	assert.Equal(t, 2, items[1].Value)
	assert.Equal(t, "42", got.Root.Children[1].MediaID)

	assert.True(t, IsFallback(Repair(Document{}).Root.Children))
}
