package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nous-core/pkg/lexical"
)

type step struct {
	raw interface{}
	err error
}

type scriptedExtractor struct {
	steps []step
	calls int
}

func (s *scriptedExtractor) ExtractContent(_ context.Context, _ []byte, _ string) (interface{}, error) {
	st := s.steps[s.calls]
	s.calls++
	return st.raw, st.err
}

var validTree = []interface{}{
	map[string]interface{}{"type": "paragraph", "children": []interface{}{
		map[string]interface{}{"type": "text", "text": "photosynthesis"},
	}},
}

func newExtractionGateway(steps ...step) (*Gateway, *scriptedExtractor) {
	ex := &scriptedExtractor{steps: steps}
	return NewGateway(Collaborators{Extractor: ex}, Config{}), ex
}

func TestExtractDocument_RetryPolicy(t *testing.T) {
	malformed := step{err: New(Malformed, "bad json", nil)}
	transient := step{err: Wrap(Transient, errors.New("503"))}
	permanent := step{err: Wrap(Permanent, errors.New("429 quota"))}
	unauthorized := step{err: Wrap(Unauthorized, errors.New("403 API key not valid"))}
	ok := step{raw: validTree}

	cases := []struct {
		name         string
		steps        []step
		wantCalls    int
		wantFallback bool
		wantKind     Kind
		wantMessage  string
	}{
		{name: "first attempt succeeds", steps: []step{ok}, wantCalls: 1},
		{name: "transient then success", steps: []step{transient, transient, ok}, wantCalls: 3},
		{name: "malformed then success", steps: []step{malformed, ok}, wantCalls: 2},
		{name: "malformed on every attempt", steps: []step{malformed, malformed, malformed}, wantCalls: 3, wantFallback: true},
		{name: "empty tree counts as malformed", steps: []step{{raw: []interface{}{}}, {raw: "junk"}, {raw: nil}}, wantCalls: 3, wantFallback: true},
		{name: "permanent aborts immediately", steps: []step{permanent, ok}, wantCalls: 1, wantKind: Permanent, wantMessage: QuotaExceededMessage},
		{name: "rejected credential aborts immediately", steps: []step{unauthorized, ok}, wantCalls: 1, wantKind: Unauthorized, wantMessage: CredentialRejectedMessage},
		{name: "transient exhausted", steps: []step{transient, transient, transient}, wantCalls: 3, wantKind: Transient, wantMessage: UnavailableMessage},
		{name: "malformed then transient on last attempt", steps: []step{malformed, malformed, transient}, wantCalls: 3, wantKind: Transient, wantMessage: UnavailableMessage},
		{
			name:        "untyped errors are retried",
			steps:       []step{{err: errors.New("boom")}, {err: errors.New("boom")}, {err: errors.New("boom")}},
			wantCalls:   3,
			wantKind:    Transient,
			wantMessage: "AI processing failed after 3 attempts: boom",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, ex := newExtractionGateway(tc.steps...)

			doc, err := g.ExtractDocument(context.Background(), []byte("%PDF"), "prompt")

			assert.Equal(t, tc.wantCalls, ex.calls)
			if tc.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tc.wantKind, KindOf(err))
				assert.Equal(t, tc.wantMessage, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantFallback, lexical.IsFallback(doc.Root.Children))
		})
	}
}

func TestExtractDocument_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g, ex := newExtractionGateway(step{raw: validTree})

	_, err := g.ExtractDocument(ctx, nil, "")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, ex.calls)
}

type fakeNarrator struct {
	text string
	err  error
}

func (f fakeNarrator) Narrate(context.Context, lexical.Document) (string, error) { return f.text, f.err }

type fakeKeywords struct {
	words []string
	err   error
}

func (f fakeKeywords) ExtractKeywords(context.Context, lexical.Document) ([]string, error) {
	return f.words, f.err
}

func TestNarrate(t *testing.T) {
	g := NewGateway(Collaborators{Narrator: fakeNarrator{text: "  Hello class.  "}}, Config{})
	text, err := g.Narrate(context.Background(), lexical.FallbackDocument())
	require.NoError(t, err)
	assert.Equal(t, "Hello class.", text)

	g = NewGateway(Collaborators{Narrator: fakeNarrator{text: "   "}}, Config{})
	_, err = g.Narrate(context.Background(), lexical.FallbackDocument())
	assert.True(t, IsKind(err, Malformed))

	g = NewGateway(Collaborators{Narrator: fakeNarrator{err: errors.New("timeout")}}, Config{})
	_, err = g.Narrate(context.Background(), lexical.FallbackDocument())
	assert.True(t, IsKind(err, Transient))
	assert.Contains(t, err.Error(), OpNarration)
}

func TestExtractKeywords_Deduplicates(t *testing.T) {
	g := NewGateway(Collaborators{Keywords: fakeKeywords{words: []string{"Cells", " cells ", "", "Biology"}}}, Config{})

	got, err := g.ExtractKeywords(context.Background(), lexical.FallbackDocument())

	require.NoError(t, err)
	assert.Equal(t, []string{"Cells", "Biology"}, got)
}

func TestExtractKeywords_EmptyIsMalformed(t *testing.T) {
	g := NewGateway(Collaborators{Keywords: fakeKeywords{words: []string{" "}}}, Config{})

	_, err := g.ExtractKeywords(context.Background(), lexical.FallbackDocument())

	assert.True(t, IsKind(err, Malformed))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, Transient, KindOf(errors.New("x")))
	assert.Equal(t, NotFound, KindOf(ErrNotFound))
	assert.Equal(t, Unauthorized, KindOf(errors.Join(errors.New("ctx"), ErrUnauthorized)))
	assert.Equal(t, Persistence, KindOf(Wrap(Persistence, errors.New("db down"))))
}
