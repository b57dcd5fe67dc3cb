package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nous-core/pkg/lexical"
)

// Operation names, also used as rate limiter keys.
const (
	OpExtraction  = "content_extraction"
	OpNarration   = "narration"
	OpKeywords    = "keywords"
	OpVideoSearch = "video_search"
	OpSpeech      = "speech"
)

const defaultExtractionAttempts = 3

// Collaborators groups the AI backends the pipeline talks to.
type Collaborators struct {
	Extractor ContentExtractor
	Narrator  Narrator
	Keywords  KeywordExtractor
	Videos    VideoSearcher
	Speech    SpeechSynthesizer
}

type Config struct {
	ExtractionAttempts int
	RequestsPerMinute  int
}

// Gateway is the typed façade the pipeline calls. It owns the retry and
// classification policy; the collaborators only report what went wrong.
type Gateway struct {
	c        Collaborators
	attempts int
	limiters *RateLimiterPool
}

func NewGateway(c Collaborators, cfg Config) *Gateway {
	attempts := cfg.ExtractionAttempts
	if attempts <= 0 {
		attempts = defaultExtractionAttempts
	}
	return &Gateway{
		c:        c,
		attempts: attempts,
		limiters: NewRateLimiterPool(cfg.RequestsPerMinute),
	}
}

// ExtractDocument runs content extraction with retries.
//
// Transient failures are retried. A Permanent failure aborts at once with the
// quota message, a rejected credential with the credential message. Malformed output is retried too, but on the last attempt it
// yields the fallback document instead of an error.
func (g *Gateway) ExtractDocument(ctx context.Context, document []byte, prompt string) (lexical.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		if err := g.limiters.Wait(ctx, OpExtraction); err != nil {
			return lexical.Document{}, err
		}

		raw, err := g.c.Extractor.ExtractContent(ctx, document, prompt)
		if err == nil {
			if children := lexical.NormalizeChildren(raw); len(children) > 0 {
				return lexical.NewDocument(children), nil
			}
			err = New(Malformed, "content extraction returned no usable nodes", nil)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return lexical.Document{}, ctxErr
		}

		switch KindOf(err) {
		case Permanent:
			return lexical.Document{}, &Error{Kind: Permanent, Op: OpExtraction, Message: QuotaExceededMessage, Err: err}
		case Unauthorized:
			return lexical.Document{}, &Error{Kind: Unauthorized, Op: OpExtraction, Message: CredentialRejectedMessage, Err: err}
		case Malformed:
			if attempt == g.attempts {
				return lexical.FallbackDocument(), nil
			}
		}
		lastErr = err
	}

	// Typed transient errors are reported by the backend itself; untyped ones
	// are unexpected and keep their own text.
	if IsKind(lastErr, Transient) {
		var ge *Error
		if errors.As(lastErr, &ge) {
			return lexical.Document{}, &Error{Kind: Transient, Op: OpExtraction, Message: UnavailableMessage, Err: lastErr}
		}
	}
	return lexical.Document{}, &Error{
		Kind:    KindOf(lastErr),
		Op:      OpExtraction,
		Message: fmt.Sprintf("AI processing failed after %d attempts: %v", g.attempts, lastErr),
		Err:     lastErr,
	}
}

// Narrate produces the spoken narration for doc. Single attempt.
func (g *Gateway) Narrate(ctx context.Context, doc lexical.Document) (string, error) {
	if err := g.limiters.Wait(ctx, OpNarration); err != nil {
		return "", err
	}
	text, err := g.c.Narrator.Narrate(ctx, doc)
	if err != nil {
		return "", annotate(OpNarration, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &Error{Kind: Malformed, Op: OpNarration, Message: "narration was empty"}
	}
	return text, nil
}

// ExtractKeywords returns de-duplicated, non-empty search keywords.
func (g *Gateway) ExtractKeywords(ctx context.Context, doc lexical.Document) ([]string, error) {
	if err := g.limiters.Wait(ctx, OpKeywords); err != nil {
		return nil, err
	}
	raw, err := g.c.Keywords.ExtractKeywords(ctx, doc)
	if err != nil {
		return nil, annotate(OpKeywords, err)
	}

	seen := make(map[string]bool, len(raw))
	keywords := make([]string, 0, len(raw))
	for _, k := range raw {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" || seen[key] {
			continue
		}
		seen[key] = true
		keywords = append(keywords, k)
	}
	if len(keywords) == 0 {
		return nil, &Error{Kind: Malformed, Op: OpKeywords, Message: "no keywords returned"}
	}
	return keywords, nil
}

func (g *Gateway) SearchVideos(ctx context.Context, keywords []string, limit int) ([]VideoCandidate, error) {
	if err := g.limiters.Wait(ctx, OpVideoSearch); err != nil {
		return nil, err
	}
	videos, err := g.c.Videos.SearchVideos(ctx, keywords, limit)
	if err != nil {
		return nil, annotate(OpVideoSearch, err)
	}
	if videos == nil {
		videos = []VideoCandidate{}
	}
	return videos, nil
}

// SynthesizeSpeech writes narration audio to dest.
func (g *Gateway) SynthesizeSpeech(ctx context.Context, text, dest string) (string, error) {
	if err := g.limiters.Wait(ctx, OpSpeech); err != nil {
		return "", err
	}
	path, err := g.c.Speech.Synthesize(ctx, text, dest)
	if err != nil {
		return "", annotate(OpSpeech, err)
	}
	return path, nil
}
