package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"sync"

	"nous-core/internal/entity"
	"nous-core/pkg/events"
	"nous-core/pkg/gateway"
	"nous-core/pkg/lexical"
	"nous-core/pkg/llm"
)

// fakeStream records every push by key.
type fakeStream struct {
	mu           sync.Mutex
	pushed       map[string][]interface{}
	disconnected []string
}

func newFakeStream() *fakeStream {
	return &fakeStream{pushed: make(map[string][]interface{})}
}

func (f *fakeStream) Push(key string, v interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed[key] = append(f.pushed[key], v)
	return true
}

func (f *fakeStream) Disconnect(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, key)
}

func (f *fakeStream) records(key string) []entity.ProgressRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.ProgressRecord
	for _, v := range f.pushed[key] {
		if rec, ok := v.(entity.ProgressRecord); ok {
			out = append(out, rec)
		}
	}
	return out
}

// frames returns the pushes decoded as generic JSON objects.
func (f *fakeStream) frames(key string) []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]interface{}
	for _, v := range f.pushed[key] {
		raw, _ := json.Marshal(v)
		var m map[string]interface{}
		_ = json.Unmarshal(raw, &m)
		out = append(out, m)
	}
	return out
}

type fakePublisher struct {
	mu       sync.Mutex
	sessions []string
}

func (f *fakePublisher) RequestCleanup(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessionID)
	return nil
}

type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (f *fakeEvents) Emit(eventType, _ string, _ map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, eventType)
}

func (f *fakeEvents) emitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.types...)
}

type recordingPublisher struct {
	published []events.Event
	err       error
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.published = append(r.published, e)
	return r.err
}

// fakeAI implements every generation collaborator with overridable funcs.
type fakeAI struct {
	extract  func(ctx context.Context) (interface{}, error)
	narrate  func(ctx context.Context) (string, error)
	keywords func(ctx context.Context) ([]string, error)
	videos   func(ctx context.Context, keywords []string) ([]gateway.VideoCandidate, error)
	speech   func(ctx context.Context, dest string) (string, error)
}

var lessonTree = map[string]interface{}{"root": map[string]interface{}{"children": []interface{}{
	map[string]interface{}{"type": "heading", "tag": "h1", "children": []interface{}{
		map[string]interface{}{"type": "text", "text": "Cells"},
	}},
	map[string]interface{}{"type": "paragraph", "children": []interface{}{
		map[string]interface{}{"type": "text", "text": "Cells are the unit of life."},
	}},
}}}

func happyAI() *fakeAI {
	return &fakeAI{
		extract: func(context.Context) (interface{}, error) { return lessonTree, nil },
		narrate: func(context.Context) (string, error) { return "Welcome to cells.", nil },
		keywords: func(context.Context) ([]string, error) {
			return []string{"cells", "biology"}, nil
		},
		videos: func(_ context.Context, keywords []string) ([]gateway.VideoCandidate, error) {
			return []gateway.VideoCandidate{{VideoID: "abcdefghijk", Title: "Cells 101", URL: "https://www.youtube.com/watch?v=abcdefghijk"}}, nil
		},
		speech: func(_ context.Context, dest string) (string, error) {
			return dest, os.WriteFile(dest, []byte("ID3"), 0o644)
		},
	}
}

func (f *fakeAI) ExtractContent(ctx context.Context, _ []byte, _ string) (interface{}, error) {
	return f.extract(ctx)
}

func (f *fakeAI) Narrate(ctx context.Context, _ lexical.Document) (string, error) {
	return f.narrate(ctx)
}

func (f *fakeAI) ExtractKeywords(ctx context.Context, _ lexical.Document) ([]string, error) {
	return f.keywords(ctx)
}

func (f *fakeAI) SearchVideos(ctx context.Context, keywords []string, _ int) ([]gateway.VideoCandidate, error) {
	return f.videos(ctx, keywords)
}

func (f *fakeAI) Synthesize(ctx context.Context, _ string, dest string) (string, error) {
	return f.speech(ctx, dest)
}

func (f *fakeAI) gateway() *gateway.Gateway {
	return gateway.NewGateway(gateway.Collaborators{
		Extractor: f,
		Narrator:  f,
		Keywords:  f,
		Videos:    f,
		Speech:    f,
	}, gateway.Config{ExtractionAttempts: 3})
}

// fakeLessons is an in-memory lesson store.
type fakeLessons struct {
	mu        sync.Mutex
	lessons   map[string]gateway.LessonRecord
	courses   map[string]gateway.CourseRecord
	created   []gateway.LessonInput
	getCalls  int
	createErr error
	search    []gateway.LessonRecord
}

func newFakeLessons() *fakeLessons {
	return &fakeLessons{
		lessons: make(map[string]gateway.LessonRecord),
		courses: make(map[string]gateway.CourseRecord),
	}
}

func (f *fakeLessons) CreateLesson(_ context.Context, in gateway.LessonInput, _ string) (*gateway.LessonRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	return &gateway.LessonRecord{ID: "101", Title: in.Title, CourseID: in.CourseID, Content: in.Content, Published: true}, nil
}

func (f *fakeLessons) GetLesson(_ context.Context, id, token string) (*gateway.LessonRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if token == "" {
		return nil, gateway.New(gateway.Unauthorized, "authentication token required", gateway.ErrUnauthorized)
	}
	l, ok := f.lessons[id]
	if !ok {
		return nil, gateway.New(gateway.NotFound, "Lesson not found", gateway.ErrNotFound)
	}
	return &l, nil
}

func (f *fakeLessons) GetCourse(_ context.Context, id, _ string) (*gateway.CourseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return &c, nil
}

func (f *fakeLessons) SearchLessons(_ context.Context, _ []string, limit int, _ string) ([]gateway.LessonRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.search
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeMedia hands out sequential ids and can fail for chosen alts.
type fakeMedia struct {
	mu     sync.Mutex
	next   int
	failOn map[string]bool
	alts   []string
}

func (f *fakeMedia) UploadMedia(_ context.Context, path string, _ lexical.MediaKind, alt, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	if f.failOn[alt] {
		return "", errors.New("upload rejected")
	}
	f.next++
	f.alts = append(f.alts, alt)
	return strconv.Itoa(f.next), nil
}

type fakeDownloader struct {
	fail map[string]bool
}

func (f *fakeDownloader) DownloadVideo(_ context.Context, url, dest string) (string, error) {
	if f.fail[url] {
		return "", errors.New("download failed")
	}
	return dest, os.WriteFile(dest, []byte("mp4"), 0o644)
}

// fakeLLM answers with a fixed reply and records the prompts it saw.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	tokens   []string
	pingErr  error
	chatErr  error
	requests [][]llm.Message
}

func (f *fakeLLM) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, history)
	return f.reply, f.chatErr
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func (f *fakeLLM) Stream(_ context.Context, history []llm.Message, onToken llm.TokenHandler, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, history)
	tokens, err := f.tokens, f.chatErr
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	full := ""
	for _, tok := range tokens {
		if err := onToken(tok); err != nil {
			return full, err
		}
		full += tok
	}
	return full, nil
}

func (f *fakeLLM) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakeLLM) lastRequest() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}
