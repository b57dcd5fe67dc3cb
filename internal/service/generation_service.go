package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nous-core/internal/config"
	"nous-core/internal/constant"
	"nous-core/internal/dto"
	"nous-core/internal/entity"
	"nous-core/internal/pkg/logger"
	"nous-core/internal/repository/contract"
	"nous-core/pkg/events"
	"nous-core/pkg/gateway"
	"nous-core/pkg/lexical"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Pipeline is the set of AI stages a generation run calls, in order.
// *gateway.Gateway implements it.
type Pipeline interface {
	ExtractDocument(ctx context.Context, document []byte, prompt string) (lexical.Document, error)
	Narrate(ctx context.Context, doc lexical.Document) (string, error)
	ExtractKeywords(ctx context.Context, doc lexical.Document) ([]string, error)
	SearchVideos(ctx context.Context, keywords []string, limit int) ([]gateway.VideoCandidate, error)
	SynthesizeSpeech(ctx context.Context, text, dest string) (string, error)
}

// StreamPusher delivers session-keyed events to live connections.
// *websocket.Hub implements it.
type StreamPusher interface {
	Push(key string, v interface{}) bool
	Disconnect(key string)
}

// ErrResultPending is returned by TakeResult while the run is still going.
var ErrResultPending = errors.New("lesson generation still in progress")

// GenerationFailedError carries the message of a run that ended in the
// error stage.
type GenerationFailedError struct {
	Message string
}

func (e *GenerationFailedError) Error() string { return e.Message }

var errSessionNotFound = gateway.New(gateway.NotFound, "Session not found", gateway.ErrNotFound)

type SubmitRequest struct {
	FileName string
	Document io.Reader
	Title    string
	CourseID string
	Token    string
	Prompt   string
}

type IGenerationService interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Progress(sessionID string) (entity.ProgressRecord, bool)
	TakeResult(sessionID string) (*dto.LessonResultResponse, error)
	Cancel(ctx context.Context, sessionID string) error
	RequestCleanup(ctx context.Context, sessionID string) error
	FoundationPrompt() dto.FoundationPromptResponse
	Sweep(ctx context.Context) []string
	RunSweeper(ctx context.Context) error
	// Wait blocks until every run started by Submit has returned.
	Wait()
}

type GenerationConfig struct {
	TempDir       string
	MediaDir      string
	ProgressTTL   time.Duration
	SweepInterval time.Duration
}

type generationService struct {
	pipeline   Pipeline
	store      contract.ProgressRepository
	stream     StreamPusher
	publisher  IPublisherService
	events     IEventService
	foundation config.FoundationPrompt
	cfg        GenerationConfig
	logger     logger.ILogger
	tracer     trace.Tracer
	runs       errgroup.Group
	now        func() time.Time
}

func NewGenerationService(
	pipeline Pipeline,
	store contract.ProgressRepository,
	stream StreamPusher,
	publisher IPublisherService,
	eventService IEventService,
	foundation config.FoundationPrompt,
	cfg GenerationConfig,
	log logger.ILogger,
) IGenerationService {
	return &generationService{
		pipeline:   pipeline,
		store:      store,
		stream:     stream,
		publisher:  publisher,
		events:     eventService,
		foundation: foundation,
		cfg:        cfg,
		logger:     log,
		tracer:     otel.Tracer("nous-core/generation"),
		now:        time.Now,
	}
}

// newSessionID formats t as lesson_YYYYMMDD_HHMMSS_ffffff.
func newSessionID(t time.Time) string {
	return fmt.Sprintf("lesson_%s_%06d", t.Format("20060102_150405"), t.Nanosecond()/1000)
}

type generationJob struct {
	sessionID string
	path      string
	title     string
	courseID  string
	prompt    string
}

// Submit stores the upload, registers the session and starts its run.
func (s *generationService) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if strings.TrimSpace(req.Token) == "" {
		return "", gateway.New(gateway.Unauthorized, "authentication token required", gateway.ErrUnauthorized)
	}
	if err := os.MkdirAll(s.cfg.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	var sessionID string
	for attempt := 1; ; attempt++ {
		sessionID = newSessionID(s.now())
		err := s.store.Create(sessionID, entity.NewProgressRecord(entity.StageUpload, constant.MsgUploaded), cancel)
		if err == nil {
			break
		}
		if attempt == 5 {
			cancel()
			return "", err
		}
		// Same microsecond as another submission; take the next id.
		time.Sleep(time.Microsecond)
	}

	path := filepath.Join(s.cfg.TempDir, sessionID+"_"+filepath.Base(req.FileName))
	if err := writeUpload(path, req.Document); err != nil {
		s.store.Delete(sessionID)
		cancel()
		return "", fmt.Errorf("store upload: %w", err)
	}

	job := generationJob{
		sessionID: sessionID,
		path:      path,
		title:     req.Title,
		courseID:  req.CourseID,
		prompt:    s.foundation.Compose(req.Prompt),
	}
	s.logger.Info("GENERATION", "Lesson generation started", map[string]interface{}{
		"session_id": sessionID,
		"title":      req.Title,
		"course_id":  req.CourseID,
	})

	s.runs.Go(func() error {
		defer cancel()
		s.run(runCtx, job)
		return nil
	})
	return sessionID, nil
}

func writeUpload(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// run drives one session through every stage. Hard stages stop the run on
// failure; soft stages fall back and continue.
func (s *generationService) run(ctx context.Context, job generationJob) {
	sid := job.sessionID
	defer func() {
		if err := os.Remove(job.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("GENERATION", "Failed to remove upload", map[string]interface{}{"session_id": sid, "error": err.Error()})
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			s.fail(sid, fmt.Sprintf("Lesson generation failed: %v", r))
		}
	}()

	ctx, span := s.tracer.Start(ctx, "generation.run", trace.WithAttributes(attribute.String("session_id", sid)))
	defer span.End()

	document, err := os.ReadFile(job.path)
	if err != nil {
		s.fail(sid, fmt.Sprintf("Failed to read uploaded PDF: %v", err))
		return
	}

	// Extracting (hard).
	if !s.advance(sid, entity.StageExtracting, constant.MsgAnalyzing) {
		return
	}
	var doc lexical.Document
	err = s.stage(ctx, entity.StageExtracting, func(ctx context.Context) (err error) {
		doc, err = s.pipeline.ExtractDocument(ctx, document, job.prompt)
		return err
	})
	if err != nil {
		s.halt(ctx, sid, constant.MsgAnalysisFailed, err)
		return
	}

	// Narrating (hard).
	if !s.advance(sid, entity.StageNarrating, constant.MsgNarrating) {
		return
	}
	var narration string
	err = s.stage(ctx, entity.StageNarrating, func(ctx context.Context) (err error) {
		narration, err = s.pipeline.Narrate(ctx, doc)
		return err
	})
	if err != nil {
		s.halt(ctx, sid, constant.MsgNarrationFailed, err)
		return
	}

	// Keywords (soft).
	if !s.advance(sid, entity.StageExtractingKeywords, constant.MsgExtractingKeys) {
		return
	}
	var keywords []string
	err = s.stage(ctx, entity.StageExtractingKeywords, func(ctx context.Context) (err error) {
		keywords, err = s.pipeline.ExtractKeywords(ctx, doc)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		keywords = fallbackKeywords(job.title)
		s.degrade(sid, entity.StageExtractingKeywords, constant.MsgKeywordsFallback, err)
	}

	// Videos (soft).
	if !s.advance(sid, entity.StageSearchingVideo, constant.MsgSearchingVideos) {
		return
	}
	var videos []gateway.VideoCandidate
	err = s.stage(ctx, entity.StageSearchingVideo, func(ctx context.Context) (err error) {
		videos, err = s.pipeline.SearchVideos(ctx, keywords, constant.VideoSearchLimit)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		videos = []gateway.VideoCandidate{}
		s.degrade(sid, entity.StageSearchingVideo, constant.MsgVideosFallback, err)
	}

	// Audio (soft).
	if !s.advance(sid, entity.StageSynthesizingAudio, constant.MsgSynthesizing) {
		return
	}
	var audio string
	err = s.stage(ctx, entity.StageSynthesizingAudio, func(ctx context.Context) error {
		if err := os.MkdirAll(s.cfg.MediaDir, 0o755); err != nil {
			return err
		}
		dest := filepath.Join(s.cfg.MediaDir, "narration_"+sid+".mp3")
		path, err := s.pipeline.SynthesizeSpeech(ctx, narration, dest)
		if err != nil {
			return err
		}
		audio = filepath.Base(path)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.degrade(sid, entity.StageSynthesizingAudio, constant.MsgAudioFallback, err)
	}

	if ctx.Err() != nil {
		return
	}
	draft := entity.LessonDraft{
		Title:     job.title,
		CourseID:  entity.FlexibleID(job.courseID),
		Narration: narration,
		Content:   doc,
		Published: true,
		Course:    entity.CourseRef{ID: entity.FlexibleID(job.courseID)},
		Keywords:  keywords,
		Audio:     audio,
	}
	rec := entity.NewProgressRecord(entity.StageSelection, constant.MsgReady)
	if !s.store.Complete(sid, rec, &entity.GenerationResult{Draft: draft, Videos: videos}) {
		return
	}
	s.stream.Push(sid, rec)
	s.events.Emit(events.GenerationCompleted, sid, map[string]interface{}{
		"title":     job.title,
		"course_id": job.courseID,
		"videos":    len(videos),
		"has_audio": audio != "",
	})
	s.logger.Info("GENERATION", "Lesson ready for selection", map[string]interface{}{"session_id": sid})
}

// stage runs fn inside a span named after the stage.
func (s *generationService) stage(ctx context.Context, stage entity.Stage, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "generation."+string(stage))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// advance records the start of a stage and pushes it. It returns false when
// the session is gone, which ends the run.
func (s *generationService) advance(sid string, stage entity.Stage, message string) bool {
	rec := entity.NewProgressRecord(stage, message)
	if !s.store.Update(sid, rec) {
		return false
	}
	s.stream.Push(sid, rec)
	return true
}

func (s *generationService) degrade(sid string, stage entity.Stage, message string, err error) {
	s.logger.Warn("GENERATION", "Stage degraded", map[string]interface{}{
		"session_id": sid,
		"stage":      string(stage),
		"error":      err.Error(),
	})
	s.advance(sid, stage, message)
}

// halt ends the run in the error stage unless it was cancelled.
func (s *generationService) halt(ctx context.Context, sid, prefix string, err error) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Error("GENERATION", "Lesson generation failed", map[string]interface{}{
		"session_id": sid,
		"error":      err.Error(),
	})
	s.fail(sid, prefix+err.Error())
}

func (s *generationService) fail(sid, message string) {
	rec := entity.NewProgressRecord(entity.StageError, message)
	rec.Error = message
	if !s.store.Update(sid, rec) {
		return
	}
	s.stream.Push(sid, rec)
	s.events.Emit(events.GenerationFailed, sid, map[string]interface{}{"error": message})
}

func fallbackKeywords(title string) []string {
	keywords := append([]string{}, constant.FallbackKeywords...)
	return append(keywords, strings.ToLower(title))
}

func (s *generationService) Progress(sessionID string) (entity.ProgressRecord, bool) {
	return s.store.Get(sessionID)
}

// TakeResult hands out a finished draft once. Failed runs are consumed too.
func (s *generationService) TakeResult(sessionID string) (*dto.LessonResultResponse, error) {
	session, status := s.store.Take(sessionID)
	switch status {
	case contract.TakeNotFound:
		return nil, errSessionNotFound
	case contract.TakePending:
		return nil, ErrResultPending
	case contract.TakeFailed:
		msg := session.Latest.Error
		if msg == "" {
			msg = session.Latest.Message
		}
		return nil, &GenerationFailedError{Message: msg}
	}

	videos := session.Result.Videos
	if videos == nil {
		videos = []gateway.VideoCandidate{}
	}
	return &dto.LessonResultResponse{
		LessonData:    session.Result.Draft,
		YoutubeVideos: videos,
		SessionID:     sessionID,
	}, nil
}

// Cancel stops a run. The entry is removed first so a stage finishing late
// cannot write to it again.
func (s *generationService) Cancel(ctx context.Context, sessionID string) error {
	cancel, ok := s.store.Delete(sessionID)
	if !ok {
		return errSessionNotFound
	}
	if cancel != nil {
		cancel()
	}

	s.stream.Push(sessionID, entity.NewProgressRecord(entity.StageCancelled, constant.MsgCancelled))
	s.stream.Disconnect(sessionID)

	if err := s.RequestCleanup(ctx, sessionID); err != nil {
		s.logger.Warn("GENERATION", "Failed to queue cleanup", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
	}
	s.events.Emit(events.GenerationCancelled, sessionID, nil)
	s.logger.Info("GENERATION", "Lesson generation cancelled", map[string]interface{}{"session_id": sessionID})
	return nil
}

func (s *generationService) RequestCleanup(ctx context.Context, sessionID string) error {
	return s.publisher.RequestCleanup(ctx, sessionID)
}

func (s *generationService) FoundationPrompt() dto.FoundationPromptResponse {
	return dto.FoundationPromptResponse{
		FoundationPrompt: s.foundation.Prompt,
		Description:      s.foundation.Description,
		Version:          s.foundation.Version,
	}
}

// Sweep evicts sessions older than the progress TTL, cancelling their runs.
func (s *generationService) Sweep(ctx context.Context) []string {
	ids := s.store.Sweep(s.cfg.ProgressTTL)
	for _, id := range ids {
		s.stream.Disconnect(id)
		if err := s.RequestCleanup(ctx, id); err != nil {
			s.logger.Warn("GENERATION", "Failed to queue cleanup", map[string]interface{}{"session_id": id, "error": err.Error()})
		}
	}
	if len(ids) > 0 {
		s.logger.Info("GENERATION", "Swept expired sessions", map[string]interface{}{"count": len(ids)})
	}
	return ids
}

func (s *generationService) RunSweeper(ctx context.Context) error {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *generationService) Wait() {
	_ = s.runs.Wait()
}
