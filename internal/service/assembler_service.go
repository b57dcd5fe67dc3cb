package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nous-core/internal/dto"
	"nous-core/internal/pkg/logger"
	"nous-core/pkg/events"
	"nous-core/pkg/gateway"
	"nous-core/pkg/lexical"

	"golang.org/x/sync/errgroup"
)

type IAssemblerService interface {
	Finish(ctx context.Context, req *dto.FinishRequest) (*dto.FinishResponse, error)
}

type AssemblerConfig struct {
	MediaDir string
	// DownloadConcurrency bounds parallel video downloads.
	DownloadConcurrency int
}

type assemblerService struct {
	downloader gateway.VideoDownloader
	media      gateway.MediaUploader
	lessons    gateway.LessonStore
	events     IEventService
	cfg        AssemblerConfig
	logger     logger.ILogger
	now        func() time.Time
}

func NewAssemblerService(
	downloader gateway.VideoDownloader,
	media gateway.MediaUploader,
	lessons gateway.LessonStore,
	eventService IEventService,
	cfg AssemblerConfig,
	log logger.ILogger,
) IAssemblerService {
	if cfg.DownloadConcurrency <= 0 {
		cfg.DownloadConcurrency = 2
	}
	return &assemblerService{
		downloader: downloader,
		media:      media,
		lessons:    lessons,
		events:     eventService,
		cfg:        cfg,
		logger:     log,
		now:        time.Now,
	}
}

// Finish attaches the narration audio and the chosen videos to the draft and
// persists it. Media that cannot be fetched or uploaded is skipped.
func (s *assemblerService) Finish(ctx context.Context, req *dto.FinishRequest) (*dto.FinishResponse, error) {
	if strings.TrimSpace(req.AuthToken) == "" {
		return nil, gateway.New(gateway.Unauthorized, "authentication token required", gateway.ErrUnauthorized)
	}

	stamp := s.now().Format("20060102150405")
	var skipped []string

	var audioNode *lexical.Node
	if req.LessonData.Audio != "" {
		alt := "audio_" + stamp
		path := filepath.Join(s.cfg.MediaDir, filepath.Base(req.LessonData.Audio))
		id, err := s.media.UploadMedia(ctx, path, lexical.MediaAudio, alt, req.AuthToken)
		if err != nil {
			s.logger.Warn("ASSEMBLER", "Audio upload failed", map[string]interface{}{"audio": req.LessonData.Audio, "error": err.Error()})
			skipped = append(skipped, alt)
		} else {
			node := lexical.NewMediaReference(lexical.MediaAudio, id, alt)
			audioNode = &node
		}
	}

	videoNodes, videoSkipped := s.attachVideos(ctx, req.SelectedVideos, stamp, req.AuthToken)
	skipped = append(skipped, videoSkipped...)

	content := lexical.Repair(req.LessonData.Content)
	children := make([]lexical.Node, 0, len(content.Root.Children)+len(videoNodes)+1)
	if audioNode != nil {
		children = append(children, *audioNode)
	}
	children = append(children, content.Root.Children...)
	children = append(children, videoNodes...)

	lesson := req.LessonData
	lesson.Content = lexical.NewDocument(children)
	lesson.Published = true
	if lesson.Course.ID == "" {
		lesson.Course.ID = lesson.CourseID
	}

	record, err := s.lessons.CreateLesson(ctx, gateway.LessonInput{
		Title:     lesson.Title,
		CourseID:  lesson.CourseID.String(),
		Narration: lesson.Narration,
		Content:   lesson.Content,
	}, req.AuthToken)
	if err != nil {
		if gateway.IsKind(err, gateway.Unauthorized) || gateway.IsKind(err, gateway.Persistence) {
			return nil, err
		}
		return nil, &gateway.Error{Kind: gateway.Persistence, Message: fmt.Sprintf("Failed to finish lesson: %v", err), Err: err}
	}

	s.events.Emit(events.LessonPublished, record.ID, map[string]interface{}{
		"lesson_id": record.ID,
		"title":     lesson.Title,
		"course_id": lesson.CourseID.String(),
		"videos":    len(videoNodes),
		"has_audio": audioNode != nil,
	})
	s.logger.Info("ASSEMBLER", "Lesson published", map[string]interface{}{"lesson_id": record.ID, "skipped": len(skipped)})

	return &dto.FinishResponse{Lesson: lesson, PayloadResult: record, SkippedMedia: skipped}, nil
}

// attachVideos downloads and uploads the selected videos with bounded
// concurrency. Nodes keep the order the videos were selected in.
func (s *assemblerService) attachVideos(ctx context.Context, videos []gateway.VideoCandidate, stamp, token string) ([]lexical.Node, []string) {
	nodes := make([]*lexical.Node, len(videos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DownloadConcurrency)
	for i, video := range videos {
		i, video := i, video
		g.Go(func() error {
			alt := fmt.Sprintf("video_%d_%s", i, stamp)
			node, err := s.attachVideo(gctx, video, alt, token)
			if err != nil {
				s.logger.Warn("ASSEMBLER", "Video attach failed", map[string]interface{}{
					"index": i,
					"url":   video.URL,
					"error": err.Error(),
				})
				return nil
			}
			nodes[i] = node
			return nil
		})
	}
	_ = g.Wait()

	out := make([]lexical.Node, 0, len(videos))
	var skipped []string
	for i, n := range nodes {
		if n == nil {
			skipped = append(skipped, fmt.Sprintf("video_%d_%s", i, stamp))
			continue
		}
		out = append(out, *n)
	}
	return out, skipped
}

func (s *assemblerService) attachVideo(ctx context.Context, video gateway.VideoCandidate, alt, token string) (*lexical.Node, error) {
	if err := os.MkdirAll(s.cfg.MediaDir, 0o755); err != nil {
		return nil, err
	}
	dest := filepath.Join(s.cfg.MediaDir, alt+".mp4")
	path, err := s.downloader.DownloadVideo(ctx, video.URL, dest)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer os.Remove(path)

	id, err := s.media.UploadMedia(ctx, path, lexical.MediaVideo, alt, token)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	node := lexical.NewMediaReference(lexical.MediaVideo, id, alt)
	return &node, nil
}
