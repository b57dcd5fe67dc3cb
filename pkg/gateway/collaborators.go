package gateway

import (
	"context"

	"nous-core/pkg/lexical"
)

// ContentExtractor turns an uploaded document into an untyped lesson tree.
// The tree is repaired by lexical.Normalize before anyone else sees it.
type ContentExtractor interface {
	ExtractContent(ctx context.Context, document []byte, prompt string) (interface{}, error)
}

type Narrator interface {
	Narrate(ctx context.Context, doc lexical.Document) (string, error)
}

type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, doc lexical.Document) ([]string, error)
}

type VideoSearcher interface {
	SearchVideos(ctx context.Context, keywords []string, limit int) ([]VideoCandidate, error)
}

// VideoDownloader stores the video at url under dest and returns the final path.
type VideoDownloader interface {
	DownloadVideo(ctx context.Context, url, dest string) (string, error)
}

// SpeechSynthesizer writes spoken text to dest and returns the final path.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, dest string) (string, error)
}

// MediaUploader stores a local artifact in the media backend and returns its id.
type MediaUploader interface {
	UploadMedia(ctx context.Context, path string, kind lexical.MediaKind, alt, token string) (string, error)
}

type LessonStore interface {
	CreateLesson(ctx context.Context, lesson LessonInput, token string) (*LessonRecord, error)
	GetLesson(ctx context.Context, id, token string) (*LessonRecord, error)
	GetCourse(ctx context.Context, id, token string) (*CourseRecord, error)
	// SearchLessons matches lesson titles against keywords.
	SearchLessons(ctx context.Context, keywords []string, limit int, token string) ([]LessonRecord, error)
}

// VideoCandidate is one search hit offered to the user for selection.
type VideoCandidate struct {
	VideoID   string `json:"videoId" validate:"required"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Channel   string `json:"channel"`
	Duration  string `json:"duration"`
	Views     string `json:"views"`
	URL       string `json:"url" validate:"required"`
}

type LessonInput struct {
	Title     string
	CourseID  string
	Narration string
	Content   lexical.Document
}

type LessonRecord struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	CourseID  string           `json:"courseId,omitempty"`
	Narration string           `json:"narration,omitempty"`
	Content   lexical.Document `json:"content"`
	Published bool             `json:"published"`
}

type CourseRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
