package dto

import (
	"nous-core/internal/entity"
	"nous-core/pkg/gateway"
)

// ProcessPdfRequest holds the form fields of a PDF submission.
type ProcessPdfRequest struct {
	Title     string `form:"title" validate:"required"`
	CourseID  string `form:"course_id" validate:"required"`
	AuthToken string `form:"auth_token"`
	Prompt    string `form:"prompt"`
}

type ProcessPdfResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type LessonResultResponse struct {
	LessonData    entity.LessonDraft       `json:"lesson_data"`
	YoutubeVideos []gateway.VideoCandidate `json:"youtube_videos"`
	SessionID     string                   `json:"session_id"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type FinishRequest struct {
	LessonData     entity.LessonDraft       `json:"lesson_data"`
	SelectedVideos []gateway.VideoCandidate `json:"selected_videos" validate:"dive"`
	AuthToken      string                   `json:"auth_token"`
}

type FinishResponse struct {
	Lesson        entity.LessonDraft    `json:"lesson"`
	PayloadResult *gateway.LessonRecord `json:"payload_result"`
	// SkippedMedia lists media that could not be attached.
	SkippedMedia []string `json:"skipped_media,omitempty"`
}

type CleanupResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type FoundationPromptResponse struct {
	FoundationPrompt string `json:"foundation_prompt"`
	Description      string `json:"description"`
	Version          string `json:"version"`
}

// CleanupArtifactsMessage is queued on the artifact cleanup topic.
type CleanupArtifactsMessage struct {
	SessionID string `json:"session_id"`
}
