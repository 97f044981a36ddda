package api

import (
	"learnview/internal/player"
	"learnview/internal/quiz"
	"learnview/internal/session"
	"learnview/internal/storage"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

type ScanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Catalog DTOs

type CoursesResponse struct {
	Courses []storage.Course `json:"courses"`
}

type CourseResponse struct {
	Course  *storage.Course `json:"course"`
	Modules []ModuleNode    `json:"modules"`
}

type ModuleNode struct {
	storage.Module
	StreamURL string                  `json:"stream_url,omitempty"`
	QuizURL   string                  `json:"quiz_url,omitempty"`
	Progress  *storage.ModuleProgress `json:"progress,omitempty"`
}

// Session DTOs

type OpenSessionRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	ModuleID string `json:"module_id" validate:"required"`
}

type SessionResponse struct {
	Session   session.Snapshot `json:"session"`
	StreamURL string           `json:"stream_url"`
	Rates     []float64        `json:"playback_rates"`
}

type SeekRequest struct {
	Time *float64 `json:"time" validate:"required"`
}

type TimeUpdateRequest struct {
	Time *float64 `json:"time" validate:"required,gte=0"`
}

type MetadataRequest struct {
	Duration *float64 `json:"duration" validate:"required,gt=0"`
}

type VolumeRequest struct {
	Volume *float64 `json:"volume" validate:"required,gte=0,lte=1"`
}

type RateRequest struct {
	Rate *float64 `json:"rate" validate:"required"`
}

type BookmarkResponse struct {
	Bookmark player.Bookmark `json:"bookmark"`
}

type BookmarksResponse struct {
	Bookmarks []storage.Bookmark `json:"bookmarks"`
}

// Progress DTOs

type SaveProgressRequest struct {
	Position float64 `json:"position"` // Seconds
	Duration float64 `json:"duration" validate:"gt=0"`
}

type ContinueWatchingResponse struct {
	Items []storage.ContinueWatchingItem `json:"items"`
}

// Quiz DTOs

// QuizResponse is a quiz without its answers. AttemptsLeft is -1 when
// attempts are unlimited.
type QuizResponse struct {
	Quiz         quiz.View `json:"quiz"`
	AttemptsUsed int       `json:"attempts_used"`
	AttemptsLeft int       `json:"attempts_left"`
	Passed       bool      `json:"passed"`
}

type SubmitQuizRequest struct {
	Answers   map[string]quiz.Answer `json:"answers" validate:"required"`
	TimeSpent int                    `json:"time_spent" validate:"gte=0"` // Seconds
}

type QuizAttemptsResponse struct {
	Attempts []storage.QuizAttempt `json:"attempts"`
}
