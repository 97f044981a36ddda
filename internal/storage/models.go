package storage

import "time"

// CompletionThreshold is the progress at which a module counts as watched.
const CompletionThreshold = 0.95

type ModuleType string

const (
	ModuleVideo ModuleType = "video"
	ModuleQuiz  ModuleType = "quiz"
	ModulePDF   ModuleType = "pdf"
)

// Valid reports whether t is one of the known module types.
func (t ModuleType) Valid() bool {
	switch t {
	case ModuleVideo, ModuleQuiz, ModulePDF:
		return true
	}
	return false
}

type Course struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Instructor       string    `json:"instructor"`
	Category         string    `json:"category"`
	Path             string    `json:"-"`
	TotalModules     int       `json:"total_modules"`
	CompletedModules int       `json:"completed_modules"`
	Progress         float64   `json:"progress"` // 0.0 - 1.0
	CreatedAt        time.Time `json:"-"`
}

type Module struct {
	ID         string     `json:"id"`
	CourseID   string     `json:"course_id"`
	Title      string     `json:"title"`
	Type       ModuleType `json:"type"`
	Content    string     `json:"-"` // file path or URL
	Position   int        `json:"position"`
	Duration   *int64     `json:"duration,omitempty"` // Seconds
	ModifiedAt time.Time  `json:"-"`
	CreatedAt  time.Time  `json:"-"`
}

type ModuleProgress struct {
	CourseID  string    `json:"course_id"`
	ModuleID  string    `json:"module_id"`
	Position  float64   `json:"position"` // Seconds
	Duration  float64   `json:"duration"` // Seconds
	Progress  float64   `json:"progress"` // 0.0 - 1.0
	Completed bool      `json:"completed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContinueWatchingItem combines a module with its saved progress
type ContinueWatchingItem struct {
	Module   Module         `json:"module"`
	Progress ModuleProgress `json:"progress"`
}

type Bookmark struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	ModuleID  string    `json:"module_id"`
	Timestamp float64   `json:"timestamp"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// QuizAttempt is one graded submission of a quiz module.
type QuizAttempt struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	ModuleID  string    `json:"module_id"`
	Score     float64   `json:"score"` // 0 - 100
	Earned    int       `json:"earned_points"`
	Total     int       `json:"total_points"`
	Passed    bool      `json:"passed"`
	TimeSpent int       `json:"time_spent"` // Seconds
	CreatedAt time.Time `json:"created_at"`
}
