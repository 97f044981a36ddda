package quiz

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"learnview/internal/storage"
)

var (
	ErrModuleNotFound    = errors.New("module not found")
	ErrNotQuizModule     = errors.New("module is not a quiz")
	ErrAttemptsExhausted = errors.New("no attempts left")
)

// Store is the persistence a Service needs.
type Store interface {
	GetModule(id string) (*storage.Module, error)
	GetProgress(moduleID string) (*storage.ModuleProgress, error)
	SaveProgress(p *storage.ModuleProgress) error
	CreateQuizAttempt(a *storage.QuizAttempt) error
	GetQuizAttempts(moduleID string) ([]storage.QuizAttempt, error)
	CountQuizAttempts(moduleID string) (int, error)
}

// Submission is a learner's answers to one quiz. TimeSpent is in seconds.
type Submission struct {
	Answers   map[string]Answer
	TimeSpent int
}

// Graded is a stored attempt together with its per-question breakdown.
type Graded struct {
	Attempt  storage.QuizAttempt `json:"attempt"`
	Result   Result              `json:"result"`
	OverTime bool                `json:"over_time"`
}

// Service grades quiz modules and records attempts and module progress.
type Service struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time

	// serializes the attempt limit check with the insert
	mu sync.Mutex
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "quizzes").Logger(),
		now:    time.Now,
	}
}

// Load returns the quiz behind a quiz module.
func (s *Service) Load(courseID, moduleID string) (*Quiz, error) {
	module, err := s.store.GetModule(moduleID)
	if err != nil {
		return nil, fmt.Errorf("get module: %w", err)
	}
	if module == nil || module.CourseID != courseID {
		return nil, ErrModuleNotFound
	}
	if module.Type != storage.ModuleQuiz {
		return nil, ErrNotQuizModule
	}

	q, err := Load(module.Content)
	if err != nil {
		s.logger.Warn().Err(err).Str("module_id", moduleID).Msg("failed to load quiz")
		return nil, err
	}
	return q, nil
}

// Attempts lists a quiz module's attempts, oldest first.
func (s *Service) Attempts(courseID, moduleID string) ([]storage.QuizAttempt, error) {
	module, err := s.store.GetModule(moduleID)
	if err != nil {
		return nil, fmt.Errorf("get module: %w", err)
	}
	if module == nil || module.CourseID != courseID {
		return nil, ErrModuleNotFound
	}
	if module.Type != storage.ModuleQuiz {
		return nil, ErrNotQuizModule
	}
	return s.store.GetQuizAttempts(moduleID)
}

// Submit grades and records an attempt. A submission past the time limit
// is recorded but cannot pass. A passing attempt completes the module;
// module progress keeps the best score.
func (s *Service) Submit(courseID, moduleID string, sub Submission) (*Graded, error) {
	q, err := s.Load(courseID, moduleID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if q.MaxAttempts > 0 {
		n, err := s.store.CountQuizAttempts(moduleID)
		if err != nil {
			return nil, fmt.Errorf("count attempts: %w", err)
		}
		if n >= q.MaxAttempts {
			return nil, ErrAttemptsExhausted
		}
	}

	result := q.Grade(sub.Answers)
	overTime := q.TimeLimit > 0 && sub.TimeSpent > q.TimeLimit*60
	if overTime {
		result.Passed = false
	}

	attempt := storage.QuizAttempt{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		ModuleID:  moduleID,
		Score:     result.Score,
		Earned:    result.Earned,
		Total:     result.Total,
		Passed:    result.Passed,
		TimeSpent: sub.TimeSpent,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateQuizAttempt(&attempt); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}

	if err := s.saveProgress(courseID, moduleID, result); err != nil {
		s.logger.Error().Err(err).Str("module_id", moduleID).Msg("failed to save quiz progress")
	}

	s.logger.Info().
		Str("module_id", moduleID).
		Float64("score", result.Score).
		Bool("passed", result.Passed).
		Bool("over_time", overTime).
		Msg("quiz attempt graded")

	return &Graded{Attempt: attempt, Result: result, OverTime: overTime}, nil
}

func (s *Service) saveProgress(courseID, moduleID string, r Result) error {
	progress := r.Score / 100
	prev, err := s.store.GetProgress(moduleID)
	if err != nil {
		return err
	}
	if prev != nil && prev.Progress > progress {
		progress = prev.Progress
	}
	return s.store.SaveProgress(&storage.ModuleProgress{
		CourseID:  courseID,
		ModuleID:  moduleID,
		Progress:  progress,
		Completed: r.Passed,
	})
}
