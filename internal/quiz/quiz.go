package quiz

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPassPercentage applies when a quiz file does not set one.
const DefaultPassPercentage = 70

var ErrInvalidQuiz = errors.New("invalid quiz")

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Matching       QuestionType = "matching"
)

// Quiz is the content of a quiz module file. The file is YAML; JSON files
// parse the same way. TimeLimit is in minutes; zero TimeLimit or
// MaxAttempts means no limit.
type Quiz struct {
	Title          string     `yaml:"title" validate:"required"`
	Description    string     `yaml:"description"`
	PassPercentage float64    `yaml:"pass_percentage" validate:"gte=0,lte=100"`
	TimeLimit      int        `yaml:"time_limit" validate:"gte=0"`
	MaxAttempts    int        `yaml:"max_attempts" validate:"gte=0"`
	Questions      []Question `yaml:"questions" validate:"required,min=1,dive"`
}

type Question struct {
	ID      string       `yaml:"id" validate:"required"`
	Type    QuestionType `yaml:"type" validate:"oneof=multiple_choice true_false short_answer matching"`
	Text    string       `yaml:"text" validate:"required"`
	Points  int          `yaml:"points" validate:"gte=0"`
	Choices []Choice     `yaml:"choices" validate:"dive"`
	Answers []string     `yaml:"answers"`
	Pairs   []Pair       `yaml:"pairs" validate:"dive"`
}

type Choice struct {
	ID      string `yaml:"id" validate:"required"`
	Text    string `yaml:"text" validate:"required"`
	Correct bool   `yaml:"correct"`
}

type Pair struct {
	Left  string `yaml:"left" validate:"required"`
	Right string `yaml:"right" validate:"required"`
}

var validate = validator.New()

// Load reads and validates a quiz file.
func Load(path string) (*Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Quiz, error) {
	var q Quiz
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}
	if q.PassPercentage == 0 {
		q.PassPercentage = DefaultPassPercentage
	}
	for i := range q.Questions {
		if q.Questions[i].Points == 0 {
			q.Questions[i].Points = 1
		}
	}
	if err := q.check(); err != nil {
		return nil, err
	}
	return &q, nil
}

func (q *Quiz) check() error {
	if err := validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s", ErrInvalidQuiz, verrs[0].Namespace())
		}
		return fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}

	seen := make(map[string]bool, len(q.Questions))
	for _, question := range q.Questions {
		if seen[question.ID] {
			return fmt.Errorf("%w: duplicate question %q", ErrInvalidQuiz, question.ID)
		}
		seen[question.ID] = true

		switch question.Type {
		case MultipleChoice, TrueFalse:
			if !hasCorrectChoice(question.Choices) {
				return fmt.Errorf("%w: question %q has no correct choice", ErrInvalidQuiz, question.ID)
			}
		case ShortAnswer:
			if len(question.Answers) == 0 {
				return fmt.Errorf("%w: question %q has no accepted answers", ErrInvalidQuiz, question.ID)
			}
		case Matching:
			if len(question.Pairs) < 2 {
				return fmt.Errorf("%w: question %q needs at least two pairs", ErrInvalidQuiz, question.ID)
			}
		}
	}
	return nil
}

func hasCorrectChoice(choices []Choice) bool {
	for _, c := range choices {
		if c.Correct {
			return true
		}
	}
	return false
}

// TotalPoints is the score of a fully correct attempt.
func (q *Quiz) TotalPoints() int {
	var total int
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// View is a quiz as shown to a learner: no correct answers.
type View struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	PassPercentage float64        `json:"pass_percentage"`
	TimeLimit      int            `json:"time_limit"`
	MaxAttempts    int            `json:"max_attempts"`
	TotalPoints    int            `json:"total_points"`
	Questions      []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Points  int          `json:"points"`
	Choices []ChoiceView `json:"choices,omitempty"`
	Left    []string     `json:"left,omitempty"`
	Right   []string     `json:"right,omitempty"`
}

type ChoiceView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (q *Quiz) View() View {
	v := View{
		Title:          q.Title,
		Description:    q.Description,
		PassPercentage: q.PassPercentage,
		TimeLimit:      q.TimeLimit,
		MaxAttempts:    q.MaxAttempts,
		TotalPoints:    q.TotalPoints(),
		Questions:      make([]QuestionView, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		qv := QuestionView{
			ID:     question.ID,
			Type:   question.Type,
			Text:   question.Text,
			Points: question.Points,
		}
		for _, c := range question.Choices {
			qv.Choices = append(qv.Choices, ChoiceView{ID: c.ID, Text: c.Text})
		}
		for _, p := range question.Pairs {
			qv.Left = append(qv.Left, p.Left)
			qv.Right = append(qv.Right, p.Right)
		}
		// Right-hand items are listed alphabetically so their order does
		// not reveal the pairing.
		sort.Strings(qv.Right)
		v.Questions = append(v.Questions, qv)
	}
	return v
}

// Answer is a learner's response to one question. Choices holds choice ids,
// Text a short answer and Matches left items mapped to right items.
type Answer struct {
	Choices []string          `json:"choices,omitempty"`
	Text    string            `json:"text,omitempty"`
	Matches map[string]string `json:"matches,omitempty"`
}

type QuestionResult struct {
	ID      string `json:"id"`
	Correct bool   `json:"correct"`
	Points  int    `json:"points"`
}

type Result struct {
	Score     float64          `json:"score"` // 0 - 100
	Earned    int              `json:"earned_points"`
	Total     int              `json:"total_points"`
	Passed    bool             `json:"passed"`
	Questions []QuestionResult `json:"questions"`
}

// Grade scores answers keyed by question id. Unanswered questions count
// toward the total and earn nothing.
func (q *Quiz) Grade(answers map[string]Answer) Result {
	r := Result{
		Total:     q.TotalPoints(),
		Questions: make([]QuestionResult, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		answer, ok := answers[question.ID]
		correct := ok && question.correct(answer)

		qr := QuestionResult{ID: question.ID, Correct: correct}
		if correct {
			qr.Points = question.Points
			r.Earned += question.Points
		}
		r.Questions = append(r.Questions, qr)
	}
	if r.Total > 0 {
		r.Score = float64(r.Earned) / float64(r.Total) * 100
	}
	r.Passed = r.Score >= q.PassPercentage
	return r
}

func (question Question) correct(a Answer) bool {
	switch question.Type {
	case MultipleChoice, TrueFalse:
		want := make(map[string]bool)
		for _, c := range question.Choices {
			if c.Correct {
				want[c.ID] = true
			}
		}
		got := make(map[string]bool, len(a.Choices))
		for _, id := range a.Choices {
			got[id] = true
		}
		if len(got) != len(want) {
			return false
		}
		for id := range want {
			if !got[id] {
				return false
			}
		}
		return true
	case ShortAnswer:
		text := normalize(a.Text)
		for _, accepted := range question.Answers {
			if text == normalize(accepted) {
				return true
			}
		}
		return false
	case Matching:
		if len(a.Matches) != len(question.Pairs) {
			return false
		}
		for _, p := range question.Pairs {
			if a.Matches[p.Left] != p.Right {
				return false
			}
		}
		return true
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
