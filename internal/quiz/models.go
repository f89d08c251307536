package quiz

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// Category is the top level of the question taxonomy. The set is closed.
type Category string

const (
	CategoryBasicSciences       Category = "Basic Sciences"
	CategoryOrganSystems        Category = "Organ Systems"
	CategoryClinicalSpecialties Category = "Clinical Specialties"
)

var Categories = []Category{
	CategoryBasicSciences,
	CategoryOrganSystems,
	CategoryClinicalSpecialties,
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// ParseCategory accepts the display name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, k := range Categories {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", Invalidf("unknown category %q", s)
}

func (c *Category) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*c = ""
		return nil
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c *Category) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*c = ""
		return nil
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", Invalidf("unknown difficulty %q", s)
	}
	return d, nil
}

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaRaw   MediaType = "raw"
	MediaURL   MediaType = "url"
)

type Media struct {
	Type         MediaType `json:"type" yaml:"type"`
	Path         string    `json:"path" yaml:"path"` // blob key, or the link itself for MediaURL
	Filename     string    `json:"filename" yaml:"filename"`
	OriginalName string    `json:"original_name,omitempty" yaml:"original_name"`
	MimeType     string    `json:"mimetype,omitempty" yaml:"mimetype"`
	Size         int64     `json:"size,omitempty" yaml:"size"`

	// URL is resolved when serving; never persisted.
	URL string `json:"url,omitempty" yaml:"-"`
}

type Option struct {
	Text  string  `json:"text" yaml:"text"`
	Media []Media `json:"media,omitempty" yaml:"media"`
}

type SubjectGroup struct {
	Name   string   `json:"name" yaml:"name"`
	Topics []string `json:"topics,omitempty" yaml:"topics"`
}

type Question struct {
	ID               string         `json:"id" yaml:"id"`
	Text             string         `json:"question_text" yaml:"question_text"`
	Media            []Media        `json:"question_media,omitempty" yaml:"question_media"`
	Options          []Option       `json:"options" yaml:"options"`
	CorrectAnswer    int            `json:"correct_answer" yaml:"correct_answer"`
	Explanation      string         `json:"explanation" yaml:"explanation"`
	ExplanationMedia []Media        `json:"explanation_media,omitempty" yaml:"explanation_media"`
	Category         Category       `json:"category" yaml:"category"`
	Subjects         []SubjectGroup `json:"subjects,omitempty" yaml:"subjects"`
	Difficulty       Difficulty     `json:"difficulty" yaml:"difficulty"`
	Tags             []string       `json:"tags,omitempty" yaml:"tags"`
	SourceURL        string         `json:"source_url,omitempty" yaml:"source_url"`
	CreatedBy        string         `json:"created_by,omitempty" yaml:"created_by"`
	Approved         bool           `json:"approved" yaml:"approved"`
}

// Validate checks the invariants every stored question must hold.
func (q Question) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return Invalidf("question id required")
	}
	if strings.TrimSpace(q.Text) == "" {
		return Invalidf("question %s: text required", q.ID)
	}
	if len(q.Options) < 2 {
		return Invalidf("question %s: at least two options are required", q.ID)
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return Invalidf("question %s: correct answer index %d out of range", q.ID, q.CorrectAnswer)
	}
	if !q.Category.Valid() {
		return Invalidf("question %s: unknown category %q", q.ID, q.Category)
	}
	if q.Difficulty != "" && !q.Difficulty.Valid() {
		return Invalidf("question %s: unknown difficulty %q", q.ID, q.Difficulty)
	}
	for _, s := range q.Subjects {
		if strings.TrimSpace(s.Name) == "" {
			return Invalidf("question %s: subject name required", q.ID)
		}
	}
	return nil
}

// SubjectNames flattens the subject groups.
func (q Question) SubjectNames() []string {
	out := make([]string, 0, len(q.Subjects))
	for _, s := range q.Subjects {
		out = append(out, s.Name)
	}
	return out
}

// TopicNames flattens every topic of every subject, without duplicates.
func (q Question) TopicNames() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range q.Subjects {
		for _, t := range s.Topics {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// HasMedia reports whether the question, any option or the explanation carries media.
func (q Question) HasMedia() bool {
	if len(q.Media) > 0 || len(q.ExplanationMedia) > 0 {
		return true
	}
	for _, o := range q.Options {
		if len(o.Media) > 0 {
			return true
		}
	}
	return false
}

// QuestionView is what a student sees while taking a test.
// It deliberately has no correct answer or explanation.
type QuestionView struct {
	ID         string         `json:"id"`
	Text       string         `json:"question_text"`
	Media      []Media        `json:"question_media,omitempty"`
	Options    []Option       `json:"options"`
	Category   Category       `json:"category"`
	Subjects   []SubjectGroup `json:"subjects,omitempty"`
	Difficulty Difficulty     `json:"difficulty"`
	Tags       []string       `json:"tags,omitempty"`
	SourceURL  string         `json:"source_url,omitempty"`
	CreatedBy  string         `json:"created_by,omitempty"`
}

func (q Question) View() QuestionView {
	return QuestionView{
		ID:         q.ID,
		Text:       q.Text,
		Media:      q.Media,
		Options:    q.Options,
		Category:   q.Category,
		Subjects:   q.Subjects,
		Difficulty: q.Difficulty,
		Tags:       q.Tags,
		SourceURL:  q.SourceURL,
		CreatedBy:  q.CreatedBy,
	}
}

type Status string

const (
	StatusProceeding Status = "proceeding"
	StatusSucceeded  Status = "succeeded"
	StatusCanceled   Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusProceeding, StatusSucceeded, StatusCanceled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusCanceled
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", Invalidf("unknown status %q", s)
	}
	return st, nil
}

// Filters records how the question set was chosen. Display only.
type Filters struct {
	Difficulty string `json:"difficulty,omitempty"`
	Count      int    `json:"count,omitempty"`
}

// Counters are derived from a session's ledger. TotalOptions sums the options of
// answered entries; the session's own total_options is fixed when it opens.
type Counters struct {
	Correct      int `json:"correct_answers"`
	Incorrect    int `json:"incorrect_answers"`
	Flagged      int `json:"flagged_answers"`
	TotalOptions int `json:"total_options"`
}

// Answered is the number of distinct questions with a ledger entry.
func (c Counters) Answered() int { return c.Correct + c.Incorrect + c.Flagged }

type TestSession struct {
	ID             string     `json:"id"`
	StudentID      string     `json:"student_id"`
	Questions      []string   `json:"questions"`
	TotalQuestions int        `json:"total_questions"`
	TotalOptions   int        `json:"total_options"`
	Correct        int        `json:"correct_answers"`
	Incorrect      int        `json:"incorrect_answers"`
	Flagged        int        `json:"flagged_answers"`
	Filters        Filters    `json:"filters"`
	Status         Status     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func (s TestSession) ScorePercentage() float64 {
	return grading.Percentage(s.Correct, s.TotalQuestions)
}

func (s TestSession) HasQuestion(id string) bool {
	for _, q := range s.Questions {
		if q == id {
			return true
		}
	}
	return false
}

func (s TestSession) MarshalJSON() ([]byte, error) {
	type plain TestSession
	return json.Marshal(struct {
		plain
		ScorePercentage float64 `json:"score_percentage"`
	}{plain(s), s.ScorePercentage()})
}

// FlaggedAnswer marks a question the student skipped or flagged for review.
const FlaggedAnswer = grading.Flagged

// StudentQuestion is one ledger entry: a student's answer to one question in one session.
type StudentQuestion struct {
	ID         string `json:"id"`
	StudentID  string `json:"student_id"`
	QuestionID string `json:"question_id"`
	SessionID  string `json:"session_id"`

	// snapshot taken at first submission
	Options          []Option `json:"options"`
	CorrectAnswer    int      `json:"correct_answer"`
	Explanation      string   `json:"explanation"`
	ExplanationMedia []Media  `json:"explanation_media,omitempty"`
	Category         Category `json:"category"`
	Subjects         []string `json:"subjects,omitempty"`
	Topics           []string `json:"topics,omitempty"`

	SelectedAnswer int       `json:"selected_answer"`
	IsCorrect      bool      `json:"is_correct"`
	AnsweredAt     time.Time `json:"answered_at"`
	LastUpdatedAt  time.Time `json:"last_updated_at"`
}

func (e StudentQuestion) Flagged() bool { return e.SelectedAnswer == FlaggedAnswer }

func (e StudentQuestion) HasSubject(name string) bool { return contains(e.Subjects, name) }

func (e StudentQuestion) HasTopic(name string) bool { return contains(e.Topics, name) }

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is normalised by Normalize before it reaches a store.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.PageSize }

func newPage[T any](items []T, total int, p PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}
	return Page[T]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize, Pages: pages}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsAny(list, wanted []string) bool {
	for _, w := range wanted {
		if contains(list, w) {
			return true
		}
	}
	return false
}

func (e StudentQuestion) String() string {
	return fmt.Sprintf("%s/%s/%s=%d", e.StudentID, e.SessionID, e.QuestionID, e.SelectedAnswer)
}
