package models

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// HomeworkState tracks where a homework is in its grading lifecycle.
type HomeworkState string

const (
	// HomeworkStateOpen accepts submissions and is the only state that can be scored.
	HomeworkStateOpen HomeworkState = "OP"
	// HomeworkStateClosed is a separate branch that never gets scored.
	HomeworkStateClosed HomeworkState = "CL"
	// HomeworkStateScored is terminal.
	HomeworkStateScored HomeworkState = "SC"
)

// DefaultHomeworkLearningInPublicCap bounds the learning-in-public points per homework.
const DefaultHomeworkLearningInPublicCap = 7

// Homework is a graded set of questions belonging to a course.
type Homework struct {
	ID                  uint          `gorm:"primaryKey" json:"id"`
	CourseID            uint          `gorm:"not null;index" json:"course_id"`
	Slug                string        `gorm:"size:160;not null" json:"slug"`
	Title               string        `gorm:"size:200;not null" json:"title"`
	Description         string        `gorm:"type:text" json:"description"`
	DueDate             time.Time     `gorm:"not null" json:"due_date"`
	LearningInPublicCap int           `gorm:"not null;default:7" json:"learning_in_public_cap"`
	State               HomeworkState `gorm:"size:2;not null;default:OP" json:"state"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
	Course              Course        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsScored reports whether grading already ran for the homework.
func (h Homework) IsScored() bool {
	return h.State == HomeworkStateScored
}

// IsPastDue returns true when the homework deadline has already passed.
func (h Homework) IsPastDue(reference time.Time) bool {
	return !h.DueDate.After(reference)
}

func (h Homework) String() string {
	if h.Course.Title == "" {
		return h.Title
	}
	return h.Course.Title + " - " + h.Title
}

// QuestionType selects how an answer is compared with the correct one.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MC"
	QuestionTypeCheckboxes     QuestionType = "CB"
	QuestionTypeFreeForm       QuestionType = "FF"
	QuestionTypeFreeFormLong   QuestionType = "FL"
)

// AnswerType refines comparison for free-form questions.
type AnswerType string

const (
	AnswerTypeAny            AnswerType = "ANY"
	AnswerTypeExactString    AnswerType = "EXS"
	AnswerTypeContainsString AnswerType = "CTS"
	AnswerTypeFloat          AnswerType = "FLT"
	AnswerTypeInteger        AnswerType = "INT"
)

// PossibleAnswersDelimiter separates options in Question.PossibleAnswers.
const PossibleAnswersDelimiter = "\n"

// Question belongs to a homework. For choice questions CorrectAnswer holds
// comma separated 1-based option indices.
type Question struct {
	ID                     uint         `gorm:"primaryKey" json:"id"`
	HomeworkID             uint         `gorm:"not null;index" json:"homework_id"`
	Text                   string       `gorm:"type:text;not null" json:"text"`
	QuestionType           QuestionType `gorm:"size:2;not null" json:"question_type"`
	AnswerType             AnswerType   `gorm:"size:3" json:"answer_type"`
	PossibleAnswers        string       `gorm:"type:text" json:"possible_answers"`
	CorrectAnswer          string       `gorm:"type:text" json:"correct_answer"`
	ScoresForCorrectAnswer int          `gorm:"not null;default:1" json:"scores_for_correct_answer"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

// SetPossibleAnswers stores the ordered option list.
func (q *Question) SetPossibleAnswers(options []string) {
	q.PossibleAnswers = strings.Join(options, PossibleAnswersDelimiter)
}

// PossibleAnswerList returns the ordered options; index i is selected as "i+1".
func (q Question) PossibleAnswerList() []string {
	if strings.TrimSpace(q.PossibleAnswers) == "" {
		return nil
	}
	parts := strings.Split(q.PossibleAnswers, PossibleAnswersDelimiter)
	options := make([]string, 0, len(parts))
	for _, part := range parts {
		options = append(options, strings.TrimSpace(part))
	}
	return options
}

// IsChoice reports whether answers are expressed as option indices.
func (q Question) IsChoice() bool {
	return q.QuestionType == QuestionTypeMultipleChoice || q.QuestionType == QuestionTypeCheckboxes
}

// ParseStrictIndexSet is ParseIndexSet for graded answers: any non-empty token
// that is not an integer makes the whole answer unparseable.
func ParseStrictIndexSet(raw string) (map[int]struct{}, bool) {
	result := map[int]struct{}{}
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		index, err := strconv.Atoi(token)
		if err != nil {
			return nil, false
		}
		result[index] = struct{}{}
	}
	return result, true
}

// ParseIndexSet turns "1, 3" into {1, 3}. Tokens that are not integers are skipped.
func ParseIndexSet(raw string) map[int]struct{} {
	result := map[int]struct{}{}
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		index, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		result[index] = struct{}{}
	}
	return result
}

// Submission is a student's answer sheet for one homework.
type Submission struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	HomeworkID            uint           `gorm:"not null;index" json:"homework_id"`
	EnrollmentID          uint           `gorm:"not null;index" json:"enrollment_id"`
	HomeworkLink          string         `gorm:"size:512" json:"homework_link"`
	LearningInPublicLinks datatypes.JSON `gorm:"type:json" json:"-"`
	TimeSpentLectures     *float64       `json:"time_spent_lectures"`
	TimeSpentHomework     *float64       `json:"time_spent_homework"`
	ProblemsComments      string         `gorm:"type:text" json:"problems_comments"`
	FAQContribution       string         `gorm:"column:faq_contribution;type:text" json:"faq_contribution"`
	QuestionsScore        int            `gorm:"not null" json:"questions_score"`
	FAQScore              int            `gorm:"column:faq_score;not null" json:"faq_score"`
	LearningInPublicScore int            `gorm:"not null" json:"learning_in_public_score"`
	TotalScore            int            `gorm:"not null" json:"total_score"`
	SubmittedAt           time.Time      `gorm:"autoCreateTime" json:"submitted_at"`
	Enrollment            Enrollment     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// SetLearningInPublicLinks stores the links a student shared about the course.
func (s *Submission) SetLearningInPublicLinks(links []string) {
	s.LearningInPublicLinks = encodeLinks(links)
}

// LearningInPublicLinkList returns the non-blank shared links.
func (s Submission) LearningInPublicLinkList() []string {
	return decodeLinks(s.LearningInPublicLinks)
}

// RecalculateTotal sums the score components into TotalScore.
func (s *Submission) RecalculateTotal() {
	s.TotalScore = s.QuestionsScore + s.FAQScore + s.LearningInPublicScore
}

// Answer is one submitted answer. IsCorrect is only written by grading.
type Answer struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	QuestionID   uint      `gorm:"not null;index" json:"question_id"`
	AnswerText   string    `gorm:"type:text" json:"answer_text"`
	IsCorrect    bool      `gorm:"not null" json:"is_correct"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
