package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ProjectState tracks the project lifecycle driven by the engine operations.
type ProjectState string

const (
	ProjectStateCollectingSubmissions ProjectState = "CS"
	ProjectStatePeerReviewing         ProjectState = "PR"
	ProjectStateCompleted             ProjectState = "CO"
)

// Project is a peer-reviewed course project.
type Project struct {
	ID                         uint         `gorm:"primaryKey" json:"id"`
	CourseID                   uint         `gorm:"not null;index" json:"course_id"`
	Slug                       string       `gorm:"size:160;not null" json:"slug"`
	Title                      string       `gorm:"size:200;not null" json:"title"`
	Description                string       `gorm:"type:text" json:"description"`
	SubmissionDueDate          time.Time    `gorm:"not null" json:"submission_due_date"`
	PeerReviewDueDate          time.Time    `gorm:"not null" json:"peer_review_due_date"`
	LearningInPublicCapProject int          `gorm:"not null;default:14" json:"learning_in_public_cap_project"`
	LearningInPublicCapReview  int          `gorm:"not null;default:2" json:"learning_in_public_cap_review"`
	NumberOfPeersToEvaluate    int          `gorm:"not null;default:3" json:"number_of_peers_to_evaluate"`
	PointsForPeerReview        int          `gorm:"not null;default:1" json:"points_for_peer_review"`
	PointsToPass               int          `gorm:"not null" json:"points_to_pass"`
	State                      ProjectState `gorm:"size:2;not null;default:CS" json:"state"`
	CreatedAt                  time.Time    `json:"created_at"`
	UpdatedAt                  time.Time    `json:"updated_at"`
	Course                     Course       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// ProjectSubmission is a student's project entry; the score fields are written by scoring.
type ProjectSubmission struct {
	ID                              uint           `gorm:"primaryKey" json:"id"`
	ProjectID                       uint           `gorm:"not null;index" json:"project_id"`
	EnrollmentID                    uint           `gorm:"not null;index" json:"enrollment_id"`
	GithubLink                      string         `gorm:"size:512" json:"github_link"`
	CommitID                        string         `gorm:"size:40" json:"commit_id"`
	LearningInPublicLinks           datatypes.JSON `gorm:"type:json" json:"-"`
	FAQContribution                 string         `gorm:"column:faq_contribution;type:text" json:"faq_contribution"`
	TimeSpent                       *float64       `json:"time_spent"`
	ProblemsComments                string         `gorm:"type:text" json:"problems_comments"`
	ProjectScore                    int            `gorm:"not null" json:"project_score"`
	ProjectFAQScore                 int            `gorm:"column:project_faq_score;not null" json:"project_faq_score"`
	ProjectLearningInPublicScore    int            `gorm:"not null" json:"project_learning_in_public_score"`
	PeerReviewScore                 int            `gorm:"not null" json:"peer_review_score"`
	PeerReviewLearningInPublicScore int            `gorm:"not null" json:"peer_review_learning_in_public_score"`
	TotalScore                      int            `gorm:"not null" json:"total_score"`
	ReviewedEnoughPeers             bool           `gorm:"not null" json:"reviewed_enough_peers"`
	Passed                          bool           `gorm:"not null" json:"passed"`
	SubmittedAt                     time.Time      `gorm:"autoCreateTime" json:"submitted_at"`
	Enrollment                      Enrollment     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// SetLearningInPublicLinks stores the links shared about the project.
func (s *ProjectSubmission) SetLearningInPublicLinks(links []string) {
	s.LearningInPublicLinks = encodeLinks(links)
}

// LearningInPublicLinkList returns the non-blank shared links.
func (s ProjectSubmission) LearningInPublicLinkList() []string {
	return decodeLinks(s.LearningInPublicLinks)
}

// RecalculateTotal sums the five score components into TotalScore.
func (s *ProjectSubmission) RecalculateTotal() {
	s.TotalScore = s.ProjectScore +
		s.ProjectFAQScore +
		s.ProjectLearningInPublicScore +
		s.PeerReviewScore +
		s.PeerReviewLearningInPublicScore
}

// ReviewCriteriaType controls whether reviewers pick one or several options.
type ReviewCriteriaType string

const (
	ReviewCriteriaRadioButtons ReviewCriteriaType = "RB"
	ReviewCriteriaCheckboxes   ReviewCriteriaType = "CB"
)

// CriteriaOption is one selectable answer of a review criterion.
type CriteriaOption struct {
	Criteria string `json:"criteria" validate:"required"`
	Score    int    `json:"score" validate:"gte=0"`
}

// ReviewCriteria is a course-wide rubric line used by peer reviewers.
type ReviewCriteria struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	CourseID           uint               `gorm:"not null;index" json:"course_id"`
	Description        string             `gorm:"size:255;not null" json:"description"`
	Options            datatypes.JSON     `gorm:"type:json" json:"options"`
	ReviewCriteriaType ReviewCriteriaType `gorm:"size:2;not null" json:"review_criteria_type"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// SetOptions serialises the ordered option list.
func (c *ReviewCriteria) SetOptions(options []CriteriaOption) {
	data, err := json.Marshal(options)
	if err != nil {
		c.Options = datatypes.JSON([]byte("[]"))
		return
	}
	c.Options = datatypes.JSON(data)
}

// OptionList decodes the stored options. Index i is selected as "i+1".
func (c ReviewCriteria) OptionList() ([]CriteriaOption, error) {
	if len(c.Options) == 0 {
		return nil, nil
	}
	var options []CriteriaOption
	if err := json.Unmarshal(c.Options, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// PeerReviewState tracks whether a reviewer has filled in the review.
type PeerReviewState string

const (
	PeerReviewStateToReview  PeerReviewState = "TR"
	PeerReviewStateSubmitted PeerReviewState = "SU"
)

// PeerReview is a directed reviewer -> reviewee edge between two submissions
// of the same project.
type PeerReview struct {
	ID                          uint            `gorm:"primaryKey" json:"id"`
	SubmissionUnderEvaluationID uint            `gorm:"not null;index" json:"submission_under_evaluation_id"`
	ReviewerID                  uint            `gorm:"not null;index" json:"reviewer_id"`
	NoteToPeer                  string          `gorm:"type:text" json:"note_to_peer"`
	LearningInPublicLinks       datatypes.JSON  `gorm:"type:json" json:"-"`
	TimeSpentReviewing          *float64        `json:"time_spent_reviewing"`
	ProblemsComments            string          `gorm:"type:text" json:"problems_comments"`
	Optional                    bool            `gorm:"not null" json:"optional"`
	State                       PeerReviewState `gorm:"size:2;not null;default:TR" json:"state"`
	SubmittedAt                 *time.Time      `json:"submitted_at"`
	CreatedAt                   time.Time       `json:"created_at"`
	UpdatedAt                   time.Time       `json:"updated_at"`
}

// IsSubmitted reports whether the reviewer completed the review.
func (r PeerReview) IsSubmitted() bool {
	return r.State == PeerReviewStateSubmitted
}

// SetLearningInPublicLinks stores the links shared about the review.
func (r *PeerReview) SetLearningInPublicLinks(links []string) {
	r.LearningInPublicLinks = encodeLinks(links)
}

// LearningInPublicLinkList returns the non-blank shared links.
func (r PeerReview) LearningInPublicLinkList() []string {
	return decodeLinks(r.LearningInPublicLinks)
}

// CriteriaResponse is a reviewer's answer to one criterion; Answer holds
// comma separated 1-based option indices.
type CriteriaResponse struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReviewID   uint      `gorm:"not null;index" json:"review_id"`
	CriteriaID uint      `gorm:"not null;index" json:"criteria_id"`
	Answer     string    `gorm:"size:255" json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProjectEvaluationScore is the materialised consensus score of a submission
// for one criterion. Rows are replaced wholesale on every scoring run.
type ProjectEvaluationScore struct {
	ID               uint `gorm:"primaryKey" json:"id"`
	SubmissionID     uint `gorm:"not null;index" json:"submission_id"`
	ReviewCriteriaID uint `gorm:"not null;index" json:"review_criteria_id"`
	Score            int  `gorm:"not null" json:"score"`
}
