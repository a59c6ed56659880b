package dto

import (
	"time"

	"github.com/noah-isme/coursework-engine/internal/models"
)

// AssignReviewsRequest optionally overrides the configured assignment seed.
type AssignReviewsRequest struct {
	Seed *int64 `json:"seed"`
}

// OptionalReviewRequest asks for an extra review outside the assigned batch.
type OptionalReviewRequest struct {
	ReviewerSubmissionID        uint `json:"reviewer_submission_id" validate:"required"`
	SubmissionUnderEvaluationID uint `json:"submission_under_evaluation_id" validate:"required,nefield=ReviewerSubmissionID"`
}

// PeerReviewResponse describes a stored peer review.
type PeerReviewResponse struct {
	ID                          uint       `json:"id"`
	ReviewerID                  uint       `json:"reviewer_id"`
	SubmissionUnderEvaluationID uint       `json:"submission_under_evaluation_id"`
	Optional                    bool       `json:"optional"`
	State                       string     `json:"state"`
	SubmittedAt                 *time.Time `json:"submitted_at,omitempty"`
	CreatedAt                   time.Time  `json:"created_at"`
}

// NewPeerReviewResponse maps the model.
func NewPeerReviewResponse(review models.PeerReview) PeerReviewResponse {
	return PeerReviewResponse{
		ID:                          review.ID,
		ReviewerID:                  review.ReviewerID,
		SubmissionUnderEvaluationID: review.SubmissionUnderEvaluationID,
		Optional:                    review.Optional,
		State:                       string(review.State),
		SubmittedAt:                 review.SubmittedAt,
		CreatedAt:                   review.CreatedAt,
	}
}
