package repository

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/noah-isme/coursework-engine/internal/models"
)

const peerReviewBatchSize = 500

// PeerReviewRepository defines persistence operations for peer reviews and
// the criteria responses recorded against them.
type PeerReviewRepository interface {
	Create(ctx context.Context, review *models.PeerReview) error
	CreateBatch(ctx context.Context, reviews []models.PeerReview) error
	ListByProject(ctx context.Context, projectID uint) ([]models.PeerReview, error)
	CountByProject(ctx context.Context, projectID uint) (int64, error)
	Exists(ctx context.Context, reviewerID, submissionUnderEvaluationID uint) (bool, error)
	ListResponses(ctx context.Context, reviewIDs []uint) ([]models.CriteriaResponse, error)
}

type peerReviewRepository struct {
	db *gorm.DB
}

// NewPeerReviewRepository instantiates the repository.
func NewPeerReviewRepository(db *gorm.DB) PeerReviewRepository {
	return &peerReviewRepository{db: db}
}

func (r *peerReviewRepository) Create(ctx context.Context, review *models.PeerReview) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *peerReviewRepository) CreateBatch(ctx context.Context, reviews []models.PeerReview) error {
	if len(reviews) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&reviews, peerReviewBatchSize).Error
}

func (r *peerReviewRepository) projectScope(projectID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("JOIN project_submissions ON project_submissions.id = peer_reviews.submission_under_evaluation_id").
			Where("project_submissions.project_id = ?", projectID)
	}
}

// ListByProject returns every review whose submission under evaluation
// belongs to the project, ordered by id.
func (r *peerReviewRepository) ListByProject(ctx context.Context, projectID uint) ([]models.PeerReview, error) {
	var reviews []models.PeerReview
	if err := r.db.WithContext(ctx).
		Model(&models.PeerReview{}).
		Scopes(r.projectScope(projectID)).
		Order("peer_reviews.id ASC").
		Find(&reviews).Error; err != nil {
		return nil, err
	}

	return reviews, nil
}

func (r *peerReviewRepository) CountByProject(ctx context.Context, projectID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PeerReview{}).
		Scopes(r.projectScope(projectID)).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *peerReviewRepository) Exists(ctx context.Context, reviewerID, submissionUnderEvaluationID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PeerReview{}).
		Where("reviewer_id = ? AND submission_under_evaluation_id = ?", reviewerID, submissionUnderEvaluationID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *peerReviewRepository) ListResponses(ctx context.Context, reviewIDs []uint) ([]models.CriteriaResponse, error) {
	if len(reviewIDs) == 0 {
		return []models.CriteriaResponse{}, nil
	}

	// The id list is bound in chunks to stay under the driver's parameter limit.
	responses := make([]models.CriteriaResponse, 0, len(reviewIDs))
	for start := 0; start < len(reviewIDs); start += peerReviewBatchSize {
		end := start + peerReviewBatchSize
		if end > len(reviewIDs) {
			end = len(reviewIDs)
		}

		var chunk []models.CriteriaResponse
		if err := r.db.WithContext(ctx).
			Where("review_id IN ?", reviewIDs[start:end]).
			Order("id ASC").
			Find(&chunk).Error; err != nil {
			return nil, err
		}
		responses = append(responses, chunk...)
	}

	sort.Slice(responses, func(i, j int) bool { return responses[i].ID < responses[j].ID })
	return responses, nil
}
