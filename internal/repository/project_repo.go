package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/coursework-engine/internal/models"
)

const evaluationScoreBatchSize = 500

// ProjectRepository defines data operations for projects, their submissions,
// review criteria and materialised evaluation scores.
type ProjectRepository interface {
	GetByID(ctx context.Context, id uint) (models.Project, error)
	UpdateState(ctx context.Context, id uint, state models.ProjectState) error
	ListSubmissions(ctx context.Context, projectID uint) ([]models.ProjectSubmission, error)
	ListSubmissionsByEnrollment(ctx context.Context, enrollmentID uint) ([]models.ProjectSubmission, error)
	GetSubmission(ctx context.Context, id uint) (models.ProjectSubmission, error)
	SaveSubmissionScores(ctx context.Context, submissions []models.ProjectSubmission) error
	ListCriteria(ctx context.Context, courseID uint) ([]models.ReviewCriteria, error)
	ReplaceEvaluationScores(ctx context.Context, projectID uint, scores []models.ProjectEvaluationScore) error
	ListEvaluationScores(ctx context.Context, projectID uint) ([]models.ProjectEvaluationScore, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository instantiates a GORM-backed repository.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) GetByID(ctx context.Context, id uint) (models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Preload("Course").First(&project, id).Error; err != nil {
		return models.Project{}, err
	}

	return project, nil
}

func (r *projectRepository) UpdateState(ctx context.Context, id uint, state models.ProjectState) error {
	result := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", id).
		Update("state", state)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListSubmissions returns the project's submissions ordered by id, which is
// the ordering the seeded assignment depends on.
func (r *projectRepository) ListSubmissions(ctx context.Context, projectID uint) ([]models.ProjectSubmission, error) {
	var submissions []models.ProjectSubmission
	if err := r.db.WithContext(ctx).
		Preload("Enrollment").
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *projectRepository) ListSubmissionsByEnrollment(ctx context.Context, enrollmentID uint) ([]models.ProjectSubmission, error) {
	var submissions []models.ProjectSubmission
	if err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *projectRepository) GetSubmission(ctx context.Context, id uint) (models.ProjectSubmission, error) {
	var submission models.ProjectSubmission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.ProjectSubmission{}, err
	}

	return submission, nil
}

// SaveSubmissionScores writes the score fields of all submissions in one statement.
func (r *projectRepository) SaveSubmissionScores(ctx context.Context, submissions []models.ProjectSubmission) error {
	if len(submissions) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"project_score",
				"project_faq_score",
				"project_learning_in_public_score",
				"peer_review_score",
				"peer_review_learning_in_public_score",
				"total_score",
				"reviewed_enough_peers",
				"passed",
			}),
		}).
		Create(&submissions).Error
}

func (r *projectRepository) ListCriteria(ctx context.Context, courseID uint) ([]models.ReviewCriteria, error) {
	var criteria []models.ReviewCriteria
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&criteria).Error; err != nil {
		return nil, err
	}

	return criteria, nil
}

// ReplaceEvaluationScores deletes every evaluation score of the project's
// submissions and inserts the given rows.
func (r *projectRepository) ReplaceEvaluationScores(ctx context.Context, projectID uint, scores []models.ProjectEvaluationScore) error {
	submissionIDs := r.db.Model(&models.ProjectSubmission{}).
		Select("id").
		Where("project_id = ?", projectID)

	if err := r.db.WithContext(ctx).
		Where("submission_id IN (?)", submissionIDs).
		Delete(&models.ProjectEvaluationScore{}).Error; err != nil {
		return err
	}

	if len(scores) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).CreateInBatches(&scores, evaluationScoreBatchSize).Error
}

func (r *projectRepository) ListEvaluationScores(ctx context.Context, projectID uint) ([]models.ProjectEvaluationScore, error) {
	var scores []models.ProjectEvaluationScore
	if err := r.db.WithContext(ctx).
		Joins("JOIN project_submissions ON project_submissions.id = project_evaluation_scores.submission_id").
		Where("project_submissions.project_id = ?", projectID).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "project_evaluation_scores", Name: "submission_id"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "project_evaluation_scores", Name: "review_criteria_id"}}).
		Find(&scores).Error; err != nil {
		return nil, err
	}

	return scores, nil
}
