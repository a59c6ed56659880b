package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/coursework-engine/internal/models"
)

// HomeworkRepository defines data operations for homeworks, their questions,
// submissions and answers.
type HomeworkRepository interface {
	GetByID(ctx context.Context, id uint) (models.Homework, error)
	UpdateState(ctx context.Context, id uint, state models.HomeworkState) error
	ListQuestions(ctx context.Context, homeworkID uint) ([]models.Question, error)
	UpdateCorrectAnswers(ctx context.Context, questions []models.Question) error
	ListSubmissions(ctx context.Context, homeworkID uint) ([]models.Submission, error)
	ListSubmissionsByEnrollment(ctx context.Context, enrollmentID uint) ([]models.Submission, error)
	ListAnswers(ctx context.Context, homeworkID uint) ([]models.Answer, error)
	SaveAnswers(ctx context.Context, answers []models.Answer) error
	SaveSubmissionScores(ctx context.Context, submissions []models.Submission) error
}

type homeworkRepository struct {
	db *gorm.DB
}

// NewHomeworkRepository instantiates a GORM-backed repository.
func NewHomeworkRepository(db *gorm.DB) HomeworkRepository {
	return &homeworkRepository{db: db}
}

func (r *homeworkRepository) GetByID(ctx context.Context, id uint) (models.Homework, error) {
	var homework models.Homework
	if err := r.db.WithContext(ctx).Preload("Course").First(&homework, id).Error; err != nil {
		return models.Homework{}, err
	}

	return homework, nil
}

func (r *homeworkRepository) UpdateState(ctx context.Context, id uint, state models.HomeworkState) error {
	result := r.db.WithContext(ctx).
		Model(&models.Homework{}).
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

func (r *homeworkRepository) ListQuestions(ctx context.Context, homeworkID uint) ([]models.Question, error) {
	var questions []models.Question
	if err := r.db.WithContext(ctx).
		Where("homework_id = ?", homeworkID).
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (r *homeworkRepository) UpdateCorrectAnswers(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"correct_answer", "updated_at"}),
		}).
		Create(&questions).Error
}

func (r *homeworkRepository) ListSubmissions(ctx context.Context, homeworkID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Enrollment").
		Where("homework_id = ?", homeworkID).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *homeworkRepository) ListSubmissionsByEnrollment(ctx context.Context, enrollmentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *homeworkRepository) ListAnswers(ctx context.Context, homeworkID uint) ([]models.Answer, error) {
	var answers []models.Answer
	if err := r.db.WithContext(ctx).
		Joins("JOIN submissions ON submissions.id = answers.submission_id").
		Where("submissions.homework_id = ?", homeworkID).
		Order("answers.id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	return answers, nil
}

// SaveAnswers writes the is_correct flags of all answers in one statement.
func (r *homeworkRepository) SaveAnswers(ctx context.Context, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_correct", "updated_at"}),
		}).
		Create(&answers).Error
}

// SaveSubmissionScores writes the score fields of all submissions in one statement.
func (r *homeworkRepository) SaveSubmissionScores(ctx context.Context, submissions []models.Submission) error {
	if len(submissions) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"questions_score",
				"faq_score",
				"learning_in_public_score",
				"total_score",
			}),
		}).
		Create(&submissions).Error
}
