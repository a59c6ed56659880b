package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/coursework-engine/internal/models"
)

// CourseRepository defines persistence operations for courses and enrollments.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Course, error)
	MarkFirstHomeworkScored(ctx context.Context, id uint) error
	GetEnrollment(ctx context.Context, id uint) (models.Enrollment, error)
	SetLearningInPublicDisabled(ctx context.Context, enrollmentID uint, disabled bool) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates the repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) MarkFirstHomeworkScored(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Update("first_homework_scored", true).Error
}

func (r *courseRepository) GetEnrollment(ctx context.Context, id uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return models.Enrollment{}, err
	}

	return enrollment, nil
}

func (r *courseRepository) SetLearningInPublicDisabled(ctx context.Context, enrollmentID uint, disabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ?", enrollmentID).
		Update("disable_learning_in_public", disabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
