package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/coursework-engine/internal/models"
)

// StatisticsRepository persists the computed homework and project statistics.
type StatisticsRepository interface {
	GetHomeworkStatistics(ctx context.Context, homeworkID uint) (models.HomeworkStatistics, error)
	SaveHomeworkStatistics(ctx context.Context, stats *models.HomeworkStatistics) error
	GetProjectStatistics(ctx context.Context, projectID uint) (models.ProjectStatistics, error)
	SaveProjectStatistics(ctx context.Context, stats *models.ProjectStatistics) error
}

type statisticsRepository struct {
	db *gorm.DB
}

// NewStatisticsRepository instantiates the repository.
func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) GetHomeworkStatistics(ctx context.Context, homeworkID uint) (models.HomeworkStatistics, error) {
	var stats models.HomeworkStatistics
	if err := r.db.WithContext(ctx).Where("homework_id = ?", homeworkID).First(&stats).Error; err != nil {
		return models.HomeworkStatistics{}, err
	}

	return stats, nil
}

// SaveHomeworkStatistics upserts the row keyed by homework.
func (r *statisticsRepository) SaveHomeworkStatistics(ctx context.Context, stats *models.HomeworkStatistics) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "homework_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_submissions", "fields", "updated_at"}),
		}).
		Create(stats).Error
}

func (r *statisticsRepository) GetProjectStatistics(ctx context.Context, projectID uint) (models.ProjectStatistics, error) {
	var stats models.ProjectStatistics
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&stats).Error; err != nil {
		return models.ProjectStatistics{}, err
	}

	return stats, nil
}

// SaveProjectStatistics upserts the row keyed by project.
func (r *statisticsRepository) SaveProjectStatistics(ctx context.Context, stats *models.ProjectStatistics) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_submissions", "fields", "updated_at"}),
		}).
		Create(stats).Error
}
