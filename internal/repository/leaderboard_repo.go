package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/coursework-engine/internal/models"
)

// LeaderboardRepository aggregates per-enrollment totals and persists ranks.
type LeaderboardRepository interface {
	ListEnrollments(ctx context.Context, courseID uint) ([]models.Enrollment, error)
	SumHomeworkScores(ctx context.Context, courseID uint) (map[uint]int, error)
	SumProjectScores(ctx context.Context, courseID uint) (map[uint]int, error)
	SaveRanks(ctx context.Context, enrollments []models.Enrollment) error
	ListRanked(ctx context.Context, courseID uint) ([]models.Enrollment, error)
}

type leaderboardRepository struct {
	db *gorm.DB
}

// NewLeaderboardRepository instantiates the repository.
func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

type enrollmentTotal struct {
	EnrollmentID uint
	Total        int
}

func (r *leaderboardRepository) ListEnrollments(ctx context.Context, courseID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}

// SumHomeworkScores totals submission scores per enrollment over the
// course's scored homeworks only.
func (r *leaderboardRepository) SumHomeworkScores(ctx context.Context, courseID uint) (map[uint]int, error) {
	var rows []enrollmentTotal
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("submissions.enrollment_id AS enrollment_id, COALESCE(SUM(submissions.total_score), 0) AS total").
		Joins("JOIN homeworks ON homeworks.id = submissions.homework_id").
		Where("homeworks.course_id = ? AND homeworks.state = ?", courseID, models.HomeworkStateScored).
		Group("submissions.enrollment_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	return toTotals(rows), nil
}

// SumProjectScores totals submission scores per enrollment over the
// course's completed projects only.
func (r *leaderboardRepository) SumProjectScores(ctx context.Context, courseID uint) (map[uint]int, error) {
	var rows []enrollmentTotal
	if err := r.db.WithContext(ctx).
		Model(&models.ProjectSubmission{}).
		Select("project_submissions.enrollment_id AS enrollment_id, COALESCE(SUM(project_submissions.total_score), 0) AS total").
		Joins("JOIN projects ON projects.id = project_submissions.project_id").
		Where("projects.course_id = ? AND projects.state = ?", courseID, models.ProjectStateCompleted).
		Group("project_submissions.enrollment_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	return toTotals(rows), nil
}

func toTotals(rows []enrollmentTotal) map[uint]int {
	totals := make(map[uint]int, len(rows))
	for _, row := range rows {
		totals[row.EnrollmentID] = row.Total
	}
	return totals
}

// SaveRanks writes total_score and position_on_leaderboard for every given
// enrollment. Callers run it inside a transaction.
func (r *leaderboardRepository) SaveRanks(ctx context.Context, enrollments []models.Enrollment) error {
	db := r.db.WithContext(ctx)
	for _, enrollment := range enrollments {
		if err := db.Model(&models.Enrollment{}).
			Where("id = ?", enrollment.ID).
			UpdateColumns(map[string]interface{}{
				"total_score":             enrollment.TotalScore,
				"position_on_leaderboard": enrollment.PositionOnLeaderboard,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListRanked returns enrollments that opted into the public leaderboard,
// best position first.
func (r *leaderboardRepository) ListRanked(ctx context.Context, courseID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND display_on_leaderboard = ?", courseID, true).
		Order("position_on_leaderboard ASC").
		Order("id ASC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}
