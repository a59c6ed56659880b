package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-engine/internal/models"
	"github.com/noah-isme/coursework-engine/internal/repository"
)

// minStatisticsValues is the smallest sample that yields statistics.
const minStatisticsValues = 3

// HomeworkStatisticsFields lists the homework submission fields summarised, in display order.
var HomeworkStatisticsFields = []string{
	"questions_score",
	"faq_score",
	"learning_in_public_score",
	"total_score",
	"time_spent_lectures",
	"time_spent_homework",
}

// ProjectStatisticsFields lists the project submission fields summarised, in display order.
var ProjectStatisticsFields = []string{
	"project_score",
	"project_faq_score",
	"project_learning_in_public_score",
	"peer_review_score",
	"peer_review_learning_in_public_score",
	"total_score",
	"time_spent",
}

// StatisticsService computes and caches submission statistics.
type StatisticsService interface {
	HomeworkStatistics(ctx context.Context, homeworkID uint, force bool) (models.HomeworkStatistics, error)
	ProjectStatistics(ctx context.Context, projectID uint, force bool) (models.ProjectStatistics, error)
}

type statisticsService struct {
	store  repository.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewStatisticsService constructs the statistics aggregator.
func NewStatisticsService(store repository.Store, logger zerolog.Logger) StatisticsService {
	return &statisticsService{
		store:  store,
		logger: logger.With().Str("component", "statistics_service").Logger(),
		now:    time.Now,
	}
}

// ComputeFieldStatistics summarises values. Fewer than three values leave
// every statistic nil. Quartiles use the inclusive method: linear
// interpolation at position (n-1)*p of the sorted sample.
func ComputeFieldStatistics(values []float64) models.FieldStatistics {
	if len(values) < minStatisticsValues {
		return models.FieldStatistics{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, value := range sorted {
		sum += value
	}

	return models.FieldStatistics{
		Min:    floatPtr(sorted[0]),
		Max:    floatPtr(sorted[len(sorted)-1]),
		Avg:    floatPtr(sum / float64(len(sorted))),
		Q1:     floatPtr(inclusiveQuantile(sorted, 0.25)),
		Median: floatPtr(inclusiveQuantile(sorted, 0.5)),
		Q3:     floatPtr(inclusiveQuantile(sorted, 0.75)),
	}
}

func inclusiveQuantile(sorted []float64, p float64) float64 {
	position := float64(len(sorted)-1) * p
	lower := int(math.Floor(position))
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	fraction := position - float64(lower)
	return sorted[lower] + fraction*(sorted[lower+1]-sorted[lower])
}

func floatPtr(value float64) *float64 {
	return &value
}

type fieldSamples map[string][]float64

func (f fieldSamples) add(field string, value float64) {
	f[field] = append(f[field], value)
}

func (f fieldSamples) addOptional(field string, value *float64) {
	if value != nil {
		f.add(field, *value)
	}
}

func (f fieldSamples) summarise(fields []string) map[string]models.FieldStatistics {
	result := make(map[string]models.FieldStatistics, len(fields))
	for _, field := range fields {
		result[field] = ComputeFieldStatistics(f[field])
	}
	return result
}

// SummariseHomeworkSubmissions computes the statistics of every homework field.
func SummariseHomeworkSubmissions(submissions []models.Submission) map[string]models.FieldStatistics {
	samples := fieldSamples{}
	for _, submission := range submissions {
		samples.add("questions_score", float64(submission.QuestionsScore))
		samples.add("faq_score", float64(submission.FAQScore))
		samples.add("learning_in_public_score", float64(submission.LearningInPublicScore))
		samples.add("total_score", float64(submission.TotalScore))
		samples.addOptional("time_spent_lectures", submission.TimeSpentLectures)
		samples.addOptional("time_spent_homework", submission.TimeSpentHomework)
	}
	return samples.summarise(HomeworkStatisticsFields)
}

// SummariseProjectSubmissions computes the statistics of every project field.
func SummariseProjectSubmissions(submissions []models.ProjectSubmission) map[string]models.FieldStatistics {
	samples := fieldSamples{}
	for _, submission := range submissions {
		samples.add("project_score", float64(submission.ProjectScore))
		samples.add("project_faq_score", float64(submission.ProjectFAQScore))
		samples.add("project_learning_in_public_score", float64(submission.ProjectLearningInPublicScore))
		samples.add("peer_review_score", float64(submission.PeerReviewScore))
		samples.add("peer_review_learning_in_public_score", float64(submission.PeerReviewLearningInPublicScore))
		samples.add("total_score", float64(submission.TotalScore))
		samples.addOptional("time_spent", submission.TimeSpent)
	}
	return samples.summarise(ProjectStatisticsFields)
}

func (s *statisticsService) HomeworkStatistics(ctx context.Context, homeworkID uint, force bool) (models.HomeworkStatistics, error) {
	tracer := otel.Tracer(tracerPrefix + "statistics")
	ctx, span := tracer.Start(ctx, "statistics.homework")
	span.SetAttributes(
		attribute.Int64("homework.id", int64(homeworkID)),
		attribute.Bool("statistics.force", force),
	)
	defer span.End()

	var stats models.HomeworkStatistics
	err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		homework, err := repos.Homeworks.GetByID(ctx, homeworkID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHomeworkNotFound
			}
			return err
		}
		if !homework.IsScored() {
			return fmt.Errorf("%w: homework %s is not scored", ErrStatisticsUnavailable, homework)
		}

		existing, err := repos.Statistics.GetHomeworkStatistics(ctx, homeworkID)
		switch {
		case err == nil && !force:
			stats = existing
			return nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		submissions, err := repos.Homeworks.ListSubmissions(ctx, homeworkID)
		if err != nil {
			return fmt.Errorf("list submissions: %w", err)
		}

		stats = models.HomeworkStatistics{
			HomeworkID:       homeworkID,
			TotalSubmissions: len(submissions),
			CreatedAt:        existing.CreatedAt,
			UpdatedAt:        s.now(),
		}
		stats.SetFieldStatistics(SummariseHomeworkSubmissions(submissions))
		if err := repos.Statistics.SaveHomeworkStatistics(ctx, &stats); err != nil {
			return fmt.Errorf("save homework statistics: %w", err)
		}

		s.logger.Info().Uint("homework_id", homeworkID).Int("submissions", len(submissions)).Msg("homework statistics computed")
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "homework_statistics_failed")
		return models.HomeworkStatistics{}, err
	}

	return stats, nil
}

func (s *statisticsService) ProjectStatistics(ctx context.Context, projectID uint, force bool) (models.ProjectStatistics, error) {
	tracer := otel.Tracer(tracerPrefix + "statistics")
	ctx, span := tracer.Start(ctx, "statistics.project")
	span.SetAttributes(
		attribute.Int64("project.id", int64(projectID)),
		attribute.Bool("statistics.force", force),
	)
	defer span.End()

	var stats models.ProjectStatistics
	err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		project, err := repos.Projects.GetByID(ctx, projectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}
		if project.State != models.ProjectStateCompleted {
			return fmt.Errorf("%w: project %s is not completed", ErrStatisticsUnavailable, project.Title)
		}

		existing, err := repos.Statistics.GetProjectStatistics(ctx, projectID)
		switch {
		case err == nil && !force:
			stats = existing
			return nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		submissions, err := repos.Projects.ListSubmissions(ctx, projectID)
		if err != nil {
			return fmt.Errorf("list submissions: %w", err)
		}

		stats = models.ProjectStatistics{
			ProjectID:        projectID,
			TotalSubmissions: len(submissions),
			CreatedAt:        existing.CreatedAt,
			UpdatedAt:        s.now(),
		}
		stats.SetFieldStatistics(SummariseProjectSubmissions(submissions))
		if err := repos.Statistics.SaveProjectStatistics(ctx, &stats); err != nil {
			return fmt.Errorf("save project statistics: %w", err)
		}

		s.logger.Info().Uint("project_id", projectID).Int("submissions", len(submissions)).Msg("project statistics computed")
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "project_statistics_failed")
		return models.ProjectStatistics{}, err
	}

	return stats, nil
}
