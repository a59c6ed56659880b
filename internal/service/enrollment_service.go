package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-engine/internal/dto"
	"github.com/noah-isme/coursework-engine/internal/models"
	"github.com/noah-isme/coursework-engine/internal/repository"
)

// EnrollmentService manages enrollment level scoring switches.
type EnrollmentService interface {
	SetLearningInPublicDisabled(ctx context.Context, enrollmentID uint, disabled bool) (dto.EnrollmentResponse, error)
}

type enrollmentService struct {
	store       repository.Store
	leaderboard LeaderboardRebuilder
	logger      zerolog.Logger
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(store repository.Store, leaderboard LeaderboardRebuilder, logger zerolog.Logger) EnrollmentService {
	return &enrollmentService{
		store:       store,
		leaderboard: leaderboard,
		logger:      logger.With().Str("component", "enrollment_service").Logger(),
	}
}

// SetLearningInPublicDisabled stores the opt-out flag. Disabling also removes
// every learning in public point the enrollment already earned and re-ranks
// the course. Enabling again does not restore points; they come back the next
// time the homework or project is scored.
func (s *enrollmentService) SetLearningInPublicDisabled(ctx context.Context, enrollmentID uint, disabled bool) (dto.EnrollmentResponse, error) {
	tracer := otel.Tracer(tracerPrefix + "enrollment")
	ctx, span := tracer.Start(ctx, "enrollment.learning_in_public")
	span.SetAttributes(
		attribute.Int64("enrollment.id", int64(enrollmentID)),
		attribute.Bool("enrollment.learning_in_public_disabled", disabled),
	)
	defer span.End()

	var enrollment models.Enrollment
	err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		current, err := repos.Courses.GetEnrollment(ctx, enrollmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEnrollmentNotFound
			}
			return err
		}

		if err := repos.Courses.SetLearningInPublicDisabled(ctx, enrollmentID, disabled); err != nil {
			return fmt.Errorf("update enrollment: %w", err)
		}

		if disabled {
			if err := s.clearLearningInPublicScores(ctx, repos, enrollmentID); err != nil {
				return err
			}
			if _, err := s.leaderboard.RebuildWithin(ctx, repos, current.CourseID); err != nil {
				return fmt.Errorf("rebuild leaderboard: %w", err)
			}
		}

		enrollment, err = repos.Courses.GetEnrollment(ctx, enrollmentID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "learning_in_public_update_failed")
		if !errors.Is(err, ErrEnrollmentNotFound) {
			s.logger.Error().Err(err).Uint("enrollment_id", enrollmentID).Msg("failed to update learning in public setting")
		}
		return dto.EnrollmentResponse{}, err
	}

	if disabled {
		s.leaderboard.Invalidate(ctx, enrollment.CourseID)
	}
	s.logger.Info().
		Uint("enrollment_id", enrollmentID).
		Bool("disabled", disabled).
		Msg("learning in public setting updated")

	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *enrollmentService) clearLearningInPublicScores(ctx context.Context, repos repository.Repositories, enrollmentID uint) error {
	homeworkSubmissions, err := repos.Homeworks.ListSubmissionsByEnrollment(ctx, enrollmentID)
	if err != nil {
		return fmt.Errorf("list homework submissions: %w", err)
	}
	for i := range homeworkSubmissions {
		homeworkSubmissions[i].LearningInPublicScore = 0
		homeworkSubmissions[i].RecalculateTotal()
	}
	if err := repos.Homeworks.SaveSubmissionScores(ctx, homeworkSubmissions); err != nil {
		return fmt.Errorf("save homework submissions: %w", err)
	}

	projectSubmissions, err := repos.Projects.ListSubmissionsByEnrollment(ctx, enrollmentID)
	if err != nil {
		return fmt.Errorf("list project submissions: %w", err)
	}
	for i := range projectSubmissions {
		projectSubmissions[i].ProjectLearningInPublicScore = 0
		projectSubmissions[i].PeerReviewLearningInPublicScore = 0
		projectSubmissions[i].RecalculateTotal()
	}
	if err := repos.Projects.SaveSubmissionScores(ctx, projectSubmissions); err != nil {
		return fmt.Errorf("save project submissions: %w", err)
	}

	observeRowsWritten("enrollment_learning_in_public", "submissions", len(homeworkSubmissions))
	observeRowsWritten("enrollment_learning_in_public", "project_submissions", len(projectSubmissions))
	return nil
}
