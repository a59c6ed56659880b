package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-engine/internal/dto"
	"github.com/noah-isme/coursework-engine/internal/models"
	"github.com/noah-isme/coursework-engine/internal/repository"
)

// PeerReviewAssignmentService moves projects into peer review.
type PeerReviewAssignmentService interface {
	Assign(ctx context.Context, projectID uint, seed int64) (ActionResult, error)
	AddOptionalReview(ctx context.Context, projectID uint, payload dto.OptionalReviewRequest) (dto.PeerReviewResponse, error)
}

type peerReviewAssignmentService struct {
	store     repository.Store
	validator *validator.Validate
	events    EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPeerReviewAssignmentService constructs the assignment engine.
func NewPeerReviewAssignmentService(store repository.Store, validate *validator.Validate, events EventPublisher, logger zerolog.Logger) PeerReviewAssignmentService {
	if events == nil {
		events = noopEventPublisher{}
	}
	return &peerReviewAssignmentService{
		store:     store,
		validator: validate,
		events:    events,
		logger:    logger.With().Str("component", "peer_review_assignment_service").Logger(),
		now:       time.Now,
	}
}

func (s *peerReviewAssignmentService) Assign(ctx context.Context, projectID uint, seed int64) (result ActionResult, err error) {
	tracer := otel.Tracer(tracerPrefix + "peer_review_assignment")
	ctx, span := tracer.Start(ctx, "project.assign_reviews")
	span.SetAttributes(
		attribute.Int64("project.id", int64(projectID)),
		attribute.Int64("assignment.seed", seed),
	)
	defer span.End()

	started := s.now()
	defer func() { observeOperation("project_assign_reviews", started, result, err) }()

	var (
		project  models.Project
		assigned int
	)
	txErr := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		var err error
		project, err = repos.Projects.GetByID(ctx, projectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}

		if project.State != models.ProjectStateCollectingSubmissions {
			return rejectWith(failed("Project %s is not collecting submissions, so peer reviews cannot be assigned.", project.Title))
		}
		if project.SubmissionDueDate.After(s.now()) {
			return rejectWith(failed("The submission due date of %s is in the future. Update the due date to assign peer reviews.", project.Title))
		}

		submissions, err := repos.Projects.ListSubmissions(ctx, projectID)
		if err != nil {
			return fmt.Errorf("list submissions: %w", err)
		}

		required := project.NumberOfPeersToEvaluate
		if len(submissions) <= required {
			return rejectWith(failed("Not enough submissions to assign %d peer reviews each: %s has %d.", required, project.Title, len(submissions)))
		}

		ids := make([]uint, len(submissions))
		for i, submission := range submissions {
			ids[i] = submission.ID
		}

		pairs, err := SelectRandomAssignment(ids, required, seed)
		if err != nil {
			return fmt.Errorf("select assignment: %w", err)
		}

		reviews := make([]models.PeerReview, len(pairs))
		for i, pair := range pairs {
			reviews[i] = models.PeerReview{
				ReviewerID:                  pair.ReviewerID,
				SubmissionUnderEvaluationID: pair.RevieweeID,
				State:                       models.PeerReviewStateToReview,
				Optional:                    false,
			}
		}

		if err := repos.PeerReviews.CreateBatch(ctx, reviews); err != nil {
			return fmt.Errorf("create peer reviews: %w", err)
		}
		observeRowsWritten("project_assign_reviews", "peer_reviews", len(reviews))

		if err := repos.Projects.UpdateState(ctx, projectID, models.ProjectStatePeerReviewing); err != nil {
			return fmt.Errorf("update project state: %w", err)
		}

		assigned = len(reviews)
		return nil
	})

	result, err = resolveOutcome(succeeded("Peer reviews assigned for project %s and state updated to peer reviewing.", project.Title), txErr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assignment_failed")
		if !errors.Is(err, ErrProjectNotFound) {
			s.logger.Error().Err(err).Uint("project_id", projectID).Msg("peer review assignment failed")
		}
		return ActionResult{}, err
	}
	if !result.OK() {
		s.logger.Warn().Uint("project_id", projectID).Str("reason", result.Message).Msg("peer review assignment rejected")
		return result, nil
	}

	span.SetAttributes(attribute.Int("assignment.reviews", assigned))
	s.logger.Info().Uint("project_id", projectID).Int("reviews", assigned).Int64("seed", seed).Msg("peer reviews assigned")
	s.events.Publish(ctx, EventProjectReviewsAssigned, map[string]interface{}{
		"project_id": projectID,
		"course_id":  project.CourseID,
		"reviews":    assigned,
		"seed":       seed,
	})

	return result, nil
}

func (s *peerReviewAssignmentService) AddOptionalReview(ctx context.Context, projectID uint, payload dto.OptionalReviewRequest) (dto.PeerReviewResponse, error) {
	tracer := otel.Tracer(tracerPrefix + "peer_review_assignment")
	ctx, span := tracer.Start(ctx, "project.add_optional_review")
	span.SetAttributes(
		attribute.Int64("project.id", int64(projectID)),
		attribute.Int64("review.reviewer_id", int64(payload.ReviewerSubmissionID)),
		attribute.Int64("review.reviewee_id", int64(payload.SubmissionUnderEvaluationID)),
	)
	defer span.End()

	if payload.ReviewerSubmissionID != 0 && payload.ReviewerSubmissionID == payload.SubmissionUnderEvaluationID {
		span.SetStatus(codes.Error, "self_review")
		return dto.PeerReviewResponse{}, ErrSelfReview
	}
	if s.validator != nil {
		if err := s.validator.Struct(payload); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation_failed")
			return dto.PeerReviewResponse{}, err
		}
	}

	var review models.PeerReview
	err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		project, err := repos.Projects.GetByID(ctx, projectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}
		if project.State != models.ProjectStatePeerReviewing {
			return ErrReviewWindowClosed
		}

		for _, id := range []uint{payload.ReviewerSubmissionID, payload.SubmissionUnderEvaluationID} {
			submission, err := repos.Projects.GetSubmission(ctx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrSubmissionNotFound
				}
				return err
			}
			if submission.ProjectID != projectID {
				return ErrCrossProjectReview
			}
		}

		exists, err := repos.PeerReviews.Exists(ctx, payload.ReviewerSubmissionID, payload.SubmissionUnderEvaluationID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateReview
		}

		review = models.PeerReview{
			ReviewerID:                  payload.ReviewerSubmissionID,
			SubmissionUnderEvaluationID: payload.SubmissionUnderEvaluationID,
			Optional:                    true,
			State:                       models.PeerReviewStateToReview,
		}
		return repos.PeerReviews.Create(ctx, &review)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "optional_review_failed")
		return dto.PeerReviewResponse{}, err
	}

	s.logger.Info().
		Uint("project_id", projectID).
		Uint("review_id", review.ID).
		Msg("optional peer review added")

	return dto.NewPeerReviewResponse(review), nil
}
