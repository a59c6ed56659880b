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

	"github.com/noah-isme/coursework-engine/internal/models"
	"github.com/noah-isme/coursework-engine/internal/repository"
)

// ProjectScoringService turns peer reviews into project scores.
type ProjectScoringService interface {
	Score(ctx context.Context, projectID uint) (ActionResult, error)
}

type projectScoringService struct {
	store       repository.Store
	validator   *validator.Validate
	leaderboard LeaderboardRebuilder
	events      EventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewProjectScoringService constructs the consensus scoring engine.
func NewProjectScoringService(store repository.Store, validate *validator.Validate, leaderboard LeaderboardRebuilder, events EventPublisher, logger zerolog.Logger) ProjectScoringService {
	if events == nil {
		events = noopEventPublisher{}
	}
	return &projectScoringService{
		store:       store,
		validator:   validate,
		leaderboard: leaderboard,
		events:      events,
		logger:      logger.With().Str("component", "project_scoring_service").Logger(),
		now:         time.Now,
	}
}

// ProjectScoringInput is everything needed to score one project.
type ProjectScoringInput struct {
	Project     models.Project
	Submissions []models.ProjectSubmission
	Criteria    []CriteriaRubric
	Reviews     []models.PeerReview
	Responses   []models.CriteriaResponse
}

// ProjectScoringOutcome holds the scored submissions and the full set of
// evaluation scores that replaces the stored one.
type ProjectScoringOutcome struct {
	Submissions      []models.ProjectSubmission
	EvaluationScores []models.ProjectEvaluationScore
	Passed           int
}

// ScoreProjectSubmissions computes the five score components, the review
// completion flag and the pass flag of every submission. Only submitted
// reviews are used. Ratings come from optional and mandatory reviews alike,
// while peer review points and completion only count mandatory reviews.
func ScoreProjectSubmissions(input ProjectScoringInput) ProjectScoringOutcome {
	project := input.Project

	responsesByReview := make(map[uint][]models.CriteriaResponse)
	for _, response := range input.Responses {
		responsesByReview[response.ReviewID] = append(responsesByReview[response.ReviewID], response)
	}

	received := make(map[uint][]models.PeerReview)
	performed := make(map[uint][]models.PeerReview)
	for _, review := range input.Reviews {
		if !review.IsSubmitted() {
			continue
		}
		received[review.SubmissionUnderEvaluationID] = append(received[review.SubmissionUnderEvaluationID], review)
		performed[review.ReviewerID] = append(performed[review.ReviewerID], review)
	}

	rubricByID := make(map[uint]CriteriaRubric, len(input.Criteria))
	for _, rubric := range input.Criteria {
		rubricByID[rubric.ID] = rubric
	}

	outcome := ProjectScoringOutcome{
		Submissions:      make([]models.ProjectSubmission, len(input.Submissions)),
		EvaluationScores: make([]models.ProjectEvaluationScore, 0, len(input.Submissions)*len(input.Criteria)),
	}
	copy(outcome.Submissions, input.Submissions)

	for i := range outcome.Submissions {
		submission := &outcome.Submissions[i]
		optedOut := submission.Enrollment.DisableLearningInPublic

		ratings := make(map[uint][]int, len(input.Criteria))
		for _, review := range received[submission.ID] {
			for _, response := range responsesByReview[review.ID] {
				rubric, ok := rubricByID[response.CriteriaID]
				if !ok {
					continue
				}
				if score, ok := ResponseScore(rubric.Options, response.Answer); ok {
					ratings[rubric.ID] = append(ratings[rubric.ID], score)
				}
			}
		}

		projectScore := 0
		for _, rubric := range input.Criteria {
			score := rubric.DefaultScore
			if len(ratings[rubric.ID]) > 0 {
				score = ConsensusScore(ratings[rubric.ID])
			}
			projectScore += score
			outcome.EvaluationScores = append(outcome.EvaluationScores, models.ProjectEvaluationScore{
				SubmissionID:     submission.ID,
				ReviewCriteriaID: rubric.ID,
				Score:            score,
			})
		}

		mandatory := 0
		reviewLearningInPublic := 0
		for _, review := range performed[submission.ID] {
			if !review.Optional {
				mandatory++
			}
			reviewLearningInPublic += learningInPublicScore(
				len(review.LearningInPublicLinkList()),
				project.LearningInPublicCapReview,
				optedOut,
			)
		}

		submission.ProjectScore = projectScore
		submission.ProjectFAQScore = faqScore(submission.FAQContribution)
		submission.ProjectLearningInPublicScore = learningInPublicScore(
			len(submission.LearningInPublicLinkList()),
			project.LearningInPublicCapProject,
			optedOut,
		)
		submission.PeerReviewScore = mandatory * project.PointsForPeerReview
		submission.PeerReviewLearningInPublicScore = reviewLearningInPublic
		submission.RecalculateTotal()

		submission.ReviewedEnoughPeers = mandatory >= project.NumberOfPeersToEvaluate
		submission.Passed = submission.ProjectScore >= project.PointsToPass && submission.ReviewedEnoughPeers
		if submission.Passed {
			outcome.Passed++
		}
	}

	return outcome
}

func (s *projectScoringService) Score(ctx context.Context, projectID uint) (result ActionResult, err error) {
	tracer := otel.Tracer(tracerPrefix + "project_scoring")
	ctx, span := tracer.Start(ctx, "project.score")
	span.SetAttributes(attribute.Int64("project.id", int64(projectID)))
	defer span.End()

	started := s.now()
	defer func() { observeOperation("project_score", started, result, err) }()

	var (
		project models.Project
		outcome ProjectScoringOutcome
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

		if project.PointsToPass == 0 {
			return rejectWith(failed("Project %s has no points to pass configured. Set points to pass before scoring.", project.Title))
		}
		if project.State != models.ProjectStatePeerReviewing {
			return rejectWith(failed("Project %s is not in peer reviewing, so it cannot be scored.", project.Title))
		}
		if project.PeerReviewDueDate.After(s.now()) {
			return rejectWith(failed("The peer review due date of %s is in the future. Update the due date to score.", project.Title))
		}

		reviewCount, err := repos.PeerReviews.CountByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("count peer reviews: %w", err)
		}
		if reviewCount == 0 {
			return rejectWith(failed("Project %s has no peer reviews to score.", project.Title))
		}

		criteria, err := repos.Projects.ListCriteria(ctx, project.CourseID)
		if err != nil {
			return fmt.Errorf("list review criteria: %w", err)
		}
		rubrics := make([]CriteriaRubric, 0, len(criteria))
		for _, item := range criteria {
			rubric, err := BuildCriteriaRubric(item, s.validator)
			if errors.Is(err, ErrInvalidCriteriaOptions) {
				return rejectWith(failed("Review criteria %q of %s has invalid options: %v", item.Description, project.Title, err))
			}
			if err != nil {
				return err
			}
			rubrics = append(rubrics, rubric)
		}

		submissions, err := repos.Projects.ListSubmissions(ctx, projectID)
		if err != nil {
			return fmt.Errorf("list submissions: %w", err)
		}
		reviews, err := repos.PeerReviews.ListByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("list peer reviews: %w", err)
		}
		submittedIDs := make([]uint, 0, len(reviews))
		for _, review := range reviews {
			if review.IsSubmitted() {
				submittedIDs = append(submittedIDs, review.ID)
			}
		}
		responses, err := repos.PeerReviews.ListResponses(ctx, submittedIDs)
		if err != nil {
			return fmt.Errorf("list criteria responses: %w", err)
		}

		outcome = ScoreProjectSubmissions(ProjectScoringInput{
			Project:     project,
			Submissions: submissions,
			Criteria:    rubrics,
			Reviews:     reviews,
			Responses:   responses,
		})

		if err := repos.Projects.SaveSubmissionScores(ctx, outcome.Submissions); err != nil {
			return fmt.Errorf("save submission scores: %w", err)
		}
		if err := repos.Projects.ReplaceEvaluationScores(ctx, projectID, outcome.EvaluationScores); err != nil {
			return fmt.Errorf("replace evaluation scores: %w", err)
		}
		observeRowsWritten("project_score", "project_submissions", len(outcome.Submissions))
		observeRowsWritten("project_score", "project_evaluation_scores", len(outcome.EvaluationScores))

		if err := repos.Projects.UpdateState(ctx, projectID, models.ProjectStateCompleted); err != nil {
			return fmt.Errorf("update project state: %w", err)
		}
		if _, err := s.leaderboard.RebuildWithin(ctx, repos, project.CourseID); err != nil {
			return fmt.Errorf("rebuild leaderboard: %w", err)
		}
		return nil
	})

	total := len(outcome.Submissions)
	ratio := 0.0
	if total > 0 {
		ratio = float64(outcome.Passed) / float64(total) * 100
	}

	result, err = resolveOutcome(succeeded("Project %s scored: %d/%d passed (%.1f%%)", project.Title, outcome.Passed, total, ratio), txErr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "project_scoring_failed")
		if !errors.Is(err, ErrProjectNotFound) {
			s.logger.Error().Err(err).Uint("project_id", projectID).Msg("project scoring failed")
		}
		return ActionResult{}, err
	}
	if !result.OK() {
		s.logger.Warn().Uint("project_id", projectID).Str("reason", result.Message).Msg("project scoring rejected")
		return result, nil
	}

	s.leaderboard.Invalidate(ctx, project.CourseID)
	span.SetAttributes(
		attribute.Int("project.submissions", total),
		attribute.Int("project.passed", outcome.Passed),
	)
	s.logger.Info().
		Uint("project_id", projectID).
		Int("submissions", total).
		Int("passed", outcome.Passed).
		Msg("project scored")
	s.events.Publish(ctx, EventProjectCompleted, map[string]interface{}{
		"project_id":  projectID,
		"course_id":   project.CourseID,
		"submissions": total,
		"passed":      outcome.Passed,
	})

	return result, nil
}
