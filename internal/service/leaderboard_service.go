package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-engine/internal/dto"
	"github.com/noah-isme/coursework-engine/internal/models"
	"github.com/noah-isme/coursework-engine/internal/observability"
	"github.com/noah-isme/coursework-engine/internal/repository"
)

// LeaderboardRebuilder is the part of the ranker the scoring paths call as
// their final step. RebuildWithin runs inside the caller's transaction and
// Invalidate runs after it commits.
type LeaderboardRebuilder interface {
	RebuildWithin(ctx context.Context, repos repository.Repositories, courseID uint) (int, error)
	Invalidate(ctx context.Context, courseID uint)
}

// LeaderboardService recomputes and serves course leaderboards.
type LeaderboardService interface {
	LeaderboardRebuilder
	Rebuild(ctx context.Context, courseID uint) error
	Get(ctx context.Context, courseID uint) (dto.LeaderboardResponse, error)
}

type leaderboardService struct {
	store  repository.Store
	cache  LeaderboardCache
	events EventPublisher
	logger zerolog.Logger
	now    func() time.Time
}

// NewLeaderboardService constructs the ranker. Nil cache and publisher are
// replaced by no-op implementations.
func NewLeaderboardService(store repository.Store, cache LeaderboardCache, events EventPublisher, logger zerolog.Logger) LeaderboardService {
	if cache == nil {
		cache = noopLeaderboardCache{}
	}
	if events == nil {
		events = noopEventPublisher{}
	}
	return &leaderboardService{
		store:  store,
		cache:  cache,
		events: events,
		logger: logger.With().Str("component", "leaderboard_service").Logger(),
		now:    time.Now,
	}
}

// RankEnrollments sets TotalScore to homework plus project totals and assigns
// positions 1..n ordered by total score descending, then enrollment id
// ascending. The input slice is sorted in place and returned.
func RankEnrollments(enrollments []models.Enrollment, homeworkTotals, projectTotals map[uint]int) []models.Enrollment {
	for i := range enrollments {
		enrollments[i].TotalScore = homeworkTotals[enrollments[i].ID] + projectTotals[enrollments[i].ID]
	}

	sort.SliceStable(enrollments, func(i, j int) bool {
		if enrollments[i].TotalScore != enrollments[j].TotalScore {
			return enrollments[i].TotalScore > enrollments[j].TotalScore
		}
		return enrollments[i].ID < enrollments[j].ID
	})

	for i := range enrollments {
		position := i + 1
		enrollments[i].PositionOnLeaderboard = &position
	}

	return enrollments
}

func (s *leaderboardService) RebuildWithin(ctx context.Context, repos repository.Repositories, courseID uint) (int, error) {
	enrollments, err := repos.Leaderboard.ListEnrollments(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("list enrollments: %w", err)
	}

	homeworkTotals, err := repos.Leaderboard.SumHomeworkScores(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("sum homework scores: %w", err)
	}

	projectTotals, err := repos.Leaderboard.SumProjectScores(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("sum project scores: %w", err)
	}

	ranked := RankEnrollments(enrollments, homeworkTotals, projectTotals)
	if err := repos.Leaderboard.SaveRanks(ctx, ranked); err != nil {
		return 0, fmt.Errorf("save ranks: %w", err)
	}
	observeRowsWritten("leaderboard_rebuild", "enrollments", len(ranked))

	return len(ranked), nil
}

func (s *leaderboardService) Invalidate(ctx context.Context, courseID uint) {
	if err := s.cache.Invalidate(ctx, courseID); err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate leaderboard cache")
	}
}

func (s *leaderboardService) Rebuild(ctx context.Context, courseID uint) (err error) {
	tracer := otel.Tracer(tracerPrefix + "leaderboard")
	ctx, span := tracer.Start(ctx, "leaderboard.rebuild")
	span.SetAttributes(attribute.Int64("leaderboard.course_id", int64(courseID)))
	defer span.End()

	started := s.now()
	defer func() {
		observeOperation("leaderboard_rebuild", started, ActionResult{Status: ActionStatusOK}, err)
	}()

	var ranked int
	err = s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Courses.GetByID(ctx, courseID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return err
		}

		count, err := s.RebuildWithin(ctx, repos, courseID)
		ranked = count
		return err
	})
	s.Invalidate(ctx, courseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "leaderboard_rebuild_failed")
		if !errors.Is(err, ErrCourseNotFound) {
			s.logger.Error().Err(err).Uint("course_id", courseID).Msg("leaderboard rebuild failed")
		}
		return err
	}

	span.SetAttributes(attribute.Int("leaderboard.enrollments", ranked))
	s.logger.Info().Uint("course_id", courseID).Int("enrollments", ranked).Msg("leaderboard rebuilt")
	s.events.Publish(ctx, EventLeaderboardRebuilt, map[string]interface{}{
		"course_id":   courseID,
		"enrollments": ranked,
	})

	return nil
}

func (s *leaderboardService) Get(ctx context.Context, courseID uint) (dto.LeaderboardResponse, error) {
	cached, ok, err := s.cache.Get(ctx, courseID)
	switch {
	case err != nil:
		observability.LeaderboardCacheLookups().WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to read leaderboard cache")
	case ok:
		observability.LeaderboardCacheLookups().WithLabelValues("hit").Inc()
		return cached, nil
	default:
		observability.LeaderboardCacheLookups().WithLabelValues("miss").Inc()
	}

	repos := s.store.Repositories()
	if _, err := repos.Courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LeaderboardResponse{}, ErrCourseNotFound
		}
		return dto.LeaderboardResponse{}, err
	}

	enrollments, err := repos.Leaderboard.ListRanked(ctx, courseID)
	if err != nil {
		return dto.LeaderboardResponse{}, err
	}

	view := dto.NewLeaderboardResponse(courseID, enrollments, s.now().UTC())
	if err := s.cache.Set(ctx, courseID, view); err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to store leaderboard cache")
	}

	return view, nil
}
