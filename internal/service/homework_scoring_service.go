package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-engine/internal/models"
	"github.com/noah-isme/coursework-engine/internal/repository"
)

// minFAQContributionLength is the trimmed length a FAQ contribution needs to earn its point.
const minFAQContributionLength = 5

// HomeworkScoringService grades homework submissions.
type HomeworkScoringService interface {
	Score(ctx context.Context, homeworkID uint) (ActionResult, error)
	FillCorrectAnswers(ctx context.Context, homeworkID uint) (ActionResult, error)
}

type homeworkScoringService struct {
	store       repository.Store
	leaderboard LeaderboardRebuilder
	events      EventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewHomeworkScoringService constructs the grader.
func NewHomeworkScoringService(store repository.Store, leaderboard LeaderboardRebuilder, events EventPublisher, logger zerolog.Logger) HomeworkScoringService {
	if events == nil {
		events = noopEventPublisher{}
	}
	return &homeworkScoringService{
		store:       store,
		leaderboard: leaderboard,
		events:      events,
		logger:      logger.With().Str("component", "homework_scoring_service").Logger(),
		now:         time.Now,
	}
}

// HomeworkScoringOutcome holds the rows changed by ScoreHomeworkSubmissions.
type HomeworkScoringOutcome struct {
	Submissions []models.Submission
	Answers     []models.Answer
}

// ScoreHomeworkSubmissions evaluates every answer and derives the score
// components of every submission. Inputs are copied, not mutated.
func ScoreHomeworkSubmissions(homework models.Homework, questions []models.Question, submissions []models.Submission, answers []models.Answer) (HomeworkScoringOutcome, error) {
	questionByID := make(map[uint]models.Question, len(questions))
	for _, question := range questions {
		questionByID[question.ID] = question
	}

	answersBySubmission := make(map[uint][]int, len(submissions))
	scoredAnswers := make([]models.Answer, len(answers))
	copy(scoredAnswers, answers)
	for i, answer := range scoredAnswers {
		answersBySubmission[answer.SubmissionID] = append(answersBySubmission[answer.SubmissionID], i)
	}

	scoredSubmissions := make([]models.Submission, len(submissions))
	copy(scoredSubmissions, submissions)

	for i := range scoredSubmissions {
		submission := &scoredSubmissions[i]

		questionsScore := 0
		for _, index := range answersBySubmission[submission.ID] {
			answer := &scoredAnswers[index]
			question, ok := questionByID[answer.QuestionID]
			if !ok {
				answer.IsCorrect = false
				continue
			}

			correct, err := EvaluateAnswer(question, answer.AnswerText)
			if err != nil {
				return HomeworkScoringOutcome{}, fmt.Errorf("evaluate answer %d of question %d: %w", answer.ID, question.ID, err)
			}
			answer.IsCorrect = correct
			if correct {
				questionsScore += question.ScoresForCorrectAnswer
			}
		}

		submission.QuestionsScore = questionsScore
		submission.FAQScore = faqScore(submission.FAQContribution)
		submission.LearningInPublicScore = learningInPublicScore(
			len(submission.LearningInPublicLinkList()),
			homework.LearningInPublicCap,
			submission.Enrollment.DisableLearningInPublic,
		)
		submission.RecalculateTotal()
	}

	return HomeworkScoringOutcome{Submissions: scoredSubmissions, Answers: scoredAnswers}, nil
}

func faqScore(contribution string) int {
	if utf8.RuneCountInString(strings.TrimSpace(contribution)) >= minFAQContributionLength {
		return 1
	}
	return 0
}

func learningInPublicScore(links, limit int, disabled bool) int {
	if disabled || limit <= 0 {
		return 0
	}
	if links > limit {
		return limit
	}
	return links
}

func (s *homeworkScoringService) Score(ctx context.Context, homeworkID uint) (result ActionResult, err error) {
	tracer := otel.Tracer(tracerPrefix + "homework_scoring")
	ctx, span := tracer.Start(ctx, "homework.score")
	span.SetAttributes(attribute.Int64("homework.id", int64(homeworkID)))
	defer span.End()

	started := s.now()
	defer func() { observeOperation("homework_score", started, result, err) }()

	var (
		homework models.Homework
		scored   int
	)
	txErr := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		var err error
		homework, err = repos.Homeworks.GetByID(ctx, homeworkID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHomeworkNotFound
			}
			return err
		}

		if !homework.IsPastDue(s.now()) {
			return rejectWith(failed("The due date for %s is in the future. Update the due date to score.", homework))
		}
		switch homework.State {
		case models.HomeworkStateClosed:
			return rejectWith(failed("Homework %s is closed and cannot be scored.", homework))
		case models.HomeworkStateScored:
			return rejectWith(failed("Homework %s is already scored.", homework))
		}

		questions, err := repos.Homeworks.ListQuestions(ctx, homeworkID)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		submissions, err := repos.Homeworks.ListSubmissions(ctx, homeworkID)
		if err != nil {
			return fmt.Errorf("list submissions: %w", err)
		}
		answers, err := repos.Homeworks.ListAnswers(ctx, homeworkID)
		if err != nil {
			return fmt.Errorf("list answers: %w", err)
		}

		outcome, err := ScoreHomeworkSubmissions(homework, questions, submissions, answers)
		if err != nil {
			return err
		}

		if err := repos.Homeworks.SaveAnswers(ctx, outcome.Answers); err != nil {
			return fmt.Errorf("save answers: %w", err)
		}
		if err := repos.Homeworks.SaveSubmissionScores(ctx, outcome.Submissions); err != nil {
			return fmt.Errorf("save submission scores: %w", err)
		}
		observeRowsWritten("homework_score", "answers", len(outcome.Answers))
		observeRowsWritten("homework_score", "submissions", len(outcome.Submissions))

		if err := repos.Homeworks.UpdateState(ctx, homeworkID, models.HomeworkStateScored); err != nil {
			return fmt.Errorf("update homework state: %w", err)
		}
		if err := repos.Courses.MarkFirstHomeworkScored(ctx, homework.CourseID); err != nil {
			return fmt.Errorf("mark first homework scored: %w", err)
		}
		if _, err := s.leaderboard.RebuildWithin(ctx, repos, homework.CourseID); err != nil {
			return fmt.Errorf("rebuild leaderboard: %w", err)
		}

		scored = len(outcome.Submissions)
		return nil
	})

	result, err = resolveOutcome(succeeded("Homework %s is scored", homework), txErr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "homework_scoring_failed")
		if !errors.Is(err, ErrHomeworkNotFound) {
			s.logger.Error().Err(err).Uint("homework_id", homeworkID).Msg("homework scoring failed")
		}
		return ActionResult{}, err
	}
	if !result.OK() {
		span.SetAttributes(attribute.String("homework.rejected", result.Message))
		s.logger.Warn().Uint("homework_id", homeworkID).Str("reason", result.Message).Msg("homework scoring rejected")
		return result, nil
	}

	s.leaderboard.Invalidate(ctx, homework.CourseID)
	span.SetAttributes(attribute.Int("homework.submissions_scored", scored))
	s.logger.Info().Uint("homework_id", homeworkID).Int("submissions", scored).Msg("homework scored")
	s.events.Publish(ctx, EventHomeworkScored, map[string]interface{}{
		"homework_id": homeworkID,
		"course_id":   homework.CourseID,
		"submissions": scored,
	})

	return result, nil
}

// MostCommonAnswers picks, per question without a correct answer, the answer
// given most often. Choice answers are compared as index sets; free-form
// answers case-insensitively after trimming. Ties go to the smallest
// normalised answer. Questions that already have a correct answer, or accept
// any answer, are absent from the result.
func MostCommonAnswers(questions []models.Question, answers []models.Answer) map[uint]string {
	pending := make(map[uint]models.Question)
	for _, question := range questions {
		if strings.TrimSpace(question.CorrectAnswer) != "" || question.AnswerType == models.AnswerTypeAny {
			continue
		}
		pending[question.ID] = question
	}

	counts := make(map[uint]map[string]int)
	for _, answer := range answers {
		question, ok := pending[answer.QuestionID]
		if !ok {
			continue
		}
		normalized := normalizeAnswer(question, answer.AnswerText)
		if normalized == "" {
			continue
		}
		if counts[question.ID] == nil {
			counts[question.ID] = make(map[string]int)
		}
		counts[question.ID][normalized]++
	}

	result := make(map[uint]string, len(counts))
	for questionID, tally := range counts {
		best, bestCount := "", 0
		for candidate, count := range tally {
			if count > bestCount || (count == bestCount && candidate < best) {
				best, bestCount = candidate, count
			}
		}
		result[questionID] = best
	}

	return result
}

func normalizeAnswer(question models.Question, answer string) string {
	if !question.IsChoice() {
		return strings.ToLower(strings.TrimSpace(answer))
	}

	selected := models.ParseIndexSet(answer)
	indices := make([]int, 0, len(selected))
	for index := range selected {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	parts := make([]string, len(indices))
	for i, index := range indices {
		parts[i] = strconv.Itoa(index)
	}
	return strings.Join(parts, ",")
}

func (s *homeworkScoringService) FillCorrectAnswers(ctx context.Context, homeworkID uint) (result ActionResult, err error) {
	tracer := otel.Tracer(tracerPrefix + "homework_scoring")
	ctx, span := tracer.Start(ctx, "homework.fill_correct_answers")
	span.SetAttributes(attribute.Int64("homework.id", int64(homeworkID)))
	defer span.End()

	started := s.now()
	defer func() { observeOperation("homework_fill_correct_answers", started, result, err) }()

	var (
		homework models.Homework
		filled   int
	)
	txErr := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		var err error
		homework, err = repos.Homeworks.GetByID(ctx, homeworkID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHomeworkNotFound
			}
			return err
		}
		if homework.IsScored() {
			return rejectWith(failed("Homework %s is already scored.", homework))
		}

		questions, err := repos.Homeworks.ListQuestions(ctx, homeworkID)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		answers, err := repos.Homeworks.ListAnswers(ctx, homeworkID)
		if err != nil {
			return fmt.Errorf("list answers: %w", err)
		}

		mostCommon := MostCommonAnswers(questions, answers)
		updated := make([]models.Question, 0, len(mostCommon))
		for _, question := range questions {
			answer, ok := mostCommon[question.ID]
			if !ok {
				continue
			}
			question.CorrectAnswer = answer
			updated = append(updated, question)
		}

		if err := repos.Homeworks.UpdateCorrectAnswers(ctx, updated); err != nil {
			return fmt.Errorf("update correct answers: %w", err)
		}
		filled = len(updated)
		return nil
	})

	result, err = resolveOutcome(succeeded("Filled correct answers for %d question(s) of %s", filled, homework), txErr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fill_correct_answers_failed")
		return ActionResult{}, err
	}
	if !result.OK() {
		s.logger.Warn().Uint("homework_id", homeworkID).Str("reason", result.Message).Msg("fill correct answers rejected")
		return result, nil
	}

	s.logger.Info().Uint("homework_id", homeworkID).Int("questions", filled).Msg("correct answers filled")
	return result, nil
}
