package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-engine/internal/models"
	"github.com/noah-isme/coursework-engine/internal/repository"
)

type homeworkFixture struct {
	db          *gorm.DB
	course      models.Course
	enrollments []models.Enrollment
	homework    models.Homework
	questions   []models.Question
	submissions []models.Submission
	service     *homeworkScoringService
	events      *recordingPublisher
}

func newHomeworkFixture(t *testing.T, due time.Time) *homeworkFixture {
	t.Helper()

	db := setupEngineDB(t)
	course := seedCourse(t, db)
	enrollments := seedEnrollments(t, db, course, 3)
	require.NoError(t, db.Model(&enrollments[2]).Update("disable_learning_in_public", true).Error)

	homework := seedHomework(t, db, course, due)

	questions := []models.Question{
		{HomeworkID: homework.ID, Text: "Pick the second", QuestionType: models.QuestionTypeMultipleChoice, CorrectAnswer: "2", ScoresForCorrectAnswer: 1},
		{HomeworkID: homework.ID, Text: "Capital of France", QuestionType: models.QuestionTypeFreeForm, AnswerType: models.AnswerTypeExactString, CorrectAnswer: "Paris", ScoresForCorrectAnswer: 2},
		{HomeworkID: homework.ID, Text: "Odd options", QuestionType: models.QuestionTypeCheckboxes, CorrectAnswer: "1,3", ScoresForCorrectAnswer: 1},
	}
	for i := range questions {
		questions[i].SetPossibleAnswers([]string{"a", "b", "c"})
		require.NoError(t, db.Create(&questions[i]).Error)
	}

	links := func(n int) []string {
		result := make([]string, n)
		for i := range result {
			result[i] = fmt.Sprintf("https://example.com/post/%d", i)
		}
		return result
	}

	sheets := []struct {
		faq     string
		links   int
		answers []string
	}{
		{faq: "How to run docker?", links: 10, answers: []string{"2", "Paris", "1,3"}},
		{faq: "", links: 2, answers: []string{"1", "paris ", "1"}},
		{faq: "abcd", links: 5, answers: []string{"2", "London", "3,1"}},
	}

	submissions := make([]models.Submission, len(sheets))
	for i, sheet := range sheets {
		submissions[i] = models.Submission{
			HomeworkID:      homework.ID,
			EnrollmentID:    enrollments[i].ID,
			HomeworkLink:    "https://github.com/student/hw1",
			FAQContribution: sheet.faq,
		}
		submissions[i].SetLearningInPublicLinks(links(sheet.links))
		require.NoError(t, db.Create(&submissions[i]).Error)

		for q, text := range sheet.answers {
			answer := models.Answer{SubmissionID: submissions[i].ID, QuestionID: questions[q].ID, AnswerText: text}
			require.NoError(t, db.Create(&answer).Error)
		}
	}

	events := &recordingPublisher{}
	store := repository.NewStore(db)
	leaderboard := NewLeaderboardService(store, nil, events, zerolog.Nop())
	service := NewHomeworkScoringService(store, leaderboard, events, zerolog.Nop()).(*homeworkScoringService)
	service.now = func() time.Time { return fixedNow }

	return &homeworkFixture{
		db:          db,
		course:      course,
		enrollments: enrollments,
		homework:    homework,
		questions:   questions,
		submissions: submissions,
		service:     service,
		events:      events,
	}
}

func (f *homeworkFixture) reloadSubmission(t *testing.T, id uint) models.Submission {
	t.Helper()
	var submission models.Submission
	require.NoError(t, f.db.First(&submission, id).Error)
	return submission
}

func (f *homeworkFixture) reloadEnrollment(t *testing.T, id uint) models.Enrollment {
	t.Helper()
	var enrollment models.Enrollment
	require.NoError(t, f.db.First(&enrollment, id).Error)
	return enrollment
}

func TestHomeworkScoringScoresEverySubmission(t *testing.T) {
	f := newHomeworkFixture(t, fixedNow.Add(-time.Hour))

	result, err := f.service.Score(context.Background(), f.homework.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionStatusOK, result.Status)
	assert.Equal(t, "Homework Data Engineering - Homework 1 is scored", result.Message)

	expected := []struct {
		questions, faq, lip, total int
	}{
		{questions: 4, faq: 1, lip: 7, total: 12},
		{questions: 2, faq: 0, lip: 2, total: 4},
		{questions: 2, faq: 0, lip: 0, total: 2},
	}
	for i, want := range expected {
		got := f.reloadSubmission(t, f.submissions[i].ID)
		assert.Equal(t, want.questions, got.QuestionsScore, "questions score of submission %d", i)
		assert.Equal(t, want.faq, got.FAQScore, "faq score of submission %d", i)
		assert.Equal(t, want.lip, got.LearningInPublicScore, "learning in public score of submission %d", i)
		assert.Equal(t, want.total, got.TotalScore, "total of submission %d", i)
	}

	var correct int64
	require.NoError(t, f.db.Model(&models.Answer{}).Where("is_correct = ?", true).Count(&correct).Error)
	assert.Equal(t, int64(6), correct)

	var homework models.Homework
	require.NoError(t, f.db.First(&homework, f.homework.ID).Error)
	assert.Equal(t, models.HomeworkStateScored, homework.State)

	var course models.Course
	require.NoError(t, f.db.First(&course, f.course.ID).Error)
	assert.True(t, course.FirstHomeworkScored)

	for i, position := range []int{1, 2, 3} {
		enrollment := f.reloadEnrollment(t, f.enrollments[i].ID)
		require.NotNil(t, enrollment.PositionOnLeaderboard)
		assert.Equal(t, position, *enrollment.PositionOnLeaderboard)
		assert.Equal(t, expected[i].total, enrollment.TotalScore)
	}

	assert.Equal(t, []string{EventHomeworkScored}, f.events.types())
}

func TestHomeworkScoringRejectsFutureDueDate(t *testing.T) {
	f := newHomeworkFixture(t, fixedNow.Add(time.Hour))

	result, err := f.service.Score(context.Background(), f.homework.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionStatusFail, result.Status)
	assert.Contains(t, result.Message, "is in the future")

	var homework models.Homework
	require.NoError(t, f.db.First(&homework, f.homework.ID).Error)
	assert.Equal(t, models.HomeworkStateOpen, homework.State)
	assert.Zero(t, f.reloadSubmission(t, f.submissions[0].ID).TotalScore)
	assert.Empty(t, f.events.events)
}

func TestHomeworkScoringRejectsClosedHomework(t *testing.T) {
	f := newHomeworkFixture(t, fixedNow.Add(-time.Hour))
	require.NoError(t, f.db.Model(&f.homework).Update("state", models.HomeworkStateClosed).Error)

	result, err := f.service.Score(context.Background(), f.homework.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionStatusFail, result.Status)
	assert.Contains(t, result.Message, "closed")
}

func TestHomeworkScoringSecondRunWritesNothing(t *testing.T) {
	f := newHomeworkFixture(t, fixedNow.Add(-time.Hour))

	first, err := f.service.Score(context.Background(), f.homework.ID)
	require.NoError(t, err)
	require.True(t, first.OK())

	require.NoError(t, f.db.Model(&models.Submission{}).Where("id = ?", f.submissions[1].ID).Update("total_score", 99).Error)

	second, err := f.service.Score(context.Background(), f.homework.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionStatusFail, second.Status)
	assert.Contains(t, second.Message, "already scored")
	assert.Equal(t, 99, f.reloadSubmission(t, f.submissions[1].ID).TotalScore)
	assert.Len(t, f.events.events, 1)
}

func TestHomeworkScoringUnknownHomework(t *testing.T) {
	f := newHomeworkFixture(t, fixedNow.Add(-time.Hour))

	_, err := f.service.Score(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrHomeworkNotFound)
}

func TestHomeworkScoringUnsupportedQuestionRollsBack(t *testing.T) {
	f := newHomeworkFixture(t, fixedNow.Add(-time.Hour))
	require.NoError(t, f.db.Model(&f.questions[0]).Update("question_type", "XX").Error)

	_, err := f.service.Score(context.Background(), f.homework.ID)
	assert.ErrorIs(t, err, ErrUnsupportedQuestionType)

	var homework models.Homework
	require.NoError(t, f.db.First(&homework, f.homework.ID).Error)
	assert.Equal(t, models.HomeworkStateOpen, homework.State)
	assert.Zero(t, f.reloadSubmission(t, f.submissions[0].ID).TotalScore)
}

func TestFillCorrectAnswersUsesMostCommonAnswer(t *testing.T) {
	f := newHomeworkFixture(t, fixedNow.Add(-time.Hour))
	require.NoError(t, f.db.Model(&models.Question{}).Where("homework_id = ?", f.homework.ID).Update("correct_answer", "").Error)

	result, err := f.service.FillCorrectAnswers(context.Background(), f.homework.ID)
	require.NoError(t, err)
	require.True(t, result.OK(), result.Message)

	var questions []models.Question
	require.NoError(t, f.db.Where("homework_id = ?", f.homework.ID).Order("id").Find(&questions).Error)
	assert.Equal(t, "2", questions[0].CorrectAnswer)
	assert.Equal(t, "paris", questions[1].CorrectAnswer)
	assert.Equal(t, "1,3", questions[2].CorrectAnswer)
}

func TestFillCorrectAnswersRejectsScoredHomework(t *testing.T) {
	f := newHomeworkFixture(t, fixedNow.Add(-time.Hour))
	require.NoError(t, f.db.Model(&f.homework).Update("state", models.HomeworkStateScored).Error)

	result, err := f.service.FillCorrectAnswers(context.Background(), f.homework.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionStatusFail, result.Status)
}

func TestMostCommonAnswersBreaksTiesBySmallestAnswer(t *testing.T) {
	questions := []models.Question{
		{ID: 1, QuestionType: models.QuestionTypeMultipleChoice},
		{ID: 2, QuestionType: models.QuestionTypeFreeForm, AnswerType: models.AnswerTypeAny},
		{ID: 3, QuestionType: models.QuestionTypeFreeForm, AnswerType: models.AnswerTypeExactString, CorrectAnswer: "set"},
	}
	answers := []models.Answer{
		{QuestionID: 1, AnswerText: "3"},
		{QuestionID: 1, AnswerText: "2"},
		{QuestionID: 2, AnswerText: "anything"},
		{QuestionID: 3, AnswerText: "other"},
	}

	result := MostCommonAnswers(questions, answers)
	assert.Equal(t, map[uint]string{1: "2"}, result)
}

func TestFAQAndLearningInPublicScores(t *testing.T) {
	assert.Equal(t, 0, faqScore("  abcd  "))
	assert.Equal(t, 1, faqScore("héllo"))
	assert.Equal(t, 7, learningInPublicScore(12, 7, false))
	assert.Equal(t, 3, learningInPublicScore(3, 7, false))
	assert.Equal(t, 0, learningInPublicScore(3, 7, true))
	assert.Equal(t, 0, learningInPublicScore(3, 0, false))
}
