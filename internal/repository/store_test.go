package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/coursework-engine/internal/models"
)

func setupRepositoryDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedCourseWithEnrollments(t *testing.T, db *gorm.DB, n int) (models.Course, []models.Enrollment) {
	t.Helper()

	course := models.Course{Slug: uuid.NewString(), Title: "MLOps"}
	require.NoError(t, db.Create(&course).Error)

	enrollments := make([]models.Enrollment, n)
	for i := range enrollments {
		enrollments[i] = models.Enrollment{CourseID: course.ID, StudentID: uint(i + 1), DisplayOnLeaderboard: true}
		require.NoError(t, db.Create(&enrollments[i]).Error)
	}
	return course, enrollments
}

func TestWithinTransactionRollsBackOnError(t *testing.T) {
	db := setupRepositoryDB(t)
	course, _ := seedCourseWithEnrollments(t, db, 0)
	store := NewStore(db)

	boom := errors.New("boom")
	err := store.WithinTransaction(context.Background(), func(repos Repositories) error {
		require.NoError(t, repos.Courses.MarkFirstHomeworkScored(context.Background(), course.ID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := store.Repositories().Courses.GetByID(context.Background(), course.ID)
	require.NoError(t, err)
	assert.False(t, stored.FirstHomeworkScored)

	err = store.WithinTransaction(context.Background(), func(repos Repositories) error {
		return repos.Courses.MarkFirstHomeworkScored(context.Background(), course.ID)
	})
	require.NoError(t, err)

	stored, err = store.Repositories().Courses.GetByID(context.Background(), course.ID)
	require.NoError(t, err)
	assert.True(t, stored.FirstHomeworkScored)
}

func TestLeaderboardSumsOnlyFinishedWork(t *testing.T) {
	db := setupRepositoryDB(t)
	course, enrollments := seedCourseWithEnrollments(t, db, 2)

	scored := models.Homework{CourseID: course.ID, Slug: "hw1", Title: "HW1", DueDate: time.Now(), State: models.HomeworkStateScored}
	open := models.Homework{CourseID: course.ID, Slug: "hw2", Title: "HW2", DueDate: time.Now(), State: models.HomeworkStateOpen}
	require.NoError(t, db.Create(&scored).Error)
	require.NoError(t, db.Create(&open).Error)
	require.NoError(t, db.Create(&[]models.Submission{
		{HomeworkID: scored.ID, EnrollmentID: enrollments[0].ID, TotalScore: 7},
		{HomeworkID: open.ID, EnrollmentID: enrollments[0].ID, TotalScore: 9},
		{HomeworkID: scored.ID, EnrollmentID: enrollments[1].ID, TotalScore: 3},
	}).Error)

	completed := models.Project{CourseID: course.ID, Slug: "p1", Title: "P1", State: models.ProjectStateCompleted, SubmissionDueDate: time.Now(), PeerReviewDueDate: time.Now()}
	reviewing := models.Project{CourseID: course.ID, Slug: "p2", Title: "P2", State: models.ProjectStatePeerReviewing, SubmissionDueDate: time.Now(), PeerReviewDueDate: time.Now()}
	require.NoError(t, db.Create(&completed).Error)
	require.NoError(t, db.Create(&reviewing).Error)
	require.NoError(t, db.Create(&[]models.ProjectSubmission{
		{ProjectID: completed.ID, EnrollmentID: enrollments[1].ID, TotalScore: 20},
		{ProjectID: reviewing.ID, EnrollmentID: enrollments[0].ID, TotalScore: 30},
	}).Error)

	repo := NewLeaderboardRepository(db)

	homework, err := repo.SumHomeworkScores(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{enrollments[0].ID: 7, enrollments[1].ID: 3}, homework)

	projects, err := repo.SumProjectScores(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{enrollments[1].ID: 20}, projects)
}

func TestSaveRanksAndListRanked(t *testing.T) {
	db := setupRepositoryDB(t)
	course, enrollments := seedCourseWithEnrollments(t, db, 3)
	require.NoError(t, db.Model(&enrollments[2]).Update("display_on_leaderboard", false).Error)

	first, second, third := 1, 2, 3
	enrollments[0].TotalScore, enrollments[0].PositionOnLeaderboard = 10, &second
	enrollments[1].TotalScore, enrollments[1].PositionOnLeaderboard = 20, &first
	enrollments[2].TotalScore, enrollments[2].PositionOnLeaderboard = 5, &third

	repo := NewLeaderboardRepository(db)
	require.NoError(t, repo.SaveRanks(context.Background(), enrollments))

	ranked, err := repo.ListRanked(context.Background(), course.ID)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, enrollments[1].ID, ranked[0].ID)
	assert.Equal(t, 20, ranked[0].TotalScore)
	assert.Equal(t, enrollments[0].ID, ranked[1].ID)
}

func TestReplaceEvaluationScores(t *testing.T) {
	db := setupRepositoryDB(t)
	course, enrollments := seedCourseWithEnrollments(t, db, 1)

	project := models.Project{CourseID: course.ID, Slug: "p", Title: "P", SubmissionDueDate: time.Now(), PeerReviewDueDate: time.Now()}
	require.NoError(t, db.Create(&project).Error)
	submission := models.ProjectSubmission{ProjectID: project.ID, EnrollmentID: enrollments[0].ID}
	require.NoError(t, db.Create(&submission).Error)

	repo := NewProjectRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceEvaluationScores(ctx, project.ID, []models.ProjectEvaluationScore{
		{SubmissionID: submission.ID, ReviewCriteriaID: 1, Score: 1},
		{SubmissionID: submission.ID, ReviewCriteriaID: 2, Score: 2},
	}))
	require.NoError(t, repo.ReplaceEvaluationScores(ctx, project.ID, []models.ProjectEvaluationScore{
		{SubmissionID: submission.ID, ReviewCriteriaID: 1, Score: 3},
	}))

	scores, err := repo.ListEvaluationScores(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 3, scores[0].Score)
}

func TestPeerReviewsScopedToProject(t *testing.T) {
	db := setupRepositoryDB(t)
	course, enrollments := seedCourseWithEnrollments(t, db, 2)

	projects := []models.Project{
		{CourseID: course.ID, Slug: "a", Title: "A", SubmissionDueDate: time.Now(), PeerReviewDueDate: time.Now()},
		{CourseID: course.ID, Slug: "b", Title: "B", SubmissionDueDate: time.Now(), PeerReviewDueDate: time.Now()},
	}
	require.NoError(t, db.Create(&projects).Error)

	var submissions []models.ProjectSubmission
	for _, project := range projects {
		for _, enrollment := range enrollments {
			submissions = append(submissions, models.ProjectSubmission{ProjectID: project.ID, EnrollmentID: enrollment.ID})
		}
	}
	require.NoError(t, db.Create(&submissions).Error)

	repo := NewPeerReviewRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.CreateBatch(ctx, []models.PeerReview{
		{ReviewerID: submissions[0].ID, SubmissionUnderEvaluationID: submissions[1].ID, State: models.PeerReviewStateToReview},
		{ReviewerID: submissions[1].ID, SubmissionUnderEvaluationID: submissions[0].ID, State: models.PeerReviewStateToReview},
		{ReviewerID: submissions[2].ID, SubmissionUnderEvaluationID: submissions[3].ID, State: models.PeerReviewStateToReview},
	}))

	count, err := repo.CountByProject(ctx, projects[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	reviews, err := repo.ListByProject(ctx, projects[1].ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, submissions[3].ID, reviews[0].SubmissionUnderEvaluationID)

	exists, err := repo.Exists(ctx, submissions[0].ID, submissions[1].ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, submissions[1].ID, submissions[3].ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListResponsesSpansBatches(t *testing.T) {
	db := setupRepositoryDB(t)
	course, enrollments := seedCourseWithEnrollments(t, db, 2)

	project := models.Project{CourseID: course.ID, Slug: "big", Title: "Big", SubmissionDueDate: time.Now(), PeerReviewDueDate: time.Now()}
	require.NoError(t, db.Create(&project).Error)
	submissions := []models.ProjectSubmission{
		{ProjectID: project.ID, EnrollmentID: enrollments[0].ID},
		{ProjectID: project.ID, EnrollmentID: enrollments[1].ID},
	}
	require.NoError(t, db.Create(&submissions).Error)

	total := 2*peerReviewBatchSize + 7
	reviews := make([]models.PeerReview, total)
	for i := range reviews {
		reviews[i] = models.PeerReview{ReviewerID: submissions[i%2].ID, SubmissionUnderEvaluationID: submissions[(i+1)%2].ID, State: models.PeerReviewStateSubmitted}
	}
	repo := NewPeerReviewRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.CreateBatch(ctx, reviews))

	// Responses are inserted in reverse review order so ids do not follow review ids.
	responses := make([]models.CriteriaResponse, 0, total)
	ids := make([]uint, 0, total)
	for i := total - 1; i >= 0; i-- {
		responses = append(responses, models.CriteriaResponse{ReviewID: reviews[i].ID, CriteriaID: 1, Answer: "1"})
	}
	for _, review := range reviews {
		ids = append(ids, review.ID)
	}
	require.NoError(t, db.CreateInBatches(&responses, 200).Error)

	got, err := repo.ListResponses(ctx, ids)
	require.NoError(t, err)
	require.Len(t, got, total)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].ID, got[i].ID)
	}

	partial, err := repo.ListResponses(ctx, ids[:3])
	require.NoError(t, err)
	assert.Len(t, partial, 3)
}
