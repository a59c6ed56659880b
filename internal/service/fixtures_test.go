package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/coursework-engine/internal/models"
)

var fixedNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func setupEngineDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	return db
}

func seedCourse(t *testing.T, db *gorm.DB) models.Course {
	t.Helper()

	course := models.Course{Slug: "data-eng-" + uuid.NewString()[:8], Title: "Data Engineering"}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func seedEnrollments(t *testing.T, db *gorm.DB, course models.Course, n int) []models.Enrollment {
	t.Helper()

	enrollments := make([]models.Enrollment, n)
	for i := range enrollments {
		student := models.Student{Name: fmt.Sprintf("Student %d", i+1), Email: fmt.Sprintf("%s@example.com", uuid.NewString())}
		require.NoError(t, db.Create(&student).Error)

		enrollments[i] = models.Enrollment{
			CourseID:             course.ID,
			StudentID:            student.ID,
			DisplayName:          student.Name,
			DisplayOnLeaderboard: true,
		}
		require.NoError(t, db.Create(&enrollments[i]).Error)
	}
	return enrollments
}

func seedHomework(t *testing.T, db *gorm.DB, course models.Course, due time.Time) models.Homework {
	t.Helper()

	homework := models.Homework{
		CourseID:            course.ID,
		Slug:                "hw1",
		Title:               "Homework 1",
		DueDate:             due,
		LearningInPublicCap: models.DefaultHomeworkLearningInPublicCap,
		State:               models.HomeworkStateOpen,
	}
	require.NoError(t, db.Create(&homework).Error)
	return homework
}

func seedProject(t *testing.T, db *gorm.DB, course models.Course, peers, pointsToPass int) models.Project {
	t.Helper()

	project := models.Project{
		CourseID:                   course.ID,
		Slug:                       "capstone",
		Title:                      "Capstone",
		SubmissionDueDate:          fixedNow.Add(-48 * time.Hour),
		PeerReviewDueDate:          fixedNow.Add(-time.Hour),
		LearningInPublicCapProject: 14,
		LearningInPublicCapReview:  2,
		NumberOfPeersToEvaluate:    peers,
		PointsForPeerReview:        1,
		PointsToPass:               pointsToPass,
		State:                      models.ProjectStateCollectingSubmissions,
	}
	require.NoError(t, db.Create(&project).Error)
	return project
}

func seedCriteria(t *testing.T, db *gorm.DB, course models.Course, description string, options []models.CriteriaOption) models.ReviewCriteria {
	t.Helper()

	criteria := models.ReviewCriteria{
		CourseID:           course.ID,
		Description:        description,
		ReviewCriteriaType: models.ReviewCriteriaRadioButtons,
	}
	criteria.SetOptions(options)
	require.NoError(t, db.Create(&criteria).Error)
	return criteria
}

func seedProjectSubmissions(t *testing.T, db *gorm.DB, project models.Project, enrollments []models.Enrollment) []models.ProjectSubmission {
	t.Helper()

	submissions := make([]models.ProjectSubmission, len(enrollments))
	for i, enrollment := range enrollments {
		submissions[i] = models.ProjectSubmission{
			ProjectID:    project.ID,
			EnrollmentID: enrollment.ID,
			GithubLink:   fmt.Sprintf("https://github.com/student%d/capstone", i+1),
			CommitID:     "abc123",
		}
		submissions[i].SetLearningInPublicLinks(nil)
		require.NoError(t, db.Create(&submissions[i]).Error)
	}
	return submissions
}

type recordedEvent struct {
	Type string
	Data map[string]interface{}
}

type recordingPublisher struct {
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, data map[string]interface{}) {
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
}

func (p *recordingPublisher) types() []string {
	types := make([]string, len(p.events))
	for i, event := range p.events {
		types[i] = event.Type
	}
	return types
}
