package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-engine/internal/dto"
	"github.com/noah-isme/coursework-engine/internal/handler"
	"github.com/noah-isme/coursework-engine/internal/models"
	"github.com/noah-isme/coursework-engine/internal/repository"
	"github.com/noah-isme/coursework-engine/internal/service"
)

type stubHomeworkScoring struct {
	result service.ActionResult
	err    error
	calls  []uint
}

func (s *stubHomeworkScoring) Score(_ context.Context, id uint) (service.ActionResult, error) {
	s.calls = append(s.calls, id)
	return s.result, s.err
}

func (s *stubHomeworkScoring) FillCorrectAnswers(_ context.Context, id uint) (service.ActionResult, error) {
	s.calls = append(s.calls, id)
	return s.result, s.err
}

type stubStatistics struct {
	homework models.HomeworkStatistics
	err      error
	forced   bool
}

func (s *stubStatistics) HomeworkStatistics(_ context.Context, _ uint, force bool) (models.HomeworkStatistics, error) {
	s.forced = force
	return s.homework, s.err
}

func (s *stubStatistics) ProjectStatistics(_ context.Context, _ uint, force bool) (models.ProjectStatistics, error) {
	s.forced = force
	return models.ProjectStatistics{}, s.err
}

type stubAssignment struct {
	seed   int64
	result service.ActionResult
	review dto.PeerReviewResponse
	err    error
}

func (s *stubAssignment) Assign(_ context.Context, _ uint, seed int64) (service.ActionResult, error) {
	s.seed = seed
	return s.result, s.err
}

func (s *stubAssignment) AddOptionalReview(context.Context, uint, dto.OptionalReviewRequest) (dto.PeerReviewResponse, error) {
	return s.review, s.err
}

type stubProjectScoring struct {
	result service.ActionResult
	err    error
}

func (s stubProjectScoring) Score(context.Context, uint) (service.ActionResult, error) {
	return s.result, s.err
}

type stubLeaderboard struct {
	view dto.LeaderboardResponse
	err  error
}

func (s stubLeaderboard) RebuildWithin(context.Context, repository.Repositories, uint) (int, error) {
	return 0, nil
}

func (s stubLeaderboard) Invalidate(context.Context, uint) {}

func (s stubLeaderboard) Rebuild(context.Context, uint) error {
	return s.err
}

func (s stubLeaderboard) Get(context.Context, uint) (dto.LeaderboardResponse, error) {
	return s.view, s.err
}

type stubEnrollments struct {
	disabled *bool
	err      error
}

func (s *stubEnrollments) SetLearningInPublicDisabled(_ context.Context, id uint, disabled bool) (dto.EnrollmentResponse, error) {
	s.disabled = &disabled
	return dto.EnrollmentResponse{ID: id, DisableLearningInPublic: disabled}, s.err
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
}

func perform(t *testing.T, app *fiber.App, method, path, body string) (int, envelope) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func TestAdminHomeworkHandlerScore(t *testing.T) {
	cases := []struct {
		name   string
		stub   *stubHomeworkScoring
		status int
	}{
		{
			name:   "ok",
			stub:   &stubHomeworkScoring{result: service.ActionResult{Status: service.ActionStatusOK, Message: "Homework HW1 is scored"}},
			status: http.StatusOK,
		},
		{
			name:   "precondition failed",
			stub:   &stubHomeworkScoring{result: service.ActionResult{Status: service.ActionStatusFail, Message: "Homework HW1 is already scored."}},
			status: http.StatusConflict,
		},
		{
			name:   "not found",
			stub:   &stubHomeworkScoring{err: service.ErrHomeworkNotFound},
			status: http.StatusNotFound,
		},
		{
			name:   "unexpected",
			stub:   &stubHomeworkScoring{err: errors.New("connection reset")},
			status: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			handler.NewAdminHomeworkHandler(tc.stub, &stubStatistics{}, zerolog.Nop()).Register(app.Group("/api/admin/homeworks"))

			status, payload := perform(t, app, http.MethodPost, "/api/admin/homeworks/5/score", "")
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.status == http.StatusOK, payload.Success)
			require.Equal(t, []uint{5}, tc.stub.calls)

			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "failed to score homework", payload.Message)
			}
		})
	}
}

func TestAdminHomeworkHandlerRejectsBadIdentifier(t *testing.T) {
	stub := &stubHomeworkScoring{}
	app := fiber.New()
	handler.NewAdminHomeworkHandler(stub, &stubStatistics{}, zerolog.Nop()).Register(app.Group("/api/admin/homeworks"))

	status, _ := perform(t, app, http.MethodPost, "/api/admin/homeworks/abc/fill-correct-answers", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Empty(t, stub.calls)
}

func TestAdminHomeworkHandlerStatistics(t *testing.T) {
	stats := models.HomeworkStatistics{HomeworkID: 5, TotalSubmissions: 3}
	stats.SetFieldStatistics(map[string]models.FieldStatistics{"total_score": service.ComputeFieldStatistics([]float64{1, 2, 3})})
	statistics := &stubStatistics{homework: stats}

	app := fiber.New()
	handler.NewAdminHomeworkHandler(&stubHomeworkScoring{}, statistics, zerolog.Nop()).Register(app.Group("/api/admin/homeworks"))

	status, payload := perform(t, app, http.MethodGet, "/api/admin/homeworks/5/statistics?force=true", "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, statistics.forced)

	var body dto.StatisticsResponse
	require.NoError(t, json.Unmarshal(payload.Data, &body))
	assert.Equal(t, "homework", body.EntityType)
	require.Len(t, body.Fields, len(service.HomeworkStatisticsFields))
	for _, field := range body.Fields {
		if field.Field == "total_score" {
			require.NotNil(t, field.Median)
			assert.InDelta(t, 2, *field.Median, 1e-9)
		}
	}

	statistics.err = service.ErrStatisticsUnavailable
	status, _ = perform(t, app, http.MethodGet, "/api/admin/homeworks/5/statistics", "")
	assert.Equal(t, http.StatusConflict, status)
}

func TestAdminProjectHandlerAssignUsesSeed(t *testing.T) {
	assignment := &stubAssignment{result: service.ActionResult{Status: service.ActionStatusOK, Message: "assigned"}}
	app := fiber.New()
	handler.NewAdminProjectHandler(assignment, stubProjectScoring{}, &stubStatistics{}, validator.New(), 42, zerolog.Nop()).
		Register(app.Group("/api/admin/projects"))

	status, _ := perform(t, app, http.MethodPost, "/api/admin/projects/3/assign-reviews", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(42), assignment.seed)

	status, _ = perform(t, app, http.MethodPost, "/api/admin/projects/3/assign-reviews", `{"seed":7}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(7), assignment.seed)
}

func TestAdminProjectHandlerOptionalReview(t *testing.T) {
	assignment := &stubAssignment{review: dto.PeerReviewResponse{ID: 9, ReviewerID: 1, SubmissionUnderEvaluationID: 2, Optional: true}}
	app := fiber.New()
	handler.NewAdminProjectHandler(assignment, stubProjectScoring{}, &stubStatistics{}, validator.New(), 42, zerolog.Nop()).
		Register(app.Group("/api/admin/projects"))

	status, payload := perform(t, app, http.MethodPost, "/api/admin/projects/3/optional-reviews", `{"reviewer_submission_id":1,"submission_under_evaluation_id":2}`)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, payload.Success)

	status, payload = perform(t, app, http.MethodPost, "/api/admin/projects/3/optional-reviews", `{"reviewer_submission_id":1,"submission_under_evaluation_id":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "nefield", payload.Details["SubmissionUnderEvaluationID"])

	assignment.err = service.ErrDuplicateReview
	status, _ = perform(t, app, http.MethodPost, "/api/admin/projects/3/optional-reviews", `{"reviewer_submission_id":1,"submission_under_evaluation_id":2}`)
	assert.Equal(t, http.StatusConflict, status)

	assignment.err = service.ErrCrossProjectReview
	status, _ = perform(t, app, http.MethodPost, "/api/admin/projects/3/optional-reviews", `{"reviewer_submission_id":1,"submission_under_evaluation_id":2}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminProjectHandlerScoreFail(t *testing.T) {
	scoring := stubProjectScoring{result: service.ActionResult{Status: service.ActionStatusFail, Message: "Project Capstone has no peer reviews to score."}}
	app := fiber.New()
	handler.NewAdminProjectHandler(&stubAssignment{}, scoring, &stubStatistics{}, validator.New(), 42, zerolog.Nop()).
		Register(app.Group("/api/admin/projects"))

	status, payload := perform(t, app, http.MethodPost, "/api/admin/projects/3/score", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Project Capstone has no peer reviews to score.", payload.Message)
}

func TestAdminCourseHandlerLeaderboard(t *testing.T) {
	view := dto.LeaderboardResponse{CourseID: 1, Entries: []dto.LeaderboardEntry{{Position: 1, EnrollmentID: 4, TotalScore: 150}}}
	app := fiber.New()
	handler.NewAdminCourseHandler(stubLeaderboard{view: view}, zerolog.Nop()).Register(app.Group("/api/admin/courses"))

	status, payload := perform(t, app, http.MethodGet, "/api/admin/courses/1/leaderboard", "")
	require.Equal(t, http.StatusOK, status)

	var body dto.LeaderboardResponse
	require.NoError(t, json.Unmarshal(payload.Data, &body))
	assert.Equal(t, view.Entries, body.Entries)

	status, _ = perform(t, app, http.MethodPost, "/api/admin/courses/1/leaderboard/rebuild", "")
	assert.Equal(t, http.StatusOK, status)

	missing := fiber.New()
	handler.NewAdminCourseHandler(stubLeaderboard{err: service.ErrCourseNotFound}, zerolog.Nop()).Register(missing.Group("/api/admin/courses"))
	status, _ = perform(t, missing, http.MethodPost, "/api/admin/courses/1/leaderboard/rebuild", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdminEnrollmentHandlerLearningInPublic(t *testing.T) {
	enrollments := &stubEnrollments{}
	app := fiber.New()
	handler.NewAdminEnrollmentHandler(enrollments, validator.New(), zerolog.Nop()).Register(app.Group("/api/admin/enrollments"))

	status, _ := perform(t, app, http.MethodPatch, "/api/admin/enrollments/8/learning-in-public", `{"disabled":true}`)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, enrollments.disabled)
	assert.True(t, *enrollments.disabled)

	status, payload := perform(t, app, http.MethodPatch, "/api/admin/enrollments/8/learning-in-public", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "required", payload.Details["Disabled"])
}
