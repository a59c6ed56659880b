package dto

import "github.com/noah-isme/coursework-engine/internal/models"

// LearningInPublicRequest toggles the learning in public opt-out of an enrollment.
type LearningInPublicRequest struct {
	Disabled *bool `json:"disabled" validate:"required"`
}

// EnrollmentResponse is the enrollment view returned after a toggle.
type EnrollmentResponse struct {
	ID                      uint   `json:"id"`
	CourseID                uint   `json:"course_id"`
	StudentID               uint   `json:"student_id"`
	DisplayName             string `json:"display_name"`
	DisableLearningInPublic bool   `json:"disable_learning_in_public"`
	TotalScore              int    `json:"total_score"`
	PositionOnLeaderboard   *int   `json:"position_on_leaderboard"`
}

// NewEnrollmentResponse maps the model.
func NewEnrollmentResponse(enrollment models.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:                      enrollment.ID,
		CourseID:                enrollment.CourseID,
		StudentID:               enrollment.StudentID,
		DisplayName:             enrollment.DisplayName,
		DisableLearningInPublic: enrollment.DisableLearningInPublic,
		TotalScore:              enrollment.TotalScore,
		PositionOnLeaderboard:   enrollment.PositionOnLeaderboard,
	}
}
