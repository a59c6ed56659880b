package dto

import (
	"time"

	"github.com/noah-isme/coursework-engine/internal/models"
)

// LeaderboardEntry is one publicly visible leaderboard row.
type LeaderboardEntry struct {
	Position     int    `json:"position"`
	EnrollmentID uint   `json:"enrollment_id"`
	DisplayName  string `json:"display_name"`
	TotalScore   int    `json:"total_score"`
}

// LeaderboardResponse is the ranked view of a course.
type LeaderboardResponse struct {
	CourseID    uint               `json:"course_id"`
	Entries     []LeaderboardEntry `json:"entries"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// NewLeaderboardResponse maps ranked enrollments. Enrollments that were never
// ranked are skipped.
func NewLeaderboardResponse(courseID uint, enrollments []models.Enrollment, generatedAt time.Time) LeaderboardResponse {
	entries := make([]LeaderboardEntry, 0, len(enrollments))
	for _, enrollment := range enrollments {
		if enrollment.PositionOnLeaderboard == nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			Position:     *enrollment.PositionOnLeaderboard,
			EnrollmentID: enrollment.ID,
			DisplayName:  enrollment.DisplayName,
			TotalScore:   enrollment.TotalScore,
		})
	}

	return LeaderboardResponse{
		CourseID:    courseID,
		Entries:     entries,
		GeneratedAt: generatedAt,
	}
}
