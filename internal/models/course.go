package models

import "time"

// Course groups homeworks, projects and the enrollments ranked on its leaderboard.
type Course struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Slug        string `gorm:"size:160;uniqueIndex;not null" json:"slug"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	// FirstHomeworkScored latches to true once any homework of the course is scored.
	// The web layer uses it to decide whether to show the leaderboard.
	FirstHomeworkScored bool      `gorm:"not null" json:"first_homework_scored"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Enrollment binds a student to a course and carries the leaderboard standing.
type Enrollment struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	CourseID                uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_student" json:"course_id"`
	StudentID               uint      `gorm:"not null;uniqueIndex:idx_enrollment_course_student" json:"student_id"`
	DisplayName             string    `gorm:"size:255" json:"display_name"`
	DisplayOnLeaderboard    bool      `gorm:"not null" json:"display_on_leaderboard"`
	DisableLearningInPublic bool      `gorm:"not null" json:"disable_learning_in_public"`
	TotalScore              int       `gorm:"not null" json:"total_score"`
	PositionOnLeaderboard   *int      `json:"position_on_leaderboard"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}
