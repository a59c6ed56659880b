package dto

import (
	"time"

	"github.com/noah-isme/coursework-engine/internal/models"
)

// StatisticsQuery carries the query string of the statistics endpoints.
type StatisticsQuery struct {
	Force bool `query:"force"`
}

// FieldStatisticsResponse describes one numeric field. Values are null when
// fewer than three submissions carried the field.
type FieldStatisticsResponse struct {
	Field  string   `json:"field"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Avg    *float64 `json:"avg"`
	Q1     *float64 `json:"q1"`
	Median *float64 `json:"median"`
	Q3     *float64 `json:"q3"`
}

// StatisticsResponse is the statistics record of a homework or project.
type StatisticsResponse struct {
	EntityType       string                    `json:"entity_type"`
	EntityID         uint                      `json:"entity_id"`
	TotalSubmissions int                       `json:"total_submissions"`
	Fields           []FieldStatisticsResponse `json:"fields"`
	ComputedAt       time.Time                 `json:"computed_at"`
}

// NewHomeworkStatisticsResponse maps the stored record, listing fields in the given order.
func NewHomeworkStatisticsResponse(stats models.HomeworkStatistics, order []string) StatisticsResponse {
	return StatisticsResponse{
		EntityType:       "homework",
		EntityID:         stats.HomeworkID,
		TotalSubmissions: stats.TotalSubmissions,
		Fields:           fieldResponses(stats.FieldStatistics(), order),
		ComputedAt:       stats.UpdatedAt,
	}
}

// NewProjectStatisticsResponse maps the stored record, listing fields in the given order.
func NewProjectStatisticsResponse(stats models.ProjectStatistics, order []string) StatisticsResponse {
	return StatisticsResponse{
		EntityType:       "project",
		EntityID:         stats.ProjectID,
		TotalSubmissions: stats.TotalSubmissions,
		Fields:           fieldResponses(stats.FieldStatistics(), order),
		ComputedAt:       stats.UpdatedAt,
	}
}

func fieldResponses(fields map[string]models.FieldStatistics, order []string) []FieldStatisticsResponse {
	result := make([]FieldStatisticsResponse, 0, len(order))
	for _, name := range order {
		field := fields[name]
		result = append(result, FieldStatisticsResponse{
			Field:  name,
			Min:    field.Min,
			Max:    field.Max,
			Avg:    field.Avg,
			Q1:     field.Q1,
			Median: field.Median,
			Q3:     field.Q3,
		})
	}
	return result
}
