package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// FieldStatistics summarises one numeric field across submissions. All values
// are nil when fewer than three values were available.
type FieldStatistics struct {
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Avg    *float64 `json:"avg"`
	Q1     *float64 `json:"q1"`
	Median *float64 `json:"median"`
	Q3     *float64 `json:"q3"`
}

// Populated reports whether the statistics could be computed.
func (f FieldStatistics) Populated() bool {
	return f.Min != nil
}

// HomeworkStatistics caches the statistics of a scored homework.
type HomeworkStatistics struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	HomeworkID       uint           `gorm:"not null;uniqueIndex" json:"homework_id"`
	TotalSubmissions int            `gorm:"not null" json:"total_submissions"`
	Fields           datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// SetFieldStatistics stores the per-field statistics.
func (s *HomeworkStatistics) SetFieldStatistics(fields map[string]FieldStatistics) {
	s.Fields = encodeFieldStatistics(fields)
}

// FieldStatistics decodes the per-field statistics.
func (s HomeworkStatistics) FieldStatistics() map[string]FieldStatistics {
	return decodeFieldStatistics(s.Fields)
}

// ProjectStatistics caches the statistics of a completed project.
type ProjectStatistics struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ProjectID        uint           `gorm:"not null;uniqueIndex" json:"project_id"`
	TotalSubmissions int            `gorm:"not null" json:"total_submissions"`
	Fields           datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// SetFieldStatistics stores the per-field statistics.
func (s *ProjectStatistics) SetFieldStatistics(fields map[string]FieldStatistics) {
	s.Fields = encodeFieldStatistics(fields)
}

// FieldStatistics decodes the per-field statistics.
func (s ProjectStatistics) FieldStatistics() map[string]FieldStatistics {
	return decodeFieldStatistics(s.Fields)
}

func encodeFieldStatistics(fields map[string]FieldStatistics) datatypes.JSON {
	data, err := json.Marshal(fields)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(data)
}

func decodeFieldStatistics(raw datatypes.JSON) map[string]FieldStatistics {
	fields := map[string]FieldStatistics{}
	if len(raw) == 0 {
		return fields
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return map[string]FieldStatistics{}
	}
	return fields
}
