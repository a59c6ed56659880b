package models

// All lists every model managed by the engine, in migration order.
func All() []interface{} {
	return []interface{}{
		&Student{},
		&Course{},
		&Enrollment{},
		&Homework{},
		&Question{},
		&Submission{},
		&Answer{},
		&Project{},
		&ProjectSubmission{},
		&ReviewCriteria{},
		&PeerReview{},
		&CriteriaResponse{},
		&ProjectEvaluationScore{},
		&HomeworkStatistics{},
		&ProjectStatistics{},
	}
}
