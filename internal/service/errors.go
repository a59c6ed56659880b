package service

import "errors"

var (
	// ErrHomeworkNotFound indicates the homework does not exist.
	ErrHomeworkNotFound = errors.New("homework not found")
	// ErrProjectNotFound indicates the project does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrCourseNotFound indicates the course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrEnrollmentNotFound indicates the enrollment does not exist.
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	// ErrSubmissionNotFound indicates a project submission does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrStatisticsUnavailable is returned when statistics are requested for
	// a homework that is not scored or a project that is not completed.
	ErrStatisticsUnavailable = errors.New("statistics unavailable before scoring completes")
	// ErrAssignmentUnsatisfiable means no balanced self-free assignment was found.
	ErrAssignmentUnsatisfiable = errors.New("peer review assignment unsatisfiable")
	// ErrUnsupportedQuestionType flags a question/answer type pair the evaluator cannot compare.
	ErrUnsupportedQuestionType = errors.New("unsupported question type")
	// ErrInvalidCriteriaOptions indicates malformed review criteria options.
	ErrInvalidCriteriaOptions = errors.New("invalid review criteria options")
	// ErrSelfReview rejects a review of one's own submission.
	ErrSelfReview = errors.New("cannot review own submission")
	// ErrDuplicateReview rejects a second review of the same submission by the same reviewer.
	ErrDuplicateReview = errors.New("submission already reviewed by this reviewer")
	// ErrCrossProjectReview rejects pairs of submissions from different projects.
	ErrCrossProjectReview = errors.New("submissions belong to different projects")
	// ErrReviewWindowClosed rejects optional reviews outside the peer review phase.
	ErrReviewWindowClosed = errors.New("project is not accepting peer reviews")
)
