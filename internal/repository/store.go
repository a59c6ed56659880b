package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles the repositories bound to one database handle, which
// is either the root connection or an open transaction.
type Repositories struct {
	Courses     CourseRepository
	Homeworks   HomeworkRepository
	Projects    ProjectRepository
	PeerReviews PeerReviewRepository
	Leaderboard LeaderboardRepository
	Statistics  StatisticsRepository
}

// Store is the unit of work used by the engine operations.
type Store interface {
	Repositories() Repositories
	WithinTransaction(ctx context.Context, fn func(Repositories) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore instantiates a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Repositories() Repositories {
	return newRepositories(s.db)
}

// WithinTransaction commits when fn returns nil and rolls everything back otherwise.
func (s *gormStore) WithinTransaction(ctx context.Context, fn func(Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	})
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Courses:     NewCourseRepository(db),
		Homeworks:   NewHomeworkRepository(db),
		Projects:    NewProjectRepository(db),
		PeerReviews: NewPeerReviewRepository(db),
		Leaderboard: NewLeaderboardRepository(db),
		Statistics:  NewStatisticsRepository(db),
	}
}
