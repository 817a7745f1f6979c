package stats

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/taskdeck/taskdeck/internal/rbac"
)

// Counts backs the dashboard tiles.
type Counts struct {
	Users    int `db:"users" json:"users"`
	Projects int `db:"projects" json:"projects"`
	Tasks    int `db:"tasks" json:"tasks"`
}

type StatsRepo struct {
	db *sqlx.DB
}

func NewStatsRepo(db *sqlx.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) Counts(ctx context.Context) (*Counts, error) {
	var c Counts
	err := r.db.GetContext(ctx, &c, `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM projects) AS projects,
			(SELECT COUNT(*) FROM tasks) AS tasks
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard counts: %w", err)
	}
	return &c, nil
}

type Repository interface {
	Counts(ctx context.Context) (*Counts, error)
}

// StatsService serves the dashboard numbers to any authenticated actor.
type StatsService struct {
	repo Repository
}

func NewStatsService(repo Repository) *StatsService {
	return &StatsService{repo: repo}
}

func (s *StatsService) Counts(ctx context.Context, actor rbac.Actor) (*Counts, error) {
	if len(actor.Roles) == 0 {
		return nil, rbac.ErrForbidden
	}
	return s.repo.Counts(ctx)
}
