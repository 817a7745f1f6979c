package services

import (
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/db"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/services/project"
	"github.com/taskdeck/taskdeck/internal/services/stats"
	"github.com/taskdeck/taskdeck/internal/services/task"
	"github.com/taskdeck/taskdeck/internal/services/user"
)

type Services struct {
	Registry *rbac.Registry
	Authz    *rbac.Evaluator

	User    *user.UserService
	Project *project.ProjectService
	Task    *task.TaskService
	Stats   *stats.StatsService
}

// NewServices wires the repositories, the authorization evaluator and the
// services around one database connection.
func NewServices(conf *config.Config) *Services {
	dbconn := db.NewConn(conf)

	registry := rbac.NewRegistry()
	authz := rbac.NewEvaluator(registry)

	return &Services{
		Registry: registry,
		Authz:    authz,
		User:     user.NewUserService(user.NewUserRepo(dbconn), authz),
		Project:  project.NewProjectService(project.NewProjectRepo(dbconn), authz),
		Task:     task.NewTaskService(task.NewTaskRepo(dbconn), authz),
		Stats:    stats.NewStatsService(stats.NewStatsRepo(dbconn)),
	}
}
