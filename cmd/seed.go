package cmd

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/db"
)

type seedUser struct {
	name     string
	email    string
	password string
	role     string
}

var seedUsers = []seedUser{
	{"Admin User", "admin@example.com", "password", "Admin"},
	{"Manager One", "manager1@example.com", "password", "Manager"},
	{"Manager Two", "manager2@example.com", "password", "Manager"},
	{"Member One", "member1@example.com", "password", "Member"},
	{"Member Two", "member2@example.com", "password", "Member"},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo users, projects and tasks",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()
		conn := db.NewConn(conf)

		if err := runSeed(conn); err != nil {
			fmt.Println("Unable to seed database", err)
			os.Exit(1)
		}

		os.Exit(0)
	},
}

func runSeed(conn *sqlx.DB) error {
	tx, err := conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ids := map[string]string{}
	for _, u := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		var id string
		err = tx.QueryRow(`
			INSERT INTO users (name, email, password_hash)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE SET name = users.name
			RETURNING id;
		`, u.name, u.email, string(hash)).Scan(&id)
		if err != nil {
			return err
		}
		ids[u.email] = id

		if _, err := tx.Exec(`
			INSERT INTO user_roles (user_id, role)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING;
		`, id, u.role); err != nil {
			return err
		}
	}

	type seedProject struct {
		name        string
		description string
		manager     string
	}
	projects := []seedProject{
		{"Website Redesign", "Revamp the public site", "manager1@example.com"},
		{"Mobile App", "Ship the companion app", "manager2@example.com"},
	}

	projectIDs := map[string]string{}
	for _, p := range projects {
		var id string
		err := tx.QueryRow(`
			INSERT INTO projects (name, description, manager_id)
			SELECT $1, $2, $3
			WHERE NOT EXISTS (SELECT 1 FROM projects WHERE name = $1)
			RETURNING id;
		`, p.name, p.description, ids[p.manager]).Scan(&id)
		if err != nil {
			// Already seeded, look it up for the task rows below
			if err := tx.QueryRow(`SELECT id FROM projects WHERE name = $1`, p.name).Scan(&id); err != nil {
				return err
			}
		}
		projectIDs[p.name] = id
	}

	type seedTask struct {
		title    string
		status   string
		project  string
		assignee string
	}
	tasks := []seedTask{
		{"Design landing page", "To Do", "Website Redesign", "member1@example.com"},
		{"Set up CI pipeline", "In Progress", "Mobile App", "member2@example.com"},
		{"Write onboarding docs", "To Do", "Mobile App", ""},
	}

	for _, t := range tasks {
		var assignee any
		if t.assignee != "" {
			assignee = ids[t.assignee]
		}

		if _, err := tx.Exec(`
			INSERT INTO tasks (title, status, project_id, assigned_to)
			SELECT $1, $2, $3, $4
			WHERE NOT EXISTS (SELECT 1 FROM tasks WHERE title = $1);
		`, t.title, t.status, projectIDs[t.project], assignee); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Register the "seed" command
func init() {
	rootCmd.AddCommand(seedCmd)
}
