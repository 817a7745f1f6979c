package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260801110000",
		up:      mig_20260801110000_tasks_up,
		down:    mig_20260801110000_tasks_down,
	})
}

func mig_20260801110000_tasks_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS tasks (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            title VARCHAR(255) NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status VARCHAR(50) NOT NULL DEFAULT 'To Do' CHECK (status IN ('To Do', 'In Progress', 'Done')),
            project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            assigned_to UUID REFERENCES users(id) ON DELETE SET NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks(assigned_to);
    `)

	return err
}

func mig_20260801110000_tasks_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS tasks;`)
	return err
}
