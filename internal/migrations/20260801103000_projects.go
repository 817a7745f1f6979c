package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260801103000",
		up:      mig_20260801103000_projects_up,
		down:    mig_20260801103000_projects_down,
	})
}

func mig_20260801103000_projects_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS projects (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            name VARCHAR(255) NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            manager_id UUID NOT NULL REFERENCES users(id),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_projects_manager_id ON projects(manager_id);
    `)

	return err
}

func mig_20260801103000_projects_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS projects;`)
	return err
}
