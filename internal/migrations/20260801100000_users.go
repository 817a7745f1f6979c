package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	m.addMigration(&migration{
		version: "20260801100000",
		up:      mig_20260801100000_users_up,
		down:    mig_20260801100000_users_down,
	})
}

func mig_20260801100000_users_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            name VARCHAR(255) NOT NULL,
            email VARCHAR(255) NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
    `)
	if err != nil {
		return err
	}

	// Roles are a many-to-many assignment. The role names themselves are
	// fixed, so a CHECK constraint stands in for a roles table.
	_, err = tx.Exec(`
        CREATE TABLE IF NOT EXISTS user_roles (
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            role VARCHAR(50) NOT NULL CHECK (role IN ('Admin', 'Manager', 'Member')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            PRIMARY KEY (user_id, role)
        );
    `)
	if err != nil {
		return err
	}

	// Seed with a default admin so a fresh install is usable
	password := "admin"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash default password: %w", err)
	}

	_, err = tx.Exec(`
        INSERT INTO users (name, email, password_hash)
        VALUES ($1, $2, $3)
        ON CONFLICT (email) DO NOTHING;
    `, "Admin", "admin@admin.com", string(hashedPassword))
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        INSERT INTO user_roles (user_id, role)
        SELECT id, 'Admin' FROM users WHERE email = $1
        ON CONFLICT DO NOTHING;
    `, "admin@admin.com")

	return err
}

func mig_20260801100000_users_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS user_roles;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DROP TABLE IF EXISTS users;`)
	return err
}
