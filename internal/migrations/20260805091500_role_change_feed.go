package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260805091500",
		up:      mig_20260805091500_role_change_feed_up,
		down:    mig_20260805091500_role_change_feed_down,
	})
}

func mig_20260805091500_role_change_feed_up(tx *sqlx.Tx) error {
	// Notify listeners whenever a role is granted or revoked, so running
	// servers can log the change. Payload format: operation:user_id:role.
	_, err := tx.Exec(`
		CREATE OR REPLACE FUNCTION notify_role_assignment_change()
		RETURNS TRIGGER AS $$
		DECLARE
			payload TEXT;
		BEGIN
			IF TG_OP = 'DELETE' THEN
				payload := TG_OP || ':' || OLD.user_id || ':' || OLD.role;
			ELSE
				payload := TG_OP || ':' || NEW.user_id || ':' || NEW.role;
			END IF;
			PERFORM pg_notify('role_assignment_changes', payload);
			RETURN COALESCE(NEW, OLD);
		END;
		$$ LANGUAGE plpgsql;
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TRIGGER user_roles_notify
		AFTER INSERT OR DELETE ON user_roles
		FOR EACH ROW EXECUTE FUNCTION notify_role_assignment_change();
	`)

	return err
}

func mig_20260805091500_role_change_feed_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TRIGGER IF EXISTS user_roles_notify ON user_roles;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DROP FUNCTION IF EXISTS notify_role_assignment_change();`)
	return err
}
