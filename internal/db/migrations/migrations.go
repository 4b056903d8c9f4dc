// Package migrations holds the versioned schema steps. SQL files are
// embedded; steps that must inspect the existing structure are written in Go.
// Every step is a no-op when its target shape is already present.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/atinyakov/ukarch-cms/internal/models"
)

//go:embed *.sql
var SQL embed.FS

// Go returns the Go-defined migrations.
func Go() []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(3, &goose.GoFunc{RunTx: SettingsSingleRow}, nil),
		goose.NewGoMigration(4, &goose.GoFunc{RunTx: SettingsAllFields}, nil),
		goose.NewGoMigration(5, &goose.GoFunc{RunTx: UsersLegacyColumns}, nil),
	}
}

// SettingsSingleRow creates the single-row settings table. A legacy
// key/value table is renamed to settings_legacy_<unix> and its recognized
// keys are copied into the new row.
func SettingsSingleRow(ctx context.Context, tx *sql.Tx) error {
	cols, err := tableColumns(ctx, tx, "settings")
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return createSettings(ctx, tx)
	}
	if cols["id"] && !cols["key"] {
		return nil
	}

	legacy := map[string]string{}
	if cols["key"] && cols["value"] {
		legacy, err = readLegacySettings(ctx, tx)
		if err != nil {
			return err
		}
	}

	backup := fmt.Sprintf("settings_legacy_%d", time.Now().Unix())
	if _, err := tx.ExecContext(ctx, `ALTER TABLE settings RENAME TO `+backup); err != nil {
		return fmt.Errorf("backup legacy settings: %w", err)
	}
	if err := createSettings(ctx, tx); err != nil {
		return err
	}
	if len(legacy) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO settings (id) VALUES (1)`); err != nil {
		return fmt.Errorf("insert settings row: %w", err)
	}

	for key, value := range legacy {
		field, ok := models.ParseSettingField(key)
		if !ok {
			continue
		}
		if err := addColumnIfMissing(ctx, tx, "settings", string(field), "TEXT DEFAULT ''"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE settings SET `+string(field)+` = ? WHERE id = 1`, value); err != nil {
			return fmt.Errorf("restore setting %s: %w", field, err)
		}
	}
	return nil
}

// SettingsAllFields adds every recognized field that the table lacks.
func SettingsAllFields(ctx context.Context, tx *sql.Tx) error {
	for _, f := range models.AllSettingFields() {
		if err := addColumnIfMissing(ctx, tx, "settings", string(f), "TEXT DEFAULT ''"); err != nil {
			return err
		}
	}
	return nil
}

// UsersLegacyColumns brings users tables created by older releases up to
// the current column set.
func UsersLegacyColumns(ctx context.Context, tx *sql.Tx) error {
	for _, c := range []struct{ name, def string }{
		{"role", "TEXT NOT NULL DEFAULT 'user'"},
		{"reset_token", "TEXT"},
		{"reset_token_expires", "INTEGER"},
		{"last_login", "DATETIME"},
	} {
		if err := addColumnIfMissing(ctx, tx, "users", c.name, c.def); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileSettings adds any recognized settings field the table lacks. It
// runs after the versioned steps on every start, so fields added to the
// recognized set reach databases that already applied version 4.
func ReconcileSettings(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings reconcile: %w", err)
	}
	if err := SettingsAllFields(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings reconcile: %w", err)
	}
	return nil
}

func createSettings(ctx context.Context, tx *sql.Tx) error {
	var b strings.Builder
	b.WriteString("CREATE TABLE settings (\n    id INTEGER PRIMARY KEY CHECK (id = 1),\n")
	for _, f := range models.BaseSettingFields {
		fmt.Fprintf(&b, "    %s TEXT DEFAULT '',\n", f)
	}
	b.WriteString("    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,\n")
	b.WriteString("    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP\n)")

	if _, err := tx.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create settings: %w", err)
	}
	return nil
}

func readLegacySettings(ctx context.Context, tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("read legacy settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var key, value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			// best effort: unreadable rows stay in the backup table
			continue
		}
		if key.Valid {
			out[key.String] = value.String
		}
	}
	return out, rows.Err()
}

func tableColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("inspect %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// addColumnIfMissing interpolates table and column; callers pass constants
// or allow-listed field names only.
func addColumnIfMissing(ctx context.Context, tx *sql.Tx, table, column, def string) error {
	cols, err := tableColumns(ctx, tx, table)
	if err != nil {
		return err
	}
	if len(cols) == 0 || cols[column] {
		return nil
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, def)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	return nil
}
