package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
	"github.com/atinyakov/ukarch-cms/internal/db"
	"github.com/atinyakov/ukarch-cms/internal/models"
)

// SQLiteSettingsRepository persists the single settings row (id = 1).
type SQLiteSettingsRepository struct {
	DB *sql.DB
}

// NewSQLiteSettingsRepository creates a new SQLiteSettingsRepository.
func NewSQLiteSettingsRepository(conn *sql.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{DB: conn}
}

// GetAll returns every column of the settings row as text. NULL becomes "".
// A missing row yields an empty map.
func (r *SQLiteSettingsRepository) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT * FROM settings WHERE id = 1`)
	if err != nil {
		return nil, fmt.Errorf("get settings failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get settings failed: %w", err)
	}

	out := make(map[string]string, len(cols))
	if !rows.Next() {
		return out, rows.Err()
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("get settings failed: %w", err)
	}
	for i, c := range cols {
		out[c] = values[i].String
	}
	return out, rows.Err()
}

// Set writes one field in a single upsert.
func (r *SQLiteSettingsRepository) Set(ctx context.Context, field models.SettingField, value string) error {
	return setField(ctx, r.DB, field, value)
}

// SetMany writes all fields in one transaction.
func (r *SQLiteSettingsRepository) SetMany(ctx context.Context, values map[models.SettingField]string) error {
	fields := sortedFields(values)
	for _, f := range fields {
		if _, ok := models.ParseSettingField(string(f)); !ok {
			return apperr.ErrUnknownField
		}
	}
	return db.WithTx(ctx, r.DB, func(ctx context.Context, tx db.DBTX) error {
		for _, f := range fields {
			if err := setField(ctx, tx, f, values[f]); err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureDefaults creates the settings row with defaults when it is absent.
// It reports whether the row was created.
func (r *SQLiteSettingsRepository) EnsureDefaults(ctx context.Context, defaults map[models.SettingField]string) (bool, error) {
	fields := sortedFields(defaults)
	cols := []string{"id"}
	marks := []string{"1"}
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		if _, ok := models.ParseSettingField(string(f)); !ok {
			return false, apperr.ErrUnknownField
		}
		cols = append(cols, string(f))
		marks = append(marks, "?")
		args = append(args, defaults[f])
	}

	res, err := r.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (`+strings.Join(cols, ", ")+`) VALUES (`+strings.Join(marks, ", ")+`)`,
		args...)
	if err != nil {
		return false, fmt.Errorf("ensure settings failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure settings failed: %w", err)
	}
	return n == 1, nil
}

// setField interpolates the column name, so field is re-checked against the
// allow-list first.
func setField(ctx context.Context, q db.DBTX, field models.SettingField, value string) error {
	if _, ok := models.ParseSettingField(string(field)); !ok {
		return apperr.ErrUnknownField
	}
	col := string(field)
	_, err := q.ExecContext(ctx,
		`INSERT INTO settings (id, `+col+`) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET `+col+` = excluded.`+col+`, updated_at = CURRENT_TIMESTAMP`,
		value)
	if err != nil {
		return fmt.Errorf("set setting %s failed: %w", col, err)
	}
	return nil
}

func sortedFields(m map[models.SettingField]string) []models.SettingField {
	fields := make([]models.SettingField, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}
