package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"weibosim/internal/database"
	"weibosim/internal/model"
)

const settingsRowID = 1

type settingsRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

func NewSettingsRepository(db *sqlx.DB) SettingsRepository {
	return &settingsRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(database.Placeholder(db)),
	}
}

// Get loads the singleton record.
func (r *settingsRepository) Get(ctx context.Context) (*model.UserSettings, error) {
	query, args, err := r.sb.Select("data").From("user_settings").
		Where(sq.Eq{"id": settingsRowID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var data string
	err = r.db.GetContext(ctx, &data, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		s := model.DefaultUserSettings()
		return &s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	s := model.DefaultUserSettings()
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	s.Normalize()
	return &s, nil
}

// Put replaces the singleton record.
func (r *settingsRepository) Put(ctx context.Context, s *model.UserSettings) error {
	s.Normalize()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	query, args, err := r.sb.Insert("user_settings").
		Columns("id", "data").
		Values(settingsRowID, string(data)).
		Suffix("ON CONFLICT (id) DO UPDATE SET data = excluded.data").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
