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

type characterRow struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	IsGroup bool   `db:"is_group"`
	Data    string `db:"data"`
}

func (r characterRow) toModel() (model.Character, error) {
	var c model.Character
	if err := json.Unmarshal([]byte(r.Data), &c); err != nil {
		return c, fmt.Errorf("decode character %s: %w", r.ID, err)
	}
	c.ID, c.Name, c.IsGroup = r.ID, r.Name, r.IsGroup
	c.Normalize()
	return c, nil
}

type characterRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

func NewCharacterRepository(db *sqlx.DB) CharacterRepository {
	return &characterRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(database.Placeholder(db)),
	}
}

// GetByID retrieves a character with its NPCs and DM threads.
func (r *characterRepository) GetByID(ctx context.Context, id string) (*model.Character, error) {
	query, args, err := r.sb.Select("id", "name", "is_group", "data").
		From("characters").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row characterRow
	err = r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCharacterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get character: %w", err)
	}

	c, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Put upserts the whole record.
func (r *characterRepository) Put(ctx context.Context, c *model.Character) error {
	if c.ID == "" || c.Name == "" {
		return model.ErrInvalidCharacter
	}
	c.Normalize()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode character: %w", err)
	}

	query, args, err := r.sb.Insert("characters").
		Columns("id", "name", "is_group", "data").
		Values(c.ID, c.Name, c.IsGroup, string(data)).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = excluded.name, is_group = excluded.is_group, data = excluded.data").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert character %s: %w", c.ID, err)
	}
	return nil
}

// List returns every character ordered by name.
func (r *characterRepository) List(ctx context.Context) ([]model.Character, error) {
	query, args, err := r.sb.Select("id", "name", "is_group", "data").
		From("characters").OrderBy("name", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []characterRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}

	out := make([]model.Character, 0, len(rows))
	for _, row := range rows {
		c, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Delete removes a character. Their posts are left in place.
func (r *characterRepository) Delete(ctx context.Context, id string) error {
	query, args, err := r.sb.Delete("characters").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete character %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrCharacterNotFound
	}
	return nil
}
