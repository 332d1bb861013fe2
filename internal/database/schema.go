package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// Embedded sequences (likes, comments, npc library, dms) live in JSON text columns.
const postsTableSQLite = `
CREATE TABLE IF NOT EXISTS weibo_posts (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	author_id           TEXT    NOT NULL,
	author_type         TEXT    NOT NULL,
	author_nickname     TEXT    NOT NULL DEFAULT '',
	author_avatar       TEXT    NOT NULL DEFAULT '',
	content             TEXT    NOT NULL DEFAULT '',
	image_url           TEXT    NOT NULL DEFAULT '',
	image_description   TEXT    NOT NULL DEFAULT '',
	hidden_content      TEXT    NOT NULL DEFAULT '',
	post_type           TEXT    NOT NULL,
	timestamp           INTEGER NOT NULL,
	likes               TEXT    NOT NULL DEFAULT '[]',
	comments            TEXT    NOT NULL DEFAULT '[]',
	base_likes_count    INTEGER NOT NULL DEFAULT 0,
	base_comments_count INTEGER NOT NULL DEFAULT 0
)`

const postsTablePostgres = `
CREATE TABLE IF NOT EXISTS weibo_posts (
	id                  BIGSERIAL PRIMARY KEY,
	author_id           TEXT    NOT NULL,
	author_type         TEXT    NOT NULL,
	author_nickname     TEXT    NOT NULL DEFAULT '',
	author_avatar       TEXT    NOT NULL DEFAULT '',
	content             TEXT    NOT NULL DEFAULT '',
	image_url           TEXT    NOT NULL DEFAULT '',
	image_description   TEXT    NOT NULL DEFAULT '',
	hidden_content      TEXT    NOT NULL DEFAULT '',
	post_type           TEXT    NOT NULL,
	timestamp           BIGINT  NOT NULL,
	likes               TEXT    NOT NULL DEFAULT '[]',
	comments            TEXT    NOT NULL DEFAULT '[]',
	base_likes_count    INTEGER NOT NULL DEFAULT 0,
	base_comments_count INTEGER NOT NULL DEFAULT 0
)`

var commonDDL = []string{
	`CREATE INDEX IF NOT EXISTS idx_weibo_posts_author ON weibo_posts (author_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_weibo_posts_timestamp ON weibo_posts (timestamp)`,
	`CREATE TABLE IF NOT EXISTS characters (
		id       TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		is_group BOOLEAN NOT NULL DEFAULT FALSE,
		data     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_settings (
		id   INTEGER PRIMARY KEY,
		data TEXT NOT NULL
	)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(db *sqlx.DB) error {
	stmts := []string{postsTableSQLite}
	if db.DriverName() == "postgres" {
		stmts = []string{postsTablePostgres}
	}
	stmts = append(stmts, commonDDL...)

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	log.Printf("[Database] Migrate OK: driver=%s statements=%d", db.DriverName(), len(stmts))
	return nil
}
