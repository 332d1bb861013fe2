package database

import (
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"weibosim/internal/config"
)

// Connect opens the store selected by cfg.DBDriver.
func Connect(cfg *config.Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.DBDriver {
	case config.DriverPostgres:
		dsn := cfg.DBDSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
				cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
		}
		db, err = sqlx.Connect("postgres", dsn)
	default:
		db, err = OpenSQLite(cfg.DBDSN)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("Connected to database successfully: driver=%s", db.DriverName())
	return db, nil
}

// OpenSQLite opens a SQLite database. ":memory:" is supported.
func OpenSQLite(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		log.Printf("[Database] WAL not enabled: %v", err)
	}
	return db, nil
}

// Placeholder returns the squirrel placeholder format for db's driver.
func Placeholder(db *sqlx.DB) sq.PlaceholderFormat {
	if db.DriverName() == "postgres" {
		return sq.Dollar
	}
	return sq.Question
}
