// Package store persists games and rounds into sqlite, either a local file or
// a libsql server.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"geostat/internal/components/telemetry"
	"geostat/internal/config"
	"geostat/internal/db"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const (
	report_store_open   = "store.open"
	report_store_schema = "store.init-schema"
	report_store_save   = "store.save-game"
)

// ErrDuplicateGame is returned when a game id is already stored, the rows
// from the earlier scrape are kept untouched.
var ErrDuplicateGame = errors.New("store: game already stored")

// SchemaConflictError means the target store already holds a schema, it is
// only overwritten when the caller removes it first.
type SchemaConflictError struct {
	Path string
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("store: %s already exists, remove it or pass --force", e.Path)
}

type Store struct {
	db      *sql.DB
	qry     *db.Queries
	tel     telemetry.API
	path    string
	existed bool
	remote  bool
}

// Open opens the store described by cfg. A set Url wins over File.
func Open(ctx context.Context, cfg config.Store, tel telemetry.API) (*Store, error) {
	tel = telemetry.NewScopedAPI("store", tel)

	if cfg.Url != "" {
		dsn := cfg.Url
		if cfg.AuthToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", cfg.Url, cfg.AuthToken)
		}
		database, err := sql.Open("libsql", dsn)
		if err != nil {
			tel.ReportBroken(report_store_open, err, cfg.Url)
			return nil, err
		}
		err = database.PingContext(ctx)
		if err != nil {
			database.Close()
			tel.ReportBroken(report_store_open, err, cfg.Url)
			return nil, fmt.Errorf("connect %s: %w", cfg.Url, err)
		}
		s := newStore(database, tel, cfg.Url, false)
		s.remote = true
		return s, nil
	}

	_, err := os.Stat(cfg.File)
	existed := err == nil
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	database, err := sql.Open("sqlite", cfg.File)
	if err != nil {
		tel.ReportBroken(report_store_open, err, cfg.File)
		return nil, err
	}
	database.SetMaxOpenConns(1)

	return newStore(database, tel, cfg.File, existed), nil
}

func newStore(database *sql.DB, tel telemetry.API, path string, existed bool) *Store {
	return &Store{
		db:      database,
		qry:     db.New(database),
		tel:     tel,
		path:    path,
		existed: existed,
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path is the file or url the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// InitSchema creates the games and rounds tables. It refuses with a
// SchemaConflictError when the file existed before Open or already carries
// the games table, in which case nothing is written.
func (s *Store) InitSchema(ctx context.Context) error {
	if s.existed {
		return &SchemaConflictError{Path: s.path}
	}
	exists, err := s.qry.TableExists(ctx, "games")
	if err != nil {
		s.tel.ReportBroken(report_store_schema, err)
		return err
	}
	if exists {
		return &SchemaConflictError{Path: s.path}
	}

	if !s.remote {
		// journal mode is stored in the file, later opens inherit it
		_, err = s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL")
		if err != nil {
			s.tel.ReportBroken(report_store_schema, err)
			return fmt.Errorf("enable wal on %s: %w", s.path, err)
		}
	}

	_, err = s.db.ExecContext(ctx, db.Schema)
	if err != nil {
		s.tel.ReportBroken(report_store_schema, err)
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Remove deletes a sqlite file together with its wal and shm companions, a
// missing file is not an error.
func Remove(path string) error {
	for _, name := range []string{path, path + "-wal", path + "-shm"} {
		err := os.Remove(name)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
