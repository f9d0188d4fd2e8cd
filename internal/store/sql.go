package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/devfolio/portfolio-api/internal/models"
)

// SQL keeps records as JSON documents in a shared "records" table, one row per
// (collection, id). It runs on SQLite and Postgres; placeholders are written
// as '?' and rebound for Postgres.
type SQL[E any, P models.Ptr[E]] struct {
	db       *sql.DB
	name     string
	postgres bool
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	id BIGINT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE TABLE IF NOT EXISTS sequences (
	collection TEXT PRIMARY KEY,
	next_id BIGINT NOT NULL
);`

// Migrate creates the tables used by the SQL backend.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func NewSQL[E any, P models.Ptr[E]](db *sql.DB, name string, postgres bool) *SQL[E, P] {
	return &SQL[E, P]{db: db, name: name, postgres: postgres}
}

func (s *SQL[E, P]) q(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL[E, P]) List(ctx context.Context) ([]E, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT body FROM records WHERE collection = ? ORDER BY id`), s.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []E{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var e E
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", s.name, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQL[E, P]) Get(ctx context.Context, id int64) (E, error) {
	var e E
	var body string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT body FROM records WHERE collection = ? AND id = ?`), s.name, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	err = json.Unmarshal([]byte(body), &e)
	return e, err
}

func (s *SQL[E, P]) Insert(ctx context.Context, e E) (E, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return e, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO sequences (collection, next_id) VALUES (?, 0) ON CONFLICT (collection) DO NOTHING`), s.name); err != nil {
		return e, err
	}
	var id int64
	if err := tx.QueryRowContext(ctx, s.q(`UPDATE sequences SET next_id = next_id + 1 WHERE collection = ? RETURNING next_id`), s.name).Scan(&id); err != nil {
		return e, fmt.Errorf("next id: %w", err)
	}
	e = withID[E, P](e, id)
	body, err := json.Marshal(e)
	if err != nil {
		return e, err
	}
	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO records (collection, id, body) VALUES (?, ?, ?)`), s.name, id, string(body)); err != nil {
		return e, err
	}
	return e, tx.Commit()
}

func (s *SQL[E, P]) Update(ctx context.Context, id int64, e E) (E, error) {
	e = withID[E, P](e, id)
	body, err := json.Marshal(e)
	if err != nil {
		return e, err
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE records SET body = ? WHERE collection = ? AND id = ?`), string(body), s.name, id)
	if err != nil {
		return e, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return e, err
	} else if n == 0 {
		var zero E
		return zero, ErrNotFound
	}
	return e, nil
}

func (s *SQL[E, P]) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM records WHERE collection = ? AND id = ?`), s.name, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// NewSQLSet migrates db and returns the four collections stored in it.
func NewSQLSet(ctx context.Context, db *sql.DB, postgres bool) (*Set, error) {
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	backend := "sqlite"
	if postgres {
		backend = "postgres"
	}
	return &Set{
		Messages:  NewSQL[models.Message](db, Messages, postgres),
		Ratings:   NewSQL[models.Rating](db, Ratings, postgres),
		BlogPosts: NewSQL[models.BlogPost](db, BlogPosts, postgres),
		Projects:  NewSQL[models.Project](db, Projects, postgres),
		Backend:   backend,
	}, nil
}
