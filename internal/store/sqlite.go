package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/item-teatro/comedia-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS works (
	title      TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS performances (
	identity   TEXT PRIMARY KEY,
	work_title TEXT NOT NULL REFERENCES works(title),
	iso_date   TEXT,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS places (
	name       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS companies (
	name       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS decisions (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	verdict      TEXT NOT NULL,
	reviewer     TEXT NOT NULL,
	comment      TEXT,
	decided_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id           TEXT PRIMARY KEY,
	ts           DATETIME NOT NULL,
	reviewer     TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	tbl          TEXT NOT NULL,
	before       TEXT,
	after        TEXT NOT NULL,
	run_version  TEXT
);

CREATE INDEX IF NOT EXISTS idx_performances_work ON performances(work_title);
CREATE INDEX IF NOT EXISTS idx_performances_date ON performances(iso_date);
CREATE INDEX IF NOT EXISTS idx_decisions_candidate ON decisions(candidate_id, decided_at);
CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetWork(ctx context.Context, title string) (*model.Work, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM works WHERE title = ?`, title)
	return scanJSON[model.Work](row, "work")
}

func (s *SQLiteStore) InsertWork(ctx context.Context, w model.Work) error {
	data, err := json.Marshal(w)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal work")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO works (title, data) VALUES (?, ?)`,
		w.Title, string(data),
	)
	return eris.Wrapf(err, "sqlite: insert work %s", w.Title)
}

func (s *SQLiteStore) UpdateWork(ctx context.Context, w model.Work) error {
	data, err := json.Marshal(w)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal work")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE works SET data = ?, updated_at = ? WHERE title = ?`,
		string(data), time.Now().UTC(), w.Title,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update work %s", w.Title)
	}
	return checkRowsAffected(res, "work", w.Title)
}

func (s *SQLiteStore) GetPerformance(ctx context.Context, identityKey string) (*model.Performance, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM performances WHERE identity = ?`, identityKey)
	return scanJSON[model.Performance](row, "performance")
}

func (s *SQLiteStore) InsertPerformance(ctx context.Context, p model.Performance) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal performance")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO performances (identity, work_title, iso_date, data) VALUES (?, ?, ?, ?)`,
		p.IdentityKey(), p.WorkTitle, p.Date.ISO, string(data),
	)
	return eris.Wrapf(err, "sqlite: insert performance %s", p.IdentityKey())
}

func (s *SQLiteStore) GetPlace(ctx context.Context, name string) (*model.Place, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM places WHERE name = ?`, name)
	return scanJSON[model.Place](row, "place")
}

func (s *SQLiteStore) InsertPlace(ctx context.Context, p model.Place) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal place")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO places (name, data) VALUES (?, ?)`,
		p.Name, string(data),
	)
	return eris.Wrapf(err, "sqlite: insert place %s", p.Name)
}

func (s *SQLiteStore) GetCompany(ctx context.Context, name string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM companies WHERE name = ?`, name)
	return scanJSON[model.Company](row, "company")
}

func (s *SQLiteStore) InsertCompany(ctx context.Context, c model.Company) error {
	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal company")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO companies (name, data) VALUES (?, ?)`,
		c.Name, string(data),
	)
	return eris.Wrapf(err, "sqlite: insert company %s", c.Name)
}

func (s *SQLiteStore) ListWorks(ctx context.Context) ([]model.Work, error) {
	return listJSON[model.Work](ctx, s.db, `SELECT data FROM works ORDER BY title`, "works")
}

func (s *SQLiteStore) ListPerformances(ctx context.Context) ([]model.Performance, error) {
	return listJSON[model.Performance](ctx, s.db, `SELECT data FROM performances ORDER BY work_title, iso_date, identity`, "performances")
}

func (s *SQLiteStore) ListPlaces(ctx context.Context) ([]model.Place, error) {
	return listJSON[model.Place](ctx, s.db, `SELECT data FROM places ORDER BY name`, "places")
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	return listJSON[model.Company](ctx, s.db, `SELECT data FROM companies ORDER BY name`, "companies")
}

func (s *SQLiteStore) AppendDecision(ctx context.Context, d model.Decision) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, candidate_id, verdict, reviewer, comment, decided_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.CandidateID, string(d.Verdict), d.Reviewer, d.Comment, d.DecidedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: append decision for %s", d.CandidateID)
}

func (s *SQLiteStore) LatestDecisions(ctx context.Context) (map[string]model.Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, verdict, reviewer, comment, decided_at FROM decisions ORDER BY decided_at, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest decisions")
	}
	defer rows.Close()

	latest := map[string]model.Decision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		latest[d.CandidateID] = *d
	}
	return latest, eris.Wrap(rows.Err(), "sqlite: latest decisions iterate")
}

func (s *SQLiteStore) DecisionHistory(ctx context.Context, candidateID string) ([]model.Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, verdict, reviewer, comment, decided_at FROM decisions
		 WHERE candidate_id = ? ORDER BY decided_at, id`,
		candidateID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: decision history %s", candidateID)
	}
	defer rows.Close()

	var history []model.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *d)
	}
	return history, eris.Wrap(rows.Err(), "sqlite: decision history iterate")
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, ts, reviewer, candidate_id, tbl, before, after, run_version) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC(), e.Reviewer, e.CandidateID, e.Table, e.Before, e.After, e.RunVersion,
	)
	return eris.Wrapf(err, "sqlite: append audit for %s", e.CandidateID)
}

func (s *SQLiteStore) ListAuditSince(ctx context.Context, since time.Time) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, reviewer, candidate_id, tbl, before, after, run_version FROM audit_log
		 WHERE ts >= ? ORDER BY ts, id`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var before, version sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Reviewer, &e.CandidateID, &e.Table, &before, &e.After, &version); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit")
		}
		e.Before = before.String
		e.RunVersion = version.String
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list audit iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// listJSON reads every row of a single-column JSON query into a slice of T.
func listJSON[T any](ctx context.Context, db *sql.DB, query, entity string) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s", entity)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", entity)
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal %s", entity)
		}
		out = append(out, v)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: list %s iterate", entity)
}

// scanJSON reads a single-column JSON row into T; absence maps to (nil, nil).
func scanJSON[T any](row scannable, entity string) (*T, error) {
	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: scan %s", entity)
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal %s", entity)
	}
	return &v, nil
}

func scanDecision(row scannable) (*model.Decision, error) {
	var d model.Decision
	var comment sql.NullString
	if err := row.Scan(&d.ID, &d.CandidateID, &d.Verdict, &d.Reviewer, &comment, &d.DecidedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan decision")
	}
	d.Comment = comment.String
	return &d, nil
}
