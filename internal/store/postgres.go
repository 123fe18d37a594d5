package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/item-teatro/comedia-cli/internal/db"
	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/normalize"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS works (
	title      TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS performances (
	identity   TEXT PRIMARY KEY,
	work_title TEXT NOT NULL REFERENCES works(title),
	iso_date   TEXT,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS places (
	name       TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS companies (
	name       TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS decisions (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	candidate_id TEXT NOT NULL,
	verdict      TEXT NOT NULL,
	reviewer     TEXT NOT NULL,
	comment      TEXT,
	decided_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	ts           TIMESTAMPTZ NOT NULL,
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

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) GetWork(ctx context.Context, title string) (*model.Work, error) {
	return pgGetJSON[model.Work](ctx, s.pool, `SELECT data FROM works WHERE title = $1`, "work", title)
}

func (s *PostgresStore) InsertWork(ctx context.Context, w model.Work) error {
	data, err := json.Marshal(w)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal work")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO works (title, data) VALUES ($1, $2)`,
		w.Title, string(data),
	)
	return eris.Wrapf(err, "postgres: insert work %s", w.Title)
}

func (s *PostgresStore) UpdateWork(ctx context.Context, w model.Work) error {
	data, err := json.Marshal(w)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal work")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE works SET data = $1, updated_at = now() WHERE title = $2`,
		string(data), w.Title,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update work %s", w.Title)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("work not found: %s", w.Title)
	}
	return nil
}

func (s *PostgresStore) GetPerformance(ctx context.Context, identityKey string) (*model.Performance, error) {
	return pgGetJSON[model.Performance](ctx, s.pool, `SELECT data FROM performances WHERE identity = $1`, "performance", identityKey)
}

func (s *PostgresStore) InsertPerformance(ctx context.Context, p model.Performance) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal performance")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO performances (identity, work_title, iso_date, data) VALUES ($1, $2, $3, $4)`,
		p.IdentityKey(), p.WorkTitle, p.Date.ISO, string(data),
	)
	return eris.Wrapf(err, "postgres: insert performance %s", p.IdentityKey())
}

func (s *PostgresStore) GetPlace(ctx context.Context, name string) (*model.Place, error) {
	return pgGetJSON[model.Place](ctx, s.pool, `SELECT data FROM places WHERE name = $1`, "place", name)
}

func (s *PostgresStore) InsertPlace(ctx context.Context, p model.Place) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal place")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO places (name, data) VALUES ($1, $2)`,
		p.Name, string(data),
	)
	return eris.Wrapf(err, "postgres: insert place %s", p.Name)
}

// SeedPlaces bulk-upserts every canonical place in the catalog, so a fresh
// shared instance starts with the curated venues already present.
func (s *PostgresStore) SeedPlaces(ctx context.Context, cat *normalize.Catalog) (int64, error) {
	var rows [][]any
	for _, category := range cat.Categories {
		for _, cp := range category.Places {
			place := model.Place{
				Name:    cp.CanonicalName,
				Type:    cp.Type,
				City:    cp.City,
				Region:  cp.Region,
				Country: cp.Country,
			}
			if place.Type == "" {
				place.Type = category.Type
			}
			data, err := json.Marshal(place)
			if err != nil {
				return 0, eris.Wrapf(err, "postgres: marshal catalog place %s", place.Name)
			}
			rows = append(rows, []any{place.Name, string(data)})
		}
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "places",
		Columns:      []string{"name", "data"},
		ConflictKeys: []string{"name"},
	}, rows)
}

func (s *PostgresStore) GetCompany(ctx context.Context, name string) (*model.Company, error) {
	return pgGetJSON[model.Company](ctx, s.pool, `SELECT data FROM companies WHERE name = $1`, "company", name)
}

func (s *PostgresStore) InsertCompany(ctx context.Context, c model.Company) error {
	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal company")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO companies (name, data) VALUES ($1, $2)`,
		c.Name, string(data),
	)
	return eris.Wrapf(err, "postgres: insert company %s", c.Name)
}

func (s *PostgresStore) ListWorks(ctx context.Context) ([]model.Work, error) {
	return pgListJSON[model.Work](ctx, s.pool, `SELECT data FROM works ORDER BY title`, "works")
}

func (s *PostgresStore) ListPerformances(ctx context.Context) ([]model.Performance, error) {
	return pgListJSON[model.Performance](ctx, s.pool, `SELECT data FROM performances ORDER BY work_title, iso_date, identity`, "performances")
}

func (s *PostgresStore) ListPlaces(ctx context.Context) ([]model.Place, error) {
	return pgListJSON[model.Place](ctx, s.pool, `SELECT data FROM places ORDER BY name`, "places")
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	return pgListJSON[model.Company](ctx, s.pool, `SELECT data FROM companies ORDER BY name`, "companies")
}

func (s *PostgresStore) AppendDecision(ctx context.Context, d model.Decision) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO decisions (id, candidate_id, verdict, reviewer, comment, decided_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.CandidateID, string(d.Verdict), d.Reviewer, d.Comment, d.DecidedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: append decision for %s", d.CandidateID)
}

func (s *PostgresStore) LatestDecisions(ctx context.Context) (map[string]model.Decision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, candidate_id, verdict, reviewer, comment, decided_at FROM decisions ORDER BY decided_at, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest decisions")
	}
	defer rows.Close()

	latest := map[string]model.Decision{}
	for rows.Next() {
		d, err := pgScanDecision(rows)
		if err != nil {
			return nil, err
		}
		latest[d.CandidateID] = *d
	}
	return latest, eris.Wrap(rows.Err(), "postgres: latest decisions iterate")
}

func (s *PostgresStore) DecisionHistory(ctx context.Context, candidateID string) ([]model.Decision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, candidate_id, verdict, reviewer, comment, decided_at FROM decisions
		 WHERE candidate_id = $1 ORDER BY decided_at, id`,
		candidateID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: decision history %s", candidateID)
	}
	defer rows.Close()

	var history []model.Decision
	for rows.Next() {
		d, err := pgScanDecision(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *d)
	}
	return history, eris.Wrap(rows.Err(), "postgres: decision history iterate")
}

func (s *PostgresStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, ts, reviewer, candidate_id, tbl, before, after, run_version) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Timestamp.UTC(), e.Reviewer, e.CandidateID, e.Table, e.Before, e.After, e.RunVersion,
	)
	return eris.Wrapf(err, "postgres: append audit for %s", e.CandidateID)
}

func (s *PostgresStore) ListAuditSince(ctx context.Context, since time.Time) ([]AuditEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ts, reviewer, candidate_id, tbl, before, after, run_version FROM audit_log
		 WHERE ts >= $1 ORDER BY ts, id`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit")
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var before, version *string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Reviewer, &e.CandidateID, &e.Table, &before, &e.After, &version); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit")
		}
		if before != nil {
			e.Before = *before
		}
		if version != nil {
			e.RunVersion = *version
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list audit iterate")
}

// helpers

func pgGetJSON[T any](ctx context.Context, pool db.Pool, query, entity string, args ...any) (*T, error) {
	var data string
	err := pool.QueryRow(ctx, query, args...).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s", entity)
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal %s", entity)
	}
	return &v, nil
}

func pgListJSON[T any](ctx context.Context, pool db.Pool, query, entity string) ([]T, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list %s", entity)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", entity)
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal %s", entity)
		}
		out = append(out, v)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: list %s iterate", entity)
}

func pgScanDecision(rows pgx.Rows) (*model.Decision, error) {
	var d model.Decision
	var comment *string
	if err := rows.Scan(&d.ID, &d.CandidateID, &d.Verdict, &d.Reviewer, &comment, &d.DecidedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: scan decision")
	}
	if comment != nil {
		d.Comment = *comment
	}
	return &d, nil
}
