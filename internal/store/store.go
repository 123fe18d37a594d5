// Package store persists the canonical catalog: works, performances, places,
// companies, reviewer decisions, and the audit log. Two backends exist,
// SQLite for single-researcher runs and Postgres for the shared instance;
// both satisfy Store.
package store

import (
	"context"
	"time"

	"github.com/item-teatro/comedia-cli/internal/model"
)

// AuditEntry is one row of the audit trail. Every effective store mutation
// writes its audit row first, so an interrupted run is detectable by an
// audit row without a matching mutation and is safe to retry.
type AuditEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Reviewer    string    `json:"reviewer"`
	CandidateID string    `json:"candidate_id"`
	Table       string    `json:"table"`
	Before      string    `json:"before,omitempty"`
	After       string    `json:"after"`
	RunVersion  string    `json:"run_version,omitempty"`
}

// Store is the persistence contract the integrator and review surface use.
// Get methods return (nil, nil) when the row is absent.
type Store interface {
	// Works, identity = canonical title.
	GetWork(ctx context.Context, title string) (*model.Work, error)
	InsertWork(ctx context.Context, w model.Work) error
	UpdateWork(ctx context.Context, w model.Work) error

	// Performances, identity = (work, ISO date, company, venue, source).
	GetPerformance(ctx context.Context, identityKey string) (*model.Performance, error)
	InsertPerformance(ctx context.Context, p model.Performance) error

	// Places, identity = canonical name.
	GetPlace(ctx context.Context, name string) (*model.Place, error)
	InsertPlace(ctx context.Context, p model.Place) error

	// Companies, identity = normalized name.
	GetCompany(ctx context.Context, name string) (*model.Company, error)
	InsertCompany(ctx context.Context, c model.Company) error

	// Catalog listings for export, ordered by identity.
	ListWorks(ctx context.Context) ([]model.Work, error)
	ListPerformances(ctx context.Context) ([]model.Performance, error)
	ListPlaces(ctx context.Context) ([]model.Place, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)

	// Decisions are append only; the latest row per candidate id is active.
	AppendDecision(ctx context.Context, d model.Decision) error
	LatestDecisions(ctx context.Context) (map[string]model.Decision, error)
	DecisionHistory(ctx context.Context, candidateID string) ([]model.Decision, error)

	// Audit trail.
	AppendAudit(ctx context.Context, e AuditEntry) error
	ListAuditSince(ctx context.Context, since time.Time) ([]AuditEntry, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
