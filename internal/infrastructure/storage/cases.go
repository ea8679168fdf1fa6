package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"CourtWatch/internal/domain"
	"CourtWatch/internal/ports"
)

// CaseRepository persists cases in the cases table. Text collections live in
// text[] columns via pq.Array.
type CaseRepository struct {
	db *sql.DB
}

var _ ports.CaseRepository = (*CaseRepository)(nil)

// NewCaseRepository wires a sql.DB implementation.
func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// InsertIfAbsent inserts the case keyed by source URL. An existing row is
// never overwritten; its id is returned with inserted=false.
func (r *CaseRepository) InsertIfAbsent(ctx context.Context, c domain.Case) (string, bool, error) {
	query := psql.Insert("cases").
		Columns("id", "source_url", "court", "title", "summary", "full_text",
			"published_at", "risk_level", "created_at", "updated_at").
		Values(c.ID, c.SourceURL, c.Court, c.Title, c.Summary, c.FullText,
			c.PublishedAt, string(c.RiskLevel), c.CreatedAt, c.UpdatedAt).
		Suffix("ON CONFLICT (source_url) DO NOTHING RETURNING id")

	var id string
	err := query.RunWith(r.db).QueryRowContext(ctx).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("insert case: %w", err)
	}

	// Conflict path: fetch the existing row's id.
	err = psql.Select("id").From("cases").Where(sq.Eq{"source_url": c.SourceURL}).
		RunWith(r.db).QueryRowContext(ctx).Scan(&id)
	if err != nil {
		return "", false, fmt.Errorf("lookup existing case: %w", err)
	}
	return id, false, nil
}

// ByID loads one case with all derived fields.
func (r *CaseRepository) ByID(ctx context.Context, id string) (domain.Case, error) {
	query := psql.Select("id", "source_url", "court", "title", "summary", "full_text",
		"published_at", "addresses", "postal_codes", "municipalities", "parties",
		"statutes", "court_file_number", "case_types", "risk_level", "classified",
		"confidence", "reasoning", "created_at", "updated_at").
		From("cases").Where(sq.Eq{"id": id})

	var (
		c         domain.Case
		risk      string
		caseTypes []string
	)
	err := query.RunWith(r.db).QueryRowContext(ctx).Scan(
		&c.ID, &c.SourceURL, &c.Court, &c.Title, &c.Summary, &c.FullText,
		&c.PublishedAt,
		pq.Array(&c.Addresses), pq.Array(&c.PostalCodes), pq.Array(&c.Municipalities),
		pq.Array(&c.Parties), pq.Array(&c.Statutes),
		&c.CourtFileNumber,
		pq.Array(&caseTypes), &risk, &c.Classified, &c.Confidence,
		pq.Array(&c.Reasoning),
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Case{}, fmt.Errorf("load case %s: %w", id, err)
	}

	c.RiskLevel = domain.RiskLevel(risk)
	c.CaseTypes = make([]domain.CaseType, 0, len(caseTypes))
	for _, t := range caseTypes {
		c.CaseTypes = append(c.CaseTypes, domain.CaseType(t))
	}
	return c, nil
}

// SaveEntities stores the extraction-stage fields.
func (r *CaseRepository) SaveEntities(ctx context.Context, c domain.Case) error {
	query := psql.Update("cases").
		Set("addresses", pq.Array(c.Addresses)).
		Set("postal_codes", pq.Array(c.PostalCodes)).
		Set("municipalities", pq.Array(c.Municipalities)).
		Set("parties", pq.Array(c.Parties)).
		Set("statutes", pq.Array(c.Statutes)).
		Set("court_file_number", c.CourtFileNumber).
		Set("updated_at", c.UpdatedAt).
		Where(sq.Eq{"id": c.ID})

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("save entities for case %s: %w", c.ID, err)
	}
	return nil
}

// SaveClassification stores the classification-stage fields. The guard on
// classified keeps closed cases immutable even if a stale job slips through.
func (r *CaseRepository) SaveClassification(ctx context.Context, c domain.Case) error {
	caseTypes := make([]string, 0, len(c.CaseTypes))
	for _, t := range c.CaseTypes {
		caseTypes = append(caseTypes, string(t))
	}

	query := psql.Update("cases").
		Set("case_types", pq.Array(caseTypes)).
		Set("risk_level", string(c.RiskLevel)).
		Set("classified", true).
		Set("confidence", c.Confidence).
		Set("reasoning", pq.Array(c.Reasoning)).
		Set("updated_at", c.UpdatedAt).
		Where(sq.Eq{"id": c.ID, "classified": false})

	res, err := query.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("save classification for case %s: %w", c.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("case %s is already classified", c.ID)
	}
	return nil
}
