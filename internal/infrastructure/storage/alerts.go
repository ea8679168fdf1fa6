package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"CourtWatch/internal/domain"
	"CourtWatch/internal/ports"
)

// AlertRepository stores generated alerts and serves the matcher's queries.
type AlertRepository struct {
	db *sql.DB
}

var _ ports.AlertRepository = (*AlertRepository)(nil)

var alertColumns = []string{
	"id", "title", "description", "address", "city", "province", "postal_code",
	"alert_type", "priority", "opportunity_score", "case_id", "court_file_number",
	"court_date", "property_type", "estimated_value", "bedrooms", "status",
	"discovered_at",
}

// NewAlertRepository wires a sql.DB implementation.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts the alert and returns its id.
func (r *AlertRepository) Create(ctx context.Context, a domain.Alert) (string, error) {
	query := psql.Insert("alerts").
		Columns(alertColumns...).
		Values(a.ID, a.Title, a.Description, a.Address, a.City, a.Province,
			a.PostalCode, string(a.Type), string(a.Priority), a.OpportunityScore,
			a.CaseID, a.CourtFileNumber, a.CourtDate, a.PropertyType,
			a.EstimatedValue, a.Bedrooms, string(a.Status), a.DiscoveredAt)

	if _, err := query.RunWith(r.db).ExecContext(ctx); err != nil {
		return "", fmt.Errorf("insert alert for case %s: %w", a.CaseID, err)
	}
	return a.ID, nil
}

// ActiveHighPriority is the profile-less fallback feed.
func (r *AlertRepository) ActiveHighPriority(ctx context.Context, limit int) ([]domain.Alert, error) {
	query := psql.Select(alertColumns...).
		From("alerts").
		Where(sq.Eq{"status": string(domain.AlertActive), "priority": string(domain.PriorityHigh)}).
		OrderBy(priorityRankSQL+" DESC", "discovered_at DESC").
		Limit(uint64(limit))

	return r.queryAlerts(ctx, query)
}

// Search applies the preference-derived filter and returns alerts ordered by
// opportunity score, priority, then recency.
func (r *AlertRepository) Search(ctx context.Context, f domain.AlertFilter, limit int) ([]domain.Alert, error) {
	query := psql.Select(alertColumns...).
		From("alerts").
		Where(sq.Eq{"status": string(domain.AlertActive)}).
		OrderBy("opportunity_score DESC", priorityRankSQL+" DESC", "discovered_at DESC").
		Limit(uint64(limit))

	if len(f.Types) > 0 {
		types := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			types = append(types, string(t))
		}
		query = query.Where(sq.Eq{"alert_type": types})
	}
	if f.MinPriorityRank > 0 {
		query = query.Where(sq.Expr(priorityRankSQL+" >= ?", f.MinPriorityRank))
	}
	if f.MinOpportunityScore > 0 {
		query = query.Where(sq.GtOrEq{"opportunity_score": f.MinOpportunityScore})
	}
	if len(f.Cities) > 0 {
		cities := make([]string, 0, len(f.Cities))
		for _, c := range f.Cities {
			cities = append(cities, strings.ToLower(c))
		}
		query = query.Where(sq.Eq{"LOWER(city)": cities})
	}
	if f.MinValue != nil {
		query = query.Where(sq.GtOrEq{"estimated_value": *f.MinValue})
	}
	if f.MaxValue != nil {
		query = query.Where(sq.LtOrEq{"estimated_value": *f.MaxValue})
	}
	if len(f.PropertyTypes) > 0 {
		props := make([]string, 0, len(f.PropertyTypes))
		for _, p := range f.PropertyTypes {
			props = append(props, strings.ToLower(p))
		}
		query = query.Where(sq.Eq{"LOWER(property_type)": props})
	}
	if f.MinBedrooms != nil {
		query = query.Where(sq.GtOrEq{"bedrooms": *f.MinBedrooms})
	}
	if f.MaxBedrooms != nil {
		query = query.Where(sq.LtOrEq{"bedrooms": *f.MaxBedrooms})
	}

	return r.queryAlerts(ctx, query)
}

func (r *AlertRepository) queryAlerts(ctx context.Context, query sq.SelectBuilder) ([]domain.Alert, error) {
	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var (
			a         domain.Alert
			alertType string
			priority  string
			status    string
			courtDate sql.NullTime
			value     sql.NullInt64
			bedrooms  sql.NullInt64
		)
		err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Address, &a.City,
			&a.Province, &a.PostalCode, &alertType, &priority, &a.OpportunityScore,
			&a.CaseID, &a.CourtFileNumber, &courtDate, &a.PropertyType,
			&value, &bedrooms, &status, &a.DiscoveredAt)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}

		a.Type = domain.AlertType(alertType)
		a.Priority = domain.AlertPriority(priority)
		a.Status = domain.AlertStatus(status)
		if courtDate.Valid {
			a.CourtDate = &courtDate.Time
		}
		if value.Valid {
			v := value.Int64
			a.EstimatedValue = &v
		}
		if bedrooms.Valid {
			b := int(bedrooms.Int64)
			a.Bedrooms = &b
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return alerts, nil
}
