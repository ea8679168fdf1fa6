package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"CourtWatch/internal/domain"
	"CourtWatch/internal/ports"
)

// PreferenceRepository reads subscriber matching profiles. The web layer
// owns writes; the pipeline only evaluates against them.
type PreferenceRepository struct {
	db *sql.DB
}

var _ ports.PreferenceRepository = (*PreferenceRepository)(nil)

var preferenceColumns = []string{
	"p.user_id", "p.cities", "p.alert_types", "p.min_priority",
	"p.min_opportunity_score", "p.min_value", "p.max_value", "p.property_types",
	"p.min_bedrooms", "p.max_bedrooms", "p.quiet_hours_start",
	"p.quiet_hours_end", "p.max_alerts_per_day",
}

// NewPreferenceRepository wires a sql.DB implementation.
func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// ByUser returns the user's profile, or nil when none exists.
func (r *PreferenceRepository) ByUser(ctx context.Context, userID string) (*domain.AlertPreference, error) {
	query := psql.Select(preferenceColumns...).
		From("alert_preferences p").
		Where(sq.Eq{"p.user_id": userID})

	pref, err := scanPreference(query.RunWith(r.db).QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preference for user %s: %w", userID, err)
	}
	return &pref, nil
}

// ActiveSubscribers lists every active user with a preference profile.
func (r *PreferenceRepository) ActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	cols := append([]string{"u.id", "u.email", "u.name"}, preferenceColumns...)
	query := psql.Select(cols...).
		From("alert_preferences p").
		Join("users u ON u.id = p.user_id").
		Where(sq.Eq{"u.active": true})

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []domain.Subscriber
	for rows.Next() {
		var (
			sub        domain.Subscriber
			alertTypes []string
			priority   string
			minValue   sql.NullInt64
			maxValue   sql.NullInt64
			minBeds    sql.NullInt64
			maxBeds    sql.NullInt64
		)
		err := rows.Scan(&sub.User.ID, &sub.User.Email, &sub.User.Name,
			&sub.Preference.UserID,
			pq.Array(&sub.Preference.Cities), pq.Array(&alertTypes), &priority,
			&sub.Preference.MinOpportunityScore, &minValue, &maxValue,
			pq.Array(&sub.Preference.PropertyTypes), &minBeds, &maxBeds,
			&sub.Preference.QuietHoursStart, &sub.Preference.QuietHoursEnd,
			&sub.Preference.MaxAlertsPerDay)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}

		sub.User.Active = true
		applyPreferenceScans(&sub.Preference, alertTypes, priority, minValue, maxValue, minBeds, maxBeds)
		subscribers = append(subscribers, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return subscribers, nil
}

func scanPreference(row sq.RowScanner) (domain.AlertPreference, error) {
	var (
		pref       domain.AlertPreference
		alertTypes []string
		priority   string
		minValue   sql.NullInt64
		maxValue   sql.NullInt64
		minBeds    sql.NullInt64
		maxBeds    sql.NullInt64
	)
	err := row.Scan(&pref.UserID,
		pq.Array(&pref.Cities), pq.Array(&alertTypes), &priority,
		&pref.MinOpportunityScore, &minValue, &maxValue,
		pq.Array(&pref.PropertyTypes), &minBeds, &maxBeds,
		&pref.QuietHoursStart, &pref.QuietHoursEnd, &pref.MaxAlertsPerDay)
	if err != nil {
		return domain.AlertPreference{}, err
	}

	applyPreferenceScans(&pref, alertTypes, priority, minValue, maxValue, minBeds, maxBeds)
	return pref, nil
}

func applyPreferenceScans(pref *domain.AlertPreference, alertTypes []string, priority string,
	minValue, maxValue, minBeds, maxBeds sql.NullInt64) {
	pref.MinPriority = domain.AlertPriority(priority)
	pref.AlertTypes = make([]domain.AlertType, 0, len(alertTypes))
	for _, t := range alertTypes {
		pref.AlertTypes = append(pref.AlertTypes, domain.AlertType(t))
	}
	if minValue.Valid {
		v := minValue.Int64
		pref.MinValue = &v
	}
	if maxValue.Valid {
		v := maxValue.Int64
		pref.MaxValue = &v
	}
	if minBeds.Valid {
		v := int(minBeds.Int64)
		pref.MinBedrooms = &v
	}
	if maxBeds.Valid {
		v := int(maxBeds.Int64)
		pref.MaxBedrooms = &v
	}
}

// UserAlertRepository counts delivered notifications for the daily cap.
type UserAlertRepository struct {
	db *sql.DB
}

var _ ports.UserAlertRepository = (*UserAlertRepository)(nil)

// NewUserAlertRepository wires a sql.DB implementation.
func NewUserAlertRepository(db *sql.DB) *UserAlertRepository {
	return &UserAlertRepository{db: db}
}

// CountNotifiedSince counts the user's notifications delivered at or after
// the given instant.
func (r *UserAlertRepository) CountNotifiedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query := psql.Select("COUNT(*)").
		From("user_alerts").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"notified_at": since})

	var count int
	if err := query.RunWith(r.db).QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications for user %s: %w", userID, err)
	}
	return count, nil
}
