package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"CourtWatch/internal/domain"
	"CourtWatch/internal/ports"
)

// matchThreshold is the final gate. The three required gates alone are worth
// exactly 50 points, so a match with no positive soft signals sits right on
// the boundary; the comparison must stay >=.
const matchThreshold = 50

// MatcherDeps wires the alert matcher.
type MatcherDeps struct {
	Alerts      ports.AlertRepository
	Preferences ports.PreferenceRepository
	UserAlerts  ports.UserAlertRepository
	Location    *time.Location
	Logger      *slog.Logger
	Now         func() time.Time
}

// Matcher scores alerts against subscriber preference profiles. Both entry
// points are pure read computations; nothing is persisted.
type Matcher struct {
	alerts      ports.AlertRepository
	preferences ports.PreferenceRepository
	userAlerts  ports.UserAlertRepository
	loc         *time.Location
	logger      *slog.Logger
	now         func() time.Time
}

// NewMatcher constructs the matcher with defaults applied.
func NewMatcher(deps MatcherDeps) *Matcher {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Matcher{
		alerts:      deps.Alerts,
		preferences: deps.Preferences,
		userAlerts:  deps.UserAlerts,
		loc:         deps.Location,
		logger:      deps.Logger,
		now:         deps.Now,
	}
}

// FindMatchingUsers evaluates the alert against every active subscriber's
// profile and returns the matches ranked by score descending. Non-matching
// subscribers are excluded entirely rather than returned at score zero.
func (m *Matcher) FindMatchingUsers(ctx context.Context, alert domain.Alert) ([]domain.MatchResult, error) {
	subscribers, err := m.preferences.ActiveSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}

	var results []domain.MatchResult
	for _, sub := range subscribers {
		score, reasons, ok := EvaluateMatch(alert, sub.Preference)
		if !ok {
			continue
		}
		results = append(results, domain.MatchResult{
			Alert:   alert,
			UserID:  sub.User.ID,
			Score:   score,
			Reasons: reasons,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	m.logger.Debug("alert matched", "alert_id", alert.ID, "candidates", len(subscribers), "matches", len(results))
	return results, nil
}

// PersonalizedAlerts returns the best alerts for one subscriber. Users
// without a profile fall back to the active HIGH-priority feed so new
// accounts still see signal.
func (m *Matcher) PersonalizedAlerts(ctx context.Context, userID string, limit int) ([]domain.Alert, error) {
	pref, err := m.preferences.ByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load preference: %w", err)
	}

	if pref == nil {
		return m.alerts.ActiveHighPriority(ctx, limit)
	}

	filter := domain.AlertFilter{
		Types:               pref.AlertTypes,
		MinPriorityRank:     pref.MinPriority.Rank(),
		MinOpportunityScore: pref.MinOpportunityScore,
		Cities:              pref.Cities,
		MinValue:            pref.MinValue,
		MaxValue:            pref.MaxValue,
		PropertyTypes:       pref.PropertyTypes,
		MinBedrooms:         pref.MinBedrooms,
		MaxBedrooms:         pref.MaxBedrooms,
	}
	return m.alerts.Search(ctx, filter, limit)
}

// HasReachedDailyLimit counts notifications delivered since local midnight
// against the profile's daily cap. No profile, or no cap, means no limit.
func (m *Matcher) HasReachedDailyLimit(ctx context.Context, userID string) (bool, error) {
	pref, err := m.preferences.ByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load preference: %w", err)
	}
	if pref == nil || pref.MaxAlertsPerDay <= 0 {
		return false, nil
	}

	now := m.now().In(m.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, m.loc)

	count, err := m.userAlerts.CountNotifiedSince(ctx, userID, midnight)
	if err != nil {
		return false, fmt.Errorf("count notifications: %w", err)
	}
	return count >= pref.MaxAlertsPerDay, nil
}

// InQuietHours reports whether the current local time falls inside the
// profile's quiet window. A start after the end means the window crosses
// midnight. Unset bounds disable quiet hours entirely.
func (m *Matcher) InQuietHours(pref *domain.AlertPreference) bool {
	if pref == nil || pref.QuietHoursStart == "" || pref.QuietHoursEnd == "" {
		return false
	}

	start := m.parseClock(pref.QuietHoursStart)
	end := m.parseClock(pref.QuietHoursEnd)

	now := m.now().In(m.loc)
	current := now.Hour()*100 + now.Minute()

	if start > end {
		return current >= start || current <= end
	}
	return current >= start && current <= end
}

// parseClock converts "HH:MM" into an HHMM integer. Malformed values
// degrade to midnight with a warning instead of failing the caller.
func (m *Matcher) parseClock(value string) int {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		m.logger.Warn("malformed quiet-hours time", "value", value)
		return 0
	}
	hour, errH := strconv.Atoi(parts[0])
	minute, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		m.logger.Warn("malformed quiet-hours time", "value", value)
		return 0
	}
	return hour*100 + minute
}

// EvaluateMatch scores one alert against one preference profile. The three
// required gates (type, priority, opportunity score) each fail the match
// outright; everything after them only adjusts the score.
func EvaluateMatch(alert domain.Alert, pref domain.AlertPreference) (score int, reasons []string, ok bool) {
	if !pref.WantsType(alert.Type) {
		return 0, nil, false
	}
	if alert.Priority.Rank() < pref.MinPriority.Rank() {
		return 0, nil, false
	}
	if alert.OpportunityScore < pref.MinOpportunityScore {
		return 0, nil, false
	}

	score = 0
	score += 20
	reasons = append(reasons, fmt.Sprintf("Matches preferred alert type: %s", alert.Type))
	score += 15
	reasons = append(reasons, fmt.Sprintf("Priority %s meets minimum %s", alert.Priority, pref.MinPriority))
	score += 15
	reasons = append(reasons, fmt.Sprintf("Opportunity score %d meets minimum %d", alert.OpportunityScore, pref.MinOpportunityScore))

	// City is a soft signal once the hard gates pass: a miss still leaves
	// the alert eligible, just with a smaller bump.
	if len(pref.Cities) > 0 {
		if city := matchedCity(alert.City, pref.Cities); city != "" {
			score += 25
			reasons = append(reasons, fmt.Sprintf("Located in preferred city: %s", city))
		} else {
			score += 5
		}
	}

	if alert.EstimatedValue != nil {
		v := *alert.EstimatedValue
		below := pref.MinValue != nil && v < *pref.MinValue
		above := pref.MaxValue != nil && v > *pref.MaxValue
		switch {
		case below || above:
			score -= 10
			reasons = append(reasons, "Estimated value outside preferred range")
		case pref.MinValue != nil && pref.MaxValue != nil:
			score += 10
			reasons = append(reasons, "Estimated value within preferred range")
		}
	}

	if len(pref.PropertyTypes) > 0 {
		if matchedProperty(alert.PropertyType, pref.PropertyTypes) {
			score += 15
			reasons = append(reasons, fmt.Sprintf("Preferred property type: %s", alert.PropertyType))
		} else {
			score -= 5
		}
	}

	if alert.Bedrooms != nil {
		b := *alert.Bedrooms
		outside := (pref.MinBedrooms != nil && b < *pref.MinBedrooms) ||
			(pref.MaxBedrooms != nil && b > *pref.MaxBedrooms)
		switch {
		case outside:
			score -= 5
		case pref.MinBedrooms != nil && pref.MaxBedrooms != nil:
			score += 5
			reasons = append(reasons, "Bedroom count within preferred range")
		}
	}

	switch {
	case alert.OpportunityScore >= 80:
		score += 10
		reasons = append(reasons, "Exceptional opportunity score")
	case alert.OpportunityScore >= 60:
		score += 5
	}

	if score < matchThreshold {
		return 0, nil, false
	}
	return score, reasons, true
}

func matchedCity(city string, preferred []string) string {
	if city == "" {
		return ""
	}
	lower := strings.ToLower(city)
	for _, p := range preferred {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return p
		}
	}
	return ""
}

func matchedProperty(propertyType string, preferred []string) bool {
	if propertyType == "" {
		return false
	}
	for _, p := range preferred {
		if strings.EqualFold(propertyType, p) {
			return true
		}
	}
	return false
}
