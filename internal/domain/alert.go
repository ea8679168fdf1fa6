package domain

import "time"

// AlertType enumerates the user-facing opportunity categories.
type AlertType string

const (
	AlertPowerOfSale    AlertType = "POWER_OF_SALE"
	AlertForeclosure    AlertType = "FORECLOSURE"
	AlertReceivership   AlertType = "RECEIVERSHIP"
	AlertBankruptcySale AlertType = "BANKRUPTCY_SALE"
	AlertTaxSale        AlertType = "TAX_SALE"
	AlertEstateSale     AlertType = "ESTATE_SALE"
	AlertLien           AlertType = "LIEN"
	AlertEnvironmental  AlertType = "ENVIRONMENTAL"
)

// AlertPriority orders alerts by urgency.
type AlertPriority string

const (
	PriorityLow    AlertPriority = "LOW"
	PriorityMedium AlertPriority = "MEDIUM"
	PriorityHigh   AlertPriority = "HIGH"
	PriorityUrgent AlertPriority = "URGENT"
)

// Rank maps a priority onto the ordinal scale LOW=1..URGENT=4.
func (p AlertPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// AlertStatus tracks whether an alert is still actionable.
type AlertStatus string

const (
	AlertActive  AlertStatus = "ACTIVE"
	AlertExpired AlertStatus = "EXPIRED"
)

// Alert is the user-facing opportunity derived from a classified case.
// Core fields are immutable once created; only Status changes afterwards,
// and that transition is owned by an external collaborator.
type Alert struct {
	ID               string
	Title            string
	Description      string
	Address          string
	City             string
	Province         string
	PostalCode       string
	Type             AlertType
	Priority         AlertPriority
	OpportunityScore int
	CaseID           string
	CourtFileNumber  string
	CourtDate        *time.Time
	PropertyType     string
	EstimatedValue   *int64
	Bedrooms         *int
	Status           AlertStatus
	DiscoveredAt     time.Time
}

// AlertFilter narrows alert queries for personalized feeds.
type AlertFilter struct {
	Types               []AlertType
	MinPriorityRank     int
	MinOpportunityScore int
	Cities              []string
	MinValue            *int64
	MaxValue            *int64
	PropertyTypes       []string
	MinBedrooms         *int
	MaxBedrooms         *int
}

// MatchResult pairs an alert with one subscriber's fit for it. It is
// produced on demand for the notification collaborator and never persisted.
type MatchResult struct {
	Alert   Alert
	UserID  string
	Score   int
	Reasons []string
}

// UserAlert records one delivered notification; the pipeline only reads
// these rows to enforce per-day caps.
type UserAlert struct {
	ID         string
	UserID     string
	AlertID    string
	NotifiedAt time.Time
}
