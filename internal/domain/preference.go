package domain

// User is a subscriber account, read-only to the pipeline.
type User struct {
	ID     string
	Email  string
	Name   string
	Active bool
}

// AlertPreference is a subscriber's matching profile. It is owned and
// mutated by the web layer; the pipeline only evaluates against it.
type AlertPreference struct {
	UserID              string
	Cities              []string
	AlertTypes          []AlertType
	MinPriority         AlertPriority
	MinOpportunityScore int
	MinValue            *int64
	MaxValue            *int64
	PropertyTypes       []string
	MinBedrooms         *int
	MaxBedrooms         *int
	QuietHoursStart     string
	QuietHoursEnd       string
	MaxAlertsPerDay     int
}

// WantsType reports whether the alert type is in the preferred set.
func (p AlertPreference) WantsType(t AlertType) bool {
	for _, at := range p.AlertTypes {
		if at == t {
			return true
		}
	}
	return false
}

// Subscriber couples a user with their preference profile for matching.
type Subscriber struct {
	User       User
	Preference AlertPreference
}
