package domain

import "time"

// RiskLevel orders cases by how urgent their real-estate impact is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Rank maps a risk level onto an ordinal scale for comparisons.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// CaseType labels the real-estate category a filing falls into.
type CaseType string

const (
	CasePowerOfSale      CaseType = "POWER_OF_SALE"
	CaseForeclosure      CaseType = "FORECLOSURE"
	CaseReceivership     CaseType = "RECEIVERSHIP"
	CaseBankruptcy       CaseType = "BANKRUPTCY"
	CaseEstateSale       CaseType = "ESTATE_SALE"
	CaseTaxSale          CaseType = "TAX_SALE"
	CaseConstructionLien CaseType = "CONSTRUCTION_LIEN"
	CaseCondoLien        CaseType = "CONDO_LIEN"
	CaseEnvironmental    CaseType = "ENVIRONMENTAL"
	CasePartitionSale    CaseType = "PARTITION_SALE"
	CaseMatrimonial      CaseType = "MATRIMONIAL"
)

// Case is a legal filing discovered from the external bulletin source.
// Rows are append-only: once Classified is set the entity and classification
// fields are frozen and only metadata annotations may change.
type Case struct {
	ID          string
	SourceURL   string
	Court       string
	Title       string
	Summary     string
	FullText    string
	PublishedAt time.Time

	// Filled in by the extraction stage.
	Addresses       []string
	PostalCodes     []string
	Municipalities  []string
	Parties         []string
	Statutes        []string
	CourtFileNumber string

	// Filled in by the classification stage.
	CaseTypes  []CaseType
	RiskLevel  RiskLevel
	Classified bool
	Confidence float64
	Reasoning  []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CombinedText joins the searchable text fields for keyword scanning.
func (c Case) CombinedText() string {
	return c.Title + "\n" + c.Summary + "\n" + c.FullText
}

// HasType reports whether the classifier assigned the given label.
func (c Case) HasType(t CaseType) bool {
	for _, ct := range c.CaseTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// Filing is a candidate entry parsed from the bulletin listing page.
type Filing struct {
	Title string
	URL   string
}
