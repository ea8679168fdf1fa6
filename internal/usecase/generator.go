package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"CourtWatch/internal/domain"
	"CourtWatch/internal/ports"
)

// AlertStageDeps wires the alert-generation stage.
type AlertStageDeps struct {
	Queue       ports.QueueRepository
	Cases       ports.CaseRepository
	Alerts      ports.AlertRepository
	MajorCities []string
	BatchSize   int
	Logger      *slog.Logger
	Now         func() time.Time
}

// AlertStage consumes ALERT_GENERATION queue items and creates alert rows
// for qualifying cases. Filings without an address or a known alert-type
// mapping complete as deliberate no-ops.
type AlertStage struct {
	runner      *stageRunner
	alerts      ports.AlertRepository
	majorCities map[string]struct{}
	logger      *slog.Logger
	now         func() time.Time
}

// typeMapping is priority-ordered: the first case type present on the case
// decides the alert type.
var typeMapping = []struct {
	caseType  domain.CaseType
	alertType domain.AlertType
}{
	{domain.CasePowerOfSale, domain.AlertPowerOfSale},
	{domain.CaseReceivership, domain.AlertReceivership},
	{domain.CaseForeclosure, domain.AlertForeclosure},
	{domain.CaseBankruptcy, domain.AlertBankruptcySale},
	{domain.CaseTaxSale, domain.AlertTaxSale},
	{domain.CaseEstateSale, domain.AlertEstateSale},
	{domain.CasePartitionSale, domain.AlertEstateSale},
	{domain.CaseConstructionLien, domain.AlertLien},
	{domain.CaseCondoLien, domain.AlertLien},
	{domain.CaseEnvironmental, domain.AlertEnvironmental},
}

// highOpportunity are the distress categories worth a flat score bonus.
var highOpportunity = map[domain.CaseType]struct{}{
	domain.CasePowerOfSale:  {},
	domain.CaseForeclosure:  {},
	domain.CaseReceivership: {},
	domain.CaseBankruptcy:   {},
}

var alertTypeLabels = map[domain.AlertType]string{
	domain.AlertPowerOfSale:    "Power of Sale",
	domain.AlertForeclosure:    "Foreclosure",
	domain.AlertReceivership:   "Receivership",
	domain.AlertBankruptcySale: "Bankruptcy Sale",
	domain.AlertTaxSale:        "Tax Sale",
	domain.AlertEstateSale:     "Estate Sale",
	domain.AlertLien:           "Lien",
	domain.AlertEnvironmental:  "Environmental",
}

var (
	dollarExpr   = regexp.MustCompile(`\$\s?([\d]{1,3}(?:,\d{3})+|\d{5,})`)
	bedroomExpr  = regexp.MustCompile(`(?i)\b(\d{1,2})[ -]bedroom`)
	courtDateRef = regexp.MustCompile(`(?i)(?:hearing|sale|court)\s+(?:date[d]?|scheduled)\s*(?:for|on|:)?\s+` +
		`((?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4})`)
)

// NewAlertStage constructs the stage with defaults applied.
func NewAlertStage(deps AlertStageDeps) *AlertStage {
	if deps.BatchSize <= 0 {
		deps.BatchSize = 15
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	cities := make(map[string]struct{}, len(deps.MajorCities))
	for _, c := range deps.MajorCities {
		cities[strings.ToLower(c)] = struct{}{}
	}

	s := &AlertStage{
		alerts:      deps.Alerts,
		majorCities: cities,
		logger:      deps.Logger,
		now:         deps.Now,
	}
	s.runner = &stageRunner{
		stage:  domain.StageAlertGeneration,
		queue:  deps.Queue,
		cases:  deps.Cases,
		batch:  deps.BatchSize,
		logger: deps.Logger,
		now:    deps.Now,
		handle: s.handle,
	}
	return s
}

// ProcessPending works through one batch of pending alert jobs.
func (s *AlertStage) ProcessPending(ctx context.Context) error {
	return s.runner.ProcessPending(ctx)
}

func (s *AlertStage) handle(ctx context.Context, item domain.QueueItem, cs domain.Case) error {
	alert, ok := s.Generate(cs)
	if !ok {
		s.logger.Debug("no alert produced", "case_id", cs.ID)
		return nil
	}

	if _, err := s.alerts.Create(ctx, alert); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}

	s.logger.Info("alert created",
		"case_id", cs.ID, "type", alert.Type, "priority", alert.Priority,
		"score", alert.OpportunityScore, "city", alert.City)
	return nil
}

// Generate converts a classified case into an alert. ok is false for the
// legitimate no-output paths: no extracted address, or no case type that
// maps onto an alert type.
func (s *AlertStage) Generate(cs domain.Case) (domain.Alert, bool) {
	if len(cs.Addresses) == 0 {
		return domain.Alert{}, false
	}

	alertType, ok := alertTypeFor(cs)
	if !ok {
		return domain.Alert{}, false
	}

	address := cs.Addresses[0]
	city := ""
	if len(cs.Municipalities) > 0 {
		city = cs.Municipalities[0]
	}
	postal := ""
	if len(cs.PostalCodes) > 0 {
		postal = cs.PostalCodes[0]
	}

	text := cs.CombinedText()
	label := alertTypeLabels[alertType]

	alert := domain.Alert{
		ID:               uuid.NewString(),
		Title:            buildTitle(label, address, city),
		Description:      buildDescription(cs, label),
		Address:          address,
		City:             city,
		Province:         "ON",
		PostalCode:       postal,
		Type:             alertType,
		Priority:         priorityFor(cs.RiskLevel),
		OpportunityScore: s.opportunityScore(cs),
		CaseID:           cs.ID,
		CourtFileNumber:  cs.CourtFileNumber,
		CourtDate:        inferCourtDate(text),
		PropertyType:     inferPropertyType(text),
		EstimatedValue:   inferEstimatedValue(text),
		Bedrooms:         inferBedrooms(text),
		Status:           domain.AlertActive,
		DiscoveredAt:     s.now(),
	}
	return alert, true
}

func alertTypeFor(cs domain.Case) (domain.AlertType, bool) {
	for _, m := range typeMapping {
		if cs.HasType(m.caseType) {
			return m.alertType, true
		}
	}
	return "", false
}

func priorityFor(risk domain.RiskLevel) domain.AlertPriority {
	switch risk {
	case domain.RiskCritical:
		return domain.PriorityUrgent
	case domain.RiskHigh:
		return domain.PriorityHigh
	case domain.RiskMedium:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// opportunityScore follows the fixed additive rule: base 50, risk bump,
// distress-category bump, major-city bump, clamped to [0, 100].
func (s *AlertStage) opportunityScore(cs domain.Case) int {
	score := 50

	switch {
	case cs.RiskLevel.Rank() >= domain.RiskHigh.Rank():
		score += 30
	case cs.RiskLevel == domain.RiskMedium:
		score += 15
	}

	for _, t := range cs.CaseTypes {
		if _, ok := highOpportunity[t]; ok {
			score += 20
			break
		}
	}

	for _, m := range cs.Municipalities {
		if _, ok := s.majorCities[strings.ToLower(m)]; ok {
			score += 10
			break
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func buildTitle(label, address, city string) string {
	if city != "" {
		return fmt.Sprintf("%s: %s, %s", label, address, city)
	}
	return fmt.Sprintf("%s: %s", label, address)
}

func buildDescription(cs domain.Case, label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s opportunity discovered in court filing %q.", label, cs.Title)
	if cs.CourtFileNumber != "" {
		fmt.Fprintf(&b, " Court file %s.", cs.CourtFileNumber)
	}
	if len(cs.Parties) > 0 {
		fmt.Fprintf(&b, " Parties: %s.", strings.Join(cs.Parties, "; "))
	}
	if cs.Summary != "" {
		fmt.Fprintf(&b, " %s", snippet(cs.Summary, 280))
	}
	return b.String()
}

func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}

func inferPropertyType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "condominium"), strings.Contains(lower, "condo unit"):
		return "Condominium"
	case strings.Contains(lower, "townhouse"), strings.Contains(lower, "row house"):
		return "Townhouse"
	case strings.Contains(lower, "apartment"):
		return "Apartment"
	case strings.Contains(lower, "vacant land"), strings.Contains(lower, "vacant lot"):
		return "Land"
	case strings.Contains(lower, "commercial"), strings.Contains(lower, "industrial"), strings.Contains(lower, "plaza"):
		return "Commercial"
	case strings.Contains(lower, "farm"), strings.Contains(lower, "agricultural"):
		return "Agricultural"
	case strings.Contains(lower, "detached"), strings.Contains(lower, "single-family"), strings.Contains(lower, "single family"):
		return "Detached"
	default:
		return ""
	}
}

// inferEstimatedValue takes the largest dollar figure of at least $50,000;
// smaller amounts are almost always costs or arrears, not property values.
func inferEstimatedValue(text string) *int64 {
	var best int64
	for _, m := range dollarExpr.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if v >= 50_000 && v > best {
			best = v
		}
	}
	if best == 0 {
		return nil
	}
	return &best
}

func inferBedrooms(text string) *int {
	m := bedroomExpr.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return nil
	}
	return &n
}

func inferCourtDate(text string) *time.Time {
	m := courtDateRef.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	t, err := time.Parse("January 2 2006", raw)
	if err != nil {
		return nil
	}
	return &t
}
