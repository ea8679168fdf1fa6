package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"CourtWatch/internal/domain"
)

const (
	keywordFactor = 0.5
	patternFactor = 0.8
	// A label needs either the absolute floor or 15% of the total signal,
	// whichever is larger, so one weak keyword on a case dominated by a
	// different category never produces a stray label.
	absoluteFloor  = 3.0
	relativeFloor  = 0.15
	confidenceNorm = 20.0
)

// Rule binds one case-type label to weighted keyword and pattern signals.
type Rule struct {
	Type     domain.CaseType
	Keywords []string
	Patterns []*regexp.Regexp
	Weight   float64
	Risk     domain.RiskLevel
}

// Result is the classification outcome for a single case.
type Result struct {
	CaseTypes  []domain.CaseType
	RiskLevel  domain.RiskLevel
	Confidence float64
	Reasoning  []string
}

// Classifier scores case text against a fixed rule table. It holds no
// per-case state; scoring is a pure function of (text, rules).
type Classifier struct {
	rules []Rule
}

// alwaysAlertable are the categories queued for alert generation no matter
// what the blended risk level came out to.
var alwaysAlertable = map[domain.CaseType]struct{}{
	domain.CasePowerOfSale:   {},
	domain.CaseForeclosure:   {},
	domain.CaseReceivership:  {},
	domain.CaseBankruptcy:    {},
	domain.CaseEnvironmental: {},
}

// New builds a classifier over the default rule table.
func New() *Classifier {
	return &Classifier{rules: defaultRules()}
}

// NewWithRules substitutes the rule table, mainly for tests.
func NewWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify scores the case's combined text against every rule and returns
// the labels that clear the selection threshold.
func (c *Classifier) Classify(cs domain.Case) Result {
	text := strings.ToLower(cs.CombinedText())

	scores := map[domain.CaseType]float64{}
	risks := map[domain.CaseType]domain.RiskLevel{}
	var reasoning []string
	var total float64

	for _, rule := range c.rules {
		var ruleScore float64
		for _, kw := range rule.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				pts := rule.Weight * keywordFactor
				ruleScore += pts
				reasoning = append(reasoning, fmt.Sprintf("keyword %q (+%.1f) for %s", kw, pts, rule.Type))
			}
		}
		for _, expr := range rule.Patterns {
			if expr.MatchString(text) {
				pts := rule.Weight * patternFactor
				ruleScore += pts
				reasoning = append(reasoning, fmt.Sprintf("pattern %q (+%.1f) for %s", expr.String(), pts, rule.Type))
			}
		}
		if ruleScore == 0 {
			continue
		}
		scores[rule.Type] += ruleScore
		total += ruleScore
		if risks[rule.Type].Rank() < rule.Risk.Rank() {
			risks[rule.Type] = rule.Risk
		}
	}

	threshold := absoluteFloor
	if rel := relativeFloor * total; rel > threshold {
		threshold = rel
	}

	var selected []domain.CaseType
	for t, score := range scores {
		if score >= threshold {
			selected = append(selected, t)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		if scores[selected[i]] != scores[selected[j]] {
			return scores[selected[i]] > scores[selected[j]]
		}
		return selected[i] < selected[j]
	})

	risk := domain.RiskLow
	for _, t := range selected {
		if risks[t].Rank() > risk.Rank() {
			risk = risks[t]
		}
	}

	confidence := total / confidenceNorm
	if confidence > 1 {
		confidence = 1
	}

	return Result{
		CaseTypes:  selected,
		RiskLevel:  risk,
		Confidence: confidence,
		Reasoning:  reasoning,
	}
}

// Alertable reports whether the result should be queued for alert
// generation: high blended risk, or any label in the always-alertable set.
func Alertable(r Result) bool {
	if r.RiskLevel.Rank() >= domain.RiskHigh.Rank() {
		return true
	}
	for _, t := range r.CaseTypes {
		if _, ok := alwaysAlertable[t]; ok {
			return true
		}
	}
	return false
}

func defaultRules() []Rule {
	return []Rule{
		{
			Type:    domain.CasePowerOfSale,
			Weight:  10,
			Risk:    domain.RiskHigh,
			Keywords: []string{"power of sale", "notice of sale under mortgage", "mortgage default", "mortgage arrears"},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`notice\s+of\s+(?:power\s+of\s+)?sale`),
				regexp.MustCompile(`mortgagee.{0,40}possession`),
			},
		},
		{
			Type:    domain.CaseForeclosure,
			Weight:  10,
			Risk:    domain.RiskHigh,
			Keywords: []string{"foreclosure", "foreclose", "final order of foreclosure"},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`action\s+for\s+foreclosure`),
			},
		},
		{
			Type:    domain.CaseReceivership,
			Weight:  9,
			Risk:    domain.RiskCritical,
			Keywords: []string{"receivership", "appointment of receiver", "receiver and manager", "interim receiver"},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`receiver\s+(?:of|over)\s+(?:the\s+)?(?:property|assets|lands)`),
			},
		},
		{
			Type:    domain.CaseBankruptcy,
			Weight:  9,
			Risk:    domain.RiskCritical,
			Keywords: []string{"bankruptcy", "bankrupt", "insolvency", "proposal to creditors"},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`bankruptcy\s+and\s+insolvency\s+act`),
				regexp.MustCompile(`assignment\s+in(?:to)?\s+bankruptcy`),
			},
		},
		{
			Type:    domain.CaseTaxSale,
			Weight:  8,
			Risk:    domain.RiskHigh,
			Keywords: []string{"tax sale", "tax arrears", "municipal tax sale"},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`sale\s+of\s+land\s+(?:by\s+public\s+tender\s+)?for\s+tax\s+arrears`),
			},
		},
		{
			Type:    domain.CaseEstateSale,
			Weight:  6,
			Risk:    domain.RiskMedium,
			Keywords: []string{"estate sale", "estate trustee", "probate", "deceased", "certificate of appointment"},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`estate\s+of\s+the\s+late`),
			},
		},
		{
			Type:    domain.CaseConstructionLien,
			Weight:  6,
			Risk:    domain.RiskMedium,
			Keywords: []string{"construction lien", "mechanics lien", "certificate of action", "lien claimant"},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`construction\s+act.{0,60}lien`),
			},
		},
		{
			Type:    domain.CaseCondoLien,
			Weight:  5,
			Risk:    domain.RiskMedium,
			Keywords: []string{"condominium lien", "common expense arrears", "condominium corporation"},
			Patterns: nil,
		},
		{
			Type:    domain.CaseEnvironmental,
			Weight:  8,
			Risk:    domain.RiskHigh,
			Keywords: []string{"environmental contamination", "contaminated site", "remediation order", "environmental protection act"},
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`record\s+of\s+site\s+condition`),
			},
		},
		{
			Type:    domain.CasePartitionSale,
			Weight:  5,
			Risk:    domain.RiskMedium,
			Keywords: []string{"partition and sale", "partition act"},
			Patterns: nil,
		},
		{
			Type:    domain.CaseMatrimonial,
			Weight:  4,
			Risk:    domain.RiskLow,
			Keywords: []string{"matrimonial home", "family law act", "equalization of net family property"},
			Patterns: nil,
		},
	}
}
