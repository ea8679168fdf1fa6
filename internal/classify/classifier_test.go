package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CourtWatch/internal/domain"
)

func TestClassifyPowerOfSaleNotice(t *testing.T) {
	t.Parallel()

	cs := domain.Case{
		Title:   "Notice of Power of Sale",
		Summary: "The mortgagee gives notice of power of sale following mortgage default.",
	}

	got := New().Classify(cs)

	// Two keywords (5 each) plus the notice-of-sale pattern (8) put the label
	// far past the floor with no competing category.
	require.Equal(t, []domain.CaseType{domain.CasePowerOfSale}, got.CaseTypes)
	assert.Equal(t, domain.RiskHigh, got.RiskLevel)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.NotEmpty(t, got.Reasoning)
	assert.True(t, Alertable(got))
}

func TestClassifyAbsoluteFloorExcludesWeakSignal(t *testing.T) {
	t.Parallel()

	c := NewWithRules([]Rule{
		{Type: domain.CaseForeclosure, Weight: 20, Risk: domain.RiskHigh, Keywords: []string{"alpha"}},
		{Type: domain.CaseMatrimonial, Weight: 4, Risk: domain.RiskLow, Keywords: []string{"beta"}},
		{Type: domain.CaseTaxSale, Weight: 16, Risk: domain.RiskHigh, Keywords: []string{"gamma"}},
	})

	// Scores: foreclosure 10, matrimonial 2, tax sale 8; total 20, so both
	// floors land on 3 and only the 2-point label falls under.
	got := c.Classify(domain.Case{FullText: "alpha beta gamma"})

	assert.Equal(t, []domain.CaseType{domain.CaseForeclosure, domain.CaseTaxSale}, got.CaseTypes)
	assert.Equal(t, domain.RiskHigh, got.RiskLevel, "excluded label never contributes risk")
}

func TestClassifyRelativeFloorScalesWithTotal(t *testing.T) {
	t.Parallel()

	c := NewWithRules([]Rule{
		{Type: domain.CaseReceivership, Weight: 60, Risk: domain.RiskCritical, Keywords: []string{"alpha"}},
		{Type: domain.CaseCondoLien, Weight: 8, Risk: domain.RiskMedium, Keywords: []string{"beta"}},
	})

	// Scores: receivership 30, condo lien 4. The lien clears the absolute
	// floor but not 15% of the total (5.1), so it is dropped.
	got := c.Classify(domain.Case{FullText: "alpha beta"})

	assert.Equal(t, []domain.CaseType{domain.CaseReceivership}, got.CaseTypes)
	assert.Equal(t, domain.RiskCritical, got.RiskLevel)
}

func TestClassifyMultipleLabelsRiskIsMax(t *testing.T) {
	t.Parallel()

	c := NewWithRules([]Rule{
		{Type: domain.CaseEstateSale, Weight: 10, Risk: domain.RiskMedium, Keywords: []string{"alpha"}},
		{Type: domain.CaseBankruptcy, Weight: 8, Risk: domain.RiskCritical, Keywords: []string{"beta"}},
	})

	got := c.Classify(domain.Case{FullText: "alpha beta"})

	require.Equal(t, []domain.CaseType{domain.CaseEstateSale, domain.CaseBankruptcy}, got.CaseTypes,
		"labels sorted by score")
	assert.Equal(t, domain.RiskCritical, got.RiskLevel)
}

func TestClassifyConfidenceSaturates(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"power of sale", "mortgage default", "mortgage arrears",
		"foreclosure", "receivership", "bankruptcy", "tax sale",
	}, " ")

	got := New().Classify(domain.Case{FullText: text})

	assert.Equal(t, 1.0, got.Confidence)
}

func TestClassifyNoSignal(t *testing.T) {
	t.Parallel()

	got := New().Classify(domain.Case{FullText: "routine scheduling endorsement, no relief sought"})

	assert.Empty(t, got.CaseTypes)
	assert.Equal(t, domain.RiskLow, got.RiskLevel)
	assert.Zero(t, got.Confidence)
	assert.False(t, Alertable(got))
}

func TestAlertableSetOverridesRisk(t *testing.T) {
	t.Parallel()

	assert.False(t, Alertable(Result{
		CaseTypes: []domain.CaseType{domain.CaseEstateSale},
		RiskLevel: domain.RiskMedium,
	}))
	assert.True(t, Alertable(Result{
		CaseTypes: []domain.CaseType{domain.CaseBankruptcy},
		RiskLevel: domain.RiskMedium,
	}), "always-alertable category ignores the risk gate")
	assert.True(t, Alertable(Result{RiskLevel: domain.RiskCritical}))
}
