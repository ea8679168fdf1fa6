package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAddresses(t *testing.T) {
	t.Parallel()

	text := "The lands known municipally as 123 Main Street, Toronto, together with " +
		"the parcel at 500 King St. will be offered for sale. " +
		"Inquiries respecting 123 Main Street may be directed to the mortgagee."

	got := New().Extract(text)

	require.Len(t, got.Addresses, 2, "repeat mentions collapse to one entry")
	assert.Equal(t, "123 Main Street", got.Addresses[0])
	assert.Equal(t, "500 King St", got.Addresses[1])
}

func TestExtractPostalCodesNormalized(t *testing.T) {
	t.Parallel()

	text := "Toronto ON M5V 3L9; also styled m4b-1b3 and K1A0B1 in older filings."

	got := New().Extract(text)

	assert.Equal(t, []string{"M5V 3L9", "M4B 1B3", "K1A 0B1"}, got.PostalCodes)
}

func TestFindMunicipalitiesWordBoundary(t *testing.T) {
	t.Parallel()

	e := NewWithMunicipalities([]string{"Ajax", "Toronto"})

	got := e.Extract("Ajax Holdings Inc., a company carrying on business in Toronto.")
	assert.Equal(t, []string{"Ajax", "Toronto"}, got.Municipalities)

	got = e.Extract("The Ajaxes partnership holds no Ontario property.")
	assert.Empty(t, got.Municipalities, "substring inside a longer word is not a hit")
}

func TestExtractParties(t *testing.T) {
	t.Parallel()

	text := "Plaintiff: Jane Doe and John Smith, Defendant, claim an interest " +
		"in the Estate of Mary Alice Brown."

	got := New().Extract(text)

	assert.Contains(t, got.Parties, "Jane Doe")
	assert.Contains(t, got.Parties, "John Smith")
	assert.Contains(t, got.Parties, "Mary Alice Brown")
}

func TestExtractStatutes(t *testing.T) {
	t.Parallel()

	text := "Sale conducted under the Mortgages Act pursuant to proceedings " +
		"commenced under the Bankruptcy and Insolvency Act."

	got := New().Extract(text)

	require.Len(t, got.Statutes, 2)
	assert.Equal(t, "Mortgages Act", got.Statutes[0])
	assert.Equal(t, "Bankruptcy and Insolvency Act", got.Statutes[1])
}

func TestFindFileNumber(t *testing.T) {
	t.Parallel()

	got := New().Extract("Court File No.: CV-26-00123456 Ontario Superior Court of Justice")
	assert.Equal(t, "CV-26-00123456", got.CourtFileNumber)

	// Without the labelled form, a bare docket reference still counts.
	got = New().Extract("In the matter of proceeding CV-24-7321 the court orders as follows.")
	assert.Equal(t, "CV-24-7321", got.CourtFileNumber)

	got = New().Extract("No docket is cited anywhere in this notice.")
	assert.Empty(t, got.CourtFileNumber)
}

func TestExtractEmptyText(t *testing.T) {
	t.Parallel()

	got := New().Extract("")

	assert.Empty(t, got.Addresses)
	assert.Empty(t, got.PostalCodes)
	assert.Empty(t, got.Municipalities)
	assert.Empty(t, got.Parties)
	assert.Empty(t, got.Statutes)
	assert.Empty(t, got.CourtFileNumber)
}
