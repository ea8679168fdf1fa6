package extract

import (
	"regexp"
	"strings"
)

// Entities holds the structured fields pulled out of raw filing text.
type Entities struct {
	Addresses       []string
	PostalCodes     []string
	Municipalities  []string
	Parties         []string
	Statutes        []string
	CourtFileNumber string
}

// Extractor runs deterministic pattern tables over filing text. It keeps no
// state between calls; construct once and share.
type Extractor struct {
	municipalities []string
}

var (
	addressExpr = regexp.MustCompile(`(?i)\b\d{1,5}[A-Za-z]?\s+(?:[A-Z][A-Za-z'.-]*\s+){0,3}` +
		`(?:Street|St\.?|Avenue|Ave\.?|Road|Rd\.?|Boulevard|Blvd\.?|Drive|Dr\.?|Court|Crt\.?|` +
		`Crescent|Cres\.?|Lane|Ln\.?|Way|Place|Pl\.?|Trail|Terrace|Circle|Parkway|Pkwy\.?|Highway|Hwy\.?)\b`)

	postalExpr = regexp.MustCompile(`(?i)\b[ABCEGHJ-NPRSTVXY]\d[A-Z][ -]?\d[A-Z]\d\b`)

	// Party names adjacent to a role keyword, in either order:
	// "Plaintiff: Jane Doe" / "Jane Doe, Plaintiff" / "Estate of John Smith".
	roleFirstExpr = regexp.MustCompile(`(?:Plaintiff|Defendant|Applicant|Respondent|Executor|Executrix|` +
		`Trustee|Receiver|Mortgagee|Mortgagor|Creditor|Debtor)s?\s*[:,]\s*((?:[A-Z][\w'.-]*[,.]?\s+){0,4}[A-Z][\w'.-]*)`)
	nameFirstExpr = regexp.MustCompile(`((?:[A-Z][\w'.-]*\s+){1,4}[A-Z][\w'.-]*)\s*,\s*(?:the\s+)?` +
		`(?:Plaintiff|Defendant|Applicant|Respondent|Executor|Executrix|Trustee|Receiver|Mortgagee|Mortgagor|Creditor|Debtor)\b`)
	estateExpr = regexp.MustCompile(`Estate\s+of\s+((?:[A-Z][\w'.-]*\s+){0,3}[A-Z][\w'.-]*)`)

	// Statute titles are capitalized words joined by short connectors, so a
	// sentence-initial capital a few words earlier never drags into the match.
	statuteExpr = regexp.MustCompile(`\b([A-Z][A-Za-z']*(?:\s+(?:[A-Z][A-Za-z']*|of|and|the)){0,4}\s+Act)` +
		`(?:\s*,\s*(?:R\.?S\.?O\.?|R\.?S\.?C\.?|S\.?O\.?|S\.?C\.?)\s*\.?\s*\d{4}[^.;\n]*)?`)

	fileNumberExpr = regexp.MustCompile(`(?i)\bCourt\s+File\s+(?:No\.?|Number)\s*[:.]?\s*([A-Z0-9][A-Z0-9-]{3,})`)
	docketExpr     = regexp.MustCompile(`\b(?:CV|CR|FC|ES|BK)-\d{2}-\d{4,}(?:-\d{4})?\b`)
)

// knownMunicipalities is the default lookup list for municipality hits.
var knownMunicipalities = []string{
	"Toronto", "Ottawa", "Mississauga", "Brampton", "Hamilton", "London",
	"Markham", "Vaughan", "Kitchener", "Windsor", "Richmond Hill", "Oakville",
	"Burlington", "Oshawa", "Barrie", "Sudbury", "Kingston", "Guelph",
	"Whitby", "Ajax", "Thunder Bay", "Waterloo", "St. Catharines",
	"Niagara Falls", "Newmarket", "Peterborough", "Milton", "Pickering",
	"Cambridge", "Brantford",
}

// New builds an extractor with the default municipality list.
func New() *Extractor {
	return &Extractor{municipalities: knownMunicipalities}
}

// NewWithMunicipalities overrides the lookup list, mainly for tests.
func NewWithMunicipalities(municipalities []string) *Extractor {
	return &Extractor{municipalities: municipalities}
}

// Extract runs every pattern table over the text and returns the structured
// result. Output order follows first appearance in the text.
func (e *Extractor) Extract(text string) Entities {
	var out Entities
	out.Addresses = dedupe(collectMatches(addressExpr, text))
	out.PostalCodes = dedupe(normalizePostals(collectMatches(postalExpr, text)))
	out.Municipalities = e.findMunicipalities(text)
	out.Parties = e.findParties(text)
	out.Statutes = dedupe(collectMatches(statuteExpr, text))
	out.CourtFileNumber = findFileNumber(text)
	return out
}

func (e *Extractor) findMunicipalities(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, city := range e.municipalities {
		idx := strings.Index(lower, strings.ToLower(city))
		if idx < 0 {
			continue
		}
		// Reject substring hits inside longer words ("Ajax" in "Ajaxes").
		end := idx + len(city)
		if idx > 0 && isWordChar(lower[idx-1]) {
			continue
		}
		if end < len(lower) && isWordChar(lower[end]) {
			continue
		}
		found = append(found, city)
	}
	return found
}

func (e *Extractor) findParties(text string) []string {
	var parties []string
	for _, expr := range []*regexp.Regexp{roleFirstExpr, nameFirstExpr, estateExpr} {
		for _, m := range expr.FindAllStringSubmatch(text, -1) {
			name := strings.TrimRight(strings.TrimSpace(m[1]), ",.")
			if name != "" {
				parties = append(parties, name)
			}
		}
	}
	return dedupe(parties)
}

func findFileNumber(text string) string {
	if m := fileNumberExpr.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(strings.TrimRight(m[1], ".,"))
	}
	return docketExpr.FindString(text)
}

func collectMatches(expr *regexp.Regexp, text string) []string {
	raw := expr.FindAllString(text, -1)
	cleaned := make([]string, 0, len(raw))
	for _, m := range raw {
		cleaned = append(cleaned, strings.TrimSpace(m))
	}
	return cleaned
}

func normalizePostals(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.ReplaceAll(c, "-", " "))
		if len(c) == 6 {
			c = c[:3] + " " + c[3:]
		}
		out = append(out, c)
	}
	return out
}

func dedupe(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
