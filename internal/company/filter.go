package company

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

// FilterCriteria selects records by industry and country.
type FilterCriteria struct {
	// IndustrySubstring must occur in the record's industry.
	IndustrySubstring string
	// CountryCode must be one of the record's country codes.
	CountryCode string
	// CaseInsensitive folds case before the industry substring test. The
	// default is a case-sensitive test.
	CaseInsensitive bool
}

// Filter keeps the records whose industry contains the criteria substring
// AND whose country codes contain the criteria country. A record missing
// either attribute fails. Input order is preserved.
func Filter(records []CompanyRecord, c FilterCriteria) []CompanyRecord {
	needle := c.IndustrySubstring
	fold := cases.Fold()
	if c.CaseInsensitive {
		needle = fold.String(needle)
	}

	return lo.Filter(records, func(r CompanyRecord, _ int) bool {
		if r.Industry == nil || len(r.CountryCodes) == 0 {
			return false
		}
		industry := *r.Industry
		if c.CaseInsensitive {
			industry = fold.String(industry)
		}
		return strings.Contains(industry, needle) && r.HasCountry(c.CountryCode)
	})
}
