// Package company defines the canonical company record and the pure
// reconciliation steps (domain normalization, filtering, multi-source merge)
// applied to records collected from lead sources.
package company

import "time"

// Known source names.
const (
	SourcePlaces   = "places"
	SourceLinkedIn = "linkedin"
	SourceManual   = "manual"
)

// CompanyRecord is one company as seen from a single source or after merge.
// Optional fields are pointers (or empty slices) so that "unset" is part of
// the type rather than a sentinel value.
type CompanyRecord struct { //nolint:revive // stutters but reads better at call sites
	Name          string     `json:"company_name"`
	Website       string     `json:"website,omitempty"`
	Domain        string     `json:"domain,omitempty"`
	Industry      *string    `json:"industry,omitempty"`
	EmployeeCount *int       `json:"employee_count,omitempty"`
	Address       *string    `json:"address,omitempty"`
	CountryCodes  []string   `json:"country_code,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	Rating        *float64   `json:"rating,omitempty"`
	PlaceID       string     `json:"place_id,omitempty"`
	SearchTerm    string     `json:"search_term,omitempty"`
	ScrapedAt     *time.Time `json:"scraped_at,omitempty"`
	SourceTags    []string   `json:"source_tags,omitempty"`
}

// HasKey reports whether the record carries either a domain or a name.
// Records without both are meaningless and never survive a merge.
func (r CompanyRecord) HasKey() bool {
	return r.Domain != "" || r.Name != ""
}

// HasCountry reports whether code is one of the record's country codes.
func (r CompanyRecord) HasCountry(code string) bool {
	for _, c := range r.CountryCodes {
		if c == code {
			return true
		}
	}
	return false
}

// IndustryString returns the industry or "" when unset.
func (r CompanyRecord) IndustryString() string {
	if r.Industry == nil {
		return ""
	}
	return *r.Industry
}

// ScoredCompanyRecord is a CompanyRecord plus its likelihood score. It is
// produced by the scorer and never mutated afterward.
type ScoredCompanyRecord struct {
	CompanyRecord
	LikelihoodScore float64 `json:"likelihood_score"`
	EmployeeScore   float64 `json:"employee_score"`
	IndustryScore   float64 `json:"industry_score"`
}

// Contact is a person returned by a contact-discovery provider.
type Contact struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Email       string `json:"email,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// VerificationStatus is the per-email result from the verification provider.
type VerificationStatus string

// Verification statuses. StatusNotProvided and StatusError are local
// sentinels; the rest are reported by the provider.
const (
	StatusValid       VerificationStatus = "valid"
	StatusInvalid     VerificationStatus = "invalid"
	StatusUnknown     VerificationStatus = "unknown"
	StatusCatchAll    VerificationStatus = "catchall"
	StatusDisposable  VerificationStatus = "disposable"
	StatusNotProvided VerificationStatus = "not_provided"
	StatusError       VerificationStatus = "verification_error"
)

// Lead is a contact at a qualified company together with its email status.
type Lead struct {
	CompanyName     string  `json:"company_name"`
	Domain          string  `json:"domain"`
	LikelihoodScore float64 `json:"likelihood_score"`
	Contact
	Status VerificationStatus `json:"status"`
}

// Valid reports whether the lead's email verified as deliverable.
func (l Lead) Valid() bool {
	return l.Status == StatusValid
}
