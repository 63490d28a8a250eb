package company

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// RawRecord is a company as delivered by a source payload. Sources disagree on
// key names and value shapes, so decoding accepts the known aliases and
// coerces values into the optional-field form used by CompanyRecord.
type RawRecord struct {
	Name          string
	Website       string
	Industry      *string
	EmployeeCount *int
	Address       *string
	CountryCodes  []string
	Phone         *string
	Rating        *float64
	PlaceID       string
	SearchTerm    string
}

var (
	nameKeys     = []string{"name", "company_name"}
	websiteKeys  = []string{"website", "website_url", "url"}
	industryKeys = []string{"industry", "industries"}
	employeeKeys = []string{"employee_count", "employees", "company_size"}
	addressKeys  = []string{"address", "formatted_address"}
	countryKeys  = []string{"country_code", "country_codes", "countries_code"}
	phoneKeys    = []string{"phone", "formatted_phone_number"}
)

// UnmarshalJSON decodes a loosely-shaped source object.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return eris.Wrap(err, "company: decode raw record")
	}

	r.Name = firstString(fields, nameKeys)
	r.Website = firstString(fields, websiteKeys)
	r.PlaceID = firstString(fields, []string{"place_id"})
	r.SearchTerm = firstString(fields, []string{"search_term"})

	if s := firstString(fields, industryKeys); s != "" {
		r.Industry = &s
	}
	if s := firstString(fields, addressKeys); s != "" {
		r.Address = &s
	}
	if s := firstString(fields, phoneKeys); s != "" {
		r.Phone = &s
	}
	if n, ok := firstInt(fields, employeeKeys); ok {
		r.EmployeeCount = &n
	}
	if raw, ok := fields["rating"]; ok {
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			r.Rating = &f
		}
	}
	r.CountryCodes = firstStrings(fields, countryKeys)

	return nil
}

// ToRecord converts the raw payload into a CompanyRecord tagged with source.
// The domain is derived from the website; an unusable website leaves it empty.
func (r RawRecord) ToRecord(source string) CompanyRecord {
	rec := CompanyRecord{
		Name:          strings.TrimSpace(r.Name),
		Website:       strings.TrimSpace(r.Website),
		Industry:      r.Industry,
		EmployeeCount: r.EmployeeCount,
		Address:       r.Address,
		CountryCodes:  r.CountryCodes,
		Phone:         r.Phone,
		Rating:        r.Rating,
		PlaceID:       r.PlaceID,
		SearchTerm:    r.SearchTerm,
	}
	if d, ok := NormalizeDomain(rec.Website); ok {
		rec.Domain = d
	}
	if source != "" {
		rec.SourceTags = []string{source}
	}
	return rec
}

// DecodeRawRecords parses a JSON array of source objects and converts every
// entry into a CompanyRecord for the named source.
func DecodeRawRecords(data []byte, source string) ([]CompanyRecord, error) {
	var raw []RawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "company: decode %s records", source)
	}
	out := make([]CompanyRecord, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.ToRecord(source))
	}
	return out, nil
}

func firstString(fields map[string]json.RawMessage, keys []string) string {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		if s := coerceString(raw); s != "" {
			return s
		}
	}
	return ""
}

// coerceString accepts a JSON string, number, or array of strings (joined
// with ", "). null and other shapes yield "".
func coerceString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}

// maxEmployeeCount bounds accepted employee counts.
const maxEmployeeCount = math.MaxInt32

func firstInt(fields map[string]json.RawMessage, keys []string) (int, bool) {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var num json.Number
		if err := json.Unmarshal(raw, &num); err == nil {
			if n, ok := employeeCount(num.String()); ok {
				return n, true
			}
			zap.L().Debug("company: employee count not a whole number in range",
				zap.String("key", k),
				zap.String("value", num.String()),
			)
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
			if n, ok := employeeCount(s); ok {
				return n, true
			}
			zap.L().Debug("company: unparseable employee count",
				zap.String("key", k),
				zap.String("value", s),
			)
		}
	}
	return 0, false
}

// employeeCount parses s as a whole number in [0, maxEmployeeCount].
// Integral floats such as "120.0" are accepted; fractions are not.
func employeeCount(s string) (int, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 || n > maxEmployeeCount {
			return 0, false
		}
		return int(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < 0 || f > maxEmployeeCount {
		return 0, false
	}
	return int(f), true
}

func firstStrings(fields map[string]json.RawMessage, keys []string) []string {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return list
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return []string{strings.TrimSpace(s)}
		}
	}
	return nil
}
