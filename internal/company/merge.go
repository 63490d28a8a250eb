package company

import (
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Source is one input list for Merge. Lower Priority values win: priority 1
// outranks priority 2 on every conflicting field.
type Source struct {
	Name     string
	Priority int
	Records  []CompanyRecord
}

// Merge combines records from several sources into one record per company.
//
// Records are keyed by canonical domain, falling back to the trimmed display
// name when no domain can be derived. Name-keyed records cannot be matched
// against domain-keyed ones, so the same company listed with and without a
// website survives twice. For each key the highest-priority record is kept
// and lower-priority records only fill fields it left unset. Records with
// neither a name nor a domain are dropped. Output order is first appearance
// across the priority-ordered input.
func Merge(sources ...Source) []CompanyRecord {
	ordered := slices.Clone(sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	out := make([]CompanyRecord, 0)
	index := make(map[string]int)
	var dropped, collapsed int

	for _, src := range ordered {
		for _, rec := range src.Records {
			rec = prepare(rec, src.Name)
			if !rec.HasKey() {
				dropped++
				continue
			}

			key := mergeKey(rec)
			if i, ok := index[key]; ok {
				fillGaps(&out[i], rec)
				collapsed++
				continue
			}
			index[key] = len(out)
			out = append(out, rec)
		}
	}

	zap.L().Debug("company: merge complete",
		zap.Int("sources", len(sources)),
		zap.Int("records", len(out)),
		zap.Int("collapsed", collapsed),
		zap.Int("dropped", dropped),
	)

	return out
}

// prepare returns a copy of rec with its domain canonicalized, its slices
// detached from the caller's backing arrays and src added to its tags.
func prepare(rec CompanyRecord, src string) CompanyRecord {
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Domain != "" {
		rec.Domain = canonicalHost(rec.Domain)
	} else if d, ok := NormalizeDomain(rec.Website); ok {
		rec.Domain = d
	}
	rec.CountryCodes = slices.Clone(rec.CountryCodes)
	tags := slices.Clone(rec.SourceTags)
	slices.Sort(tags)
	rec.SourceTags = addTag(slices.Compact(tags), src)
	return rec
}

func canonicalHost(d string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
}

func mergeKey(rec CompanyRecord) string {
	if rec.Domain != "" {
		return "domain:" + rec.Domain
	}
	return "name:" + rec.Name
}

// fillGaps copies into dst every field dst leaves unset and src provides.
// A field dst already holds is never overwritten.
func fillGaps(dst *CompanyRecord, src CompanyRecord) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Website == "" {
		dst.Website = src.Website
	}
	if dst.Domain == "" {
		dst.Domain = src.Domain
	}
	if dst.Industry == nil {
		dst.Industry = src.Industry
	}
	if dst.EmployeeCount == nil {
		dst.EmployeeCount = src.EmployeeCount
	}
	if dst.Address == nil {
		dst.Address = src.Address
	}
	if len(dst.CountryCodes) == 0 {
		dst.CountryCodes = src.CountryCodes
	}
	if dst.Phone == nil {
		dst.Phone = src.Phone
	}
	if dst.Rating == nil {
		dst.Rating = src.Rating
	}
	if dst.PlaceID == "" {
		dst.PlaceID = src.PlaceID
	}
	if dst.SearchTerm == "" {
		dst.SearchTerm = src.SearchTerm
	}
	if dst.ScrapedAt == nil {
		dst.ScrapedAt = src.ScrapedAt
	}
	for _, t := range src.SourceTags {
		dst.SourceTags = addTag(dst.SourceTags, t)
	}
}

// addTag inserts tag into the sorted tag set.
func addTag(tags []string, tag string) []string {
	if tag == "" {
		return tags
	}
	i, found := slices.BinarySearch(tags, tag)
	if found {
		return tags
	}
	return slices.Insert(tags, i, tag)
}
