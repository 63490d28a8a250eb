// Package discovery collects company records from Google Places Text Search.
package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-cli/internal/company"
	"github.com/sells-group/lead-cli/internal/metrics"
	"github.com/sells-group/lead-cli/pkg/google"
)

// Options controls paging, pacing and enrichment of a scrape.
type Options struct {
	MaxPages           int
	PageDelay          time.Duration // wait before requesting a page token
	RateLimit          float64       // requests per second; <= 0 is unlimited
	Concurrency        int           // concurrent search terms
	FetchDetails       bool          // call Place Details when website is missing
	DirectoryBlocklist []string
}

// DefaultOptions mirrors the Places API guidance: three pages of twenty and
// a short pause before a next-page token becomes valid.
func DefaultOptions() Options {
	return Options{
		MaxPages:     3,
		PageDelay:    2 * time.Second,
		RateLimit:    5,
		Concurrency:  4,
		FetchDetails: true,
	}
}

// Scraper turns search terms into company records.
type Scraper struct {
	google  google.Client
	opts    Options
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewScraper creates a Scraper over g.
func NewScraper(g google.Client, opts Options) *Scraper {
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Scraper{
		google:  g,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		sleep:   sleepCtx,
	}
}

// Scrape returns the places found for term, up to MaxPages pages. A failure
// on a later page keeps the records already collected; a failed first page
// yields no records.
func (s *Scraper) Scrape(ctx context.Context, term string) []company.CompanyRecord {
	log := zap.L().With(zap.String("search_term", term))

	var (
		records   []company.CompanyRecord
		pageToken string
	)

	for page := 0; page < s.opts.MaxPages; page++ {
		if pageToken != "" && s.opts.PageDelay > 0 {
			if err := s.sleep(ctx, s.opts.PageDelay); err != nil {
				log.Warn("discovery: page delay interrupted", zap.Error(err))
				break
			}
		}
		if err := s.limiter.Wait(ctx); err != nil {
			log.Warn("discovery: rate limit wait", zap.Error(err))
			break
		}

		resp, err := s.google.SearchText(ctx, google.SearchTextRequest{
			TextQuery: term,
			PageSize:  google.MaxPageSize,
			PageToken: pageToken,
		})
		metrics.ObserveAPICall("google", "search_text", err)
		if err != nil {
			log.Error("discovery: search text failed", zap.Int("page", page+1), zap.Error(err))
			break
		}

		for _, place := range resp.Places {
			if s.opts.FetchDetails && place.WebsiteURI == "" && place.ID != "" {
				place = s.withDetails(ctx, place)
			}
			records = append(records, s.toRecord(place, term))
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	log.Info("discovery: term scraped", zap.Int("records", len(records)))
	return records
}

// ScrapeAll scrapes terms concurrently and merges the results in term
// order. A place seen under several terms is kept once, with the first term.
func (s *Scraper) ScrapeAll(ctx context.Context, terms []string) []company.CompanyRecord {
	results := make([][]company.CompanyRecord, len(terms))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, term := range terms {
		g.Go(func() error {
			results[i] = s.Scrape(ctx, term)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var out []company.CompanyRecord
	for _, batch := range results {
		for _, r := range batch {
			if r.PlaceID != "" {
				if _, dup := seen[r.PlaceID]; dup {
					continue
				}
				seen[r.PlaceID] = struct{}{}
			}
			out = append(out, r)
		}
	}

	zap.L().Info("discovery: scrape complete",
		zap.Int("terms", len(terms)),
		zap.Int("records", len(out)),
	)
	return out
}

// withDetails fills contact fields from Place Details. On error the search
// result is returned unchanged.
func (s *Scraper) withDetails(ctx context.Context, place google.Place) google.Place {
	if err := s.limiter.Wait(ctx); err != nil {
		return place
	}

	details, err := s.google.GetPlace(ctx, place.ID)
	metrics.ObserveAPICall("google", "get_place", err)
	if err != nil {
		zap.L().Warn("discovery: place details failed",
			zap.String("place_id", place.ID),
			zap.Error(err),
		)
		return place
	}

	if details.WebsiteURI != "" {
		place.WebsiteURI = details.WebsiteURI
	}
	if details.NationalPhoneNumber != "" {
		place.NationalPhoneNumber = details.NationalPhoneNumber
	}
	if details.FormattedAddress != "" {
		place.FormattedAddress = details.FormattedAddress
	}
	if details.Rating != 0 {
		place.Rating = details.Rating
	}
	return place
}

func (s *Scraper) toRecord(place google.Place, term string) company.CompanyRecord {
	rec := company.CompanyRecord{
		Name:       place.DisplayName.Text,
		PlaceID:    place.ID,
		SearchTerm: term,
		SourceTags: []string{company.SourcePlaces},
	}

	if place.WebsiteURI != "" && !isDirectoryURL(place.WebsiteURI, s.opts.DirectoryBlocklist) {
		rec.Website = place.WebsiteURI
		if d, ok := company.NormalizeDomain(place.WebsiteURI); ok {
			rec.Domain = d
		}
	}
	if place.PrimaryTypeDisplayName != nil && place.PrimaryTypeDisplayName.Text != "" {
		industry := place.PrimaryTypeDisplayName.Text
		rec.Industry = &industry
	}
	if place.FormattedAddress != "" {
		addr := place.FormattedAddress
		rec.Address = &addr
	}
	if place.NationalPhoneNumber != "" {
		phone := place.NationalPhoneNumber
		rec.Phone = &phone
	}
	if place.Rating != 0 {
		rating := place.Rating
		rec.Rating = &rating
	}
	if cc := place.CountryCode(); cc != "" {
		rec.CountryCodes = []string{cc}
	}
	return rec
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
