// Package contacts finds decision makers at qualified companies and verifies
// their email addresses.
package contacts

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-cli/internal/company"
	"github.com/sells-group/lead-cli/internal/metrics"
	"github.com/sells-group/lead-cli/pkg/apollo"
	"github.com/sells-group/lead-cli/pkg/neverbounce"
)

// Options controls contact discovery.
type Options struct {
	Personas    []string // person titles; empty searches all people
	MaxPages    int
	PerPage     int
	Concurrency int
	CacheTTL    time.Duration
}

// Service finds and verifies contacts.
type Service struct {
	apollo   apollo.Client
	verifier neverbounce.Client
	opts     Options
	statuses *cache.Cache
}

// NewService creates a Service.
func NewService(a apollo.Client, v neverbounce.Client, opts Options) *Service {
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = 25
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}

	return &Service{
		apollo:   a,
		verifier: v,
		opts:     opts,
		statuses: cache.New(opts.CacheTTL, 2*opts.CacheTTL),
	}
}

// FindContacts returns the people Apollo knows at domain. Errors are logged
// and yield whatever was collected before the failure.
func (s *Service) FindContacts(ctx context.Context, domain string) []company.Contact {
	log := zap.L().With(zap.String("domain", domain))

	org, err := s.apollo.EnrichOrganization(ctx, domain)
	metrics.ObserveAPICall("apollo", "enrich_organization", err)
	if err != nil {
		log.Error("contacts: organization lookup failed", zap.Error(err))
		return nil
	}
	if org == nil || org.ID == "" {
		log.Debug("contacts: organization not found")
		return nil
	}

	var out []company.Contact
	for page := 1; page <= s.opts.MaxPages; page++ {
		resp, err := s.apollo.SearchPeople(ctx, apollo.PeopleSearchRequest{
			OrganizationIDs: []string{org.ID},
			PersonTitles:    s.opts.Personas,
			Page:            page,
			PerPage:         s.opts.PerPage,
		})
		metrics.ObserveAPICall("apollo", "search_people", err)
		if err != nil {
			log.Error("contacts: people search failed", zap.Int("page", page), zap.Error(err))
			break
		}
		if len(resp.People) == 0 {
			break
		}

		for _, p := range resp.People {
			out = append(out, toContact(p))
		}

		if resp.Pagination.TotalPages > 0 && page >= resp.Pagination.TotalPages {
			break
		}
	}

	log.Debug("contacts: found", zap.Int("contacts", len(out)))
	return out
}

// Verify returns the deliverability status of email. Results are cached per
// address; provider errors are not.
func (s *Service) Verify(ctx context.Context, email string) company.VerificationStatus {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return company.StatusNotProvided
	}
	if v, ok := s.statuses.Get(email); ok {
		return v.(company.VerificationStatus)
	}

	res, err := s.verifier.Check(ctx, email)
	metrics.ObserveAPICall("neverbounce", "check", err)
	if err != nil {
		zap.L().Warn("contacts: verification failed", zap.String("email", email), zap.Error(err))
		return company.StatusError
	}

	status := toStatus(res.Result)
	s.statuses.Set(email, status, cache.DefaultExpiration)
	return status
}

// FindAndVerify returns one lead per contact found at each qualified company,
// in company order. Companies without a domain are skipped.
func (s *Service) FindAndVerify(ctx context.Context, qualified []company.ScoredCompanyRecord) []company.Lead {
	results := make([][]company.Lead, len(qualified))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, rec := range qualified {
		if rec.Domain == "" {
			zap.L().Debug("contacts: skipping company without domain", zap.String("company", rec.Name))
			continue
		}
		g.Go(func() error {
			for _, c := range s.FindContacts(ctx, rec.Domain) {
				status := s.Verify(ctx, c.Email)
				metrics.Verifications.WithLabelValues(string(status)).Inc()
				results[i] = append(results[i], company.Lead{
					CompanyName:     rec.Name,
					Domain:          rec.Domain,
					LikelihoodScore: rec.LikelihoodScore,
					Contact:         c,
					Status:          status,
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	leads := lo.Flatten(results)
	zap.L().Info("contacts: leads collected",
		zap.Int("companies", len(qualified)),
		zap.Int("leads", len(leads)),
		zap.Int("valid", len(ValidLeads(leads))),
	)
	return leads
}

// ValidLeads returns the leads whose email verified as valid.
func ValidLeads(leads []company.Lead) []company.Lead {
	return lo.Filter(leads, func(l company.Lead, _ int) bool {
		return l.Valid()
	})
}

func toContact(p apollo.Person) company.Contact {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.TrimSpace(p.FirstName + " " + p.LastName)
	}
	return company.Contact{
		Name:        name,
		Title:       p.Title,
		Email:       p.Email,
		LinkedInURL: p.LinkedInURL,
	}
}

func toStatus(result string) company.VerificationStatus {
	switch s := company.VerificationStatus(strings.ToLower(result)); s {
	case company.StatusValid, company.StatusInvalid, company.StatusDisposable,
		company.StatusCatchAll, company.StatusUnknown:
		return s
	default:
		return company.StatusUnknown
	}
}
