package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/company"
	"github.com/sells-group/lead-cli/internal/metrics"
	"github.com/sells-group/lead-cli/internal/scorer"
	"github.com/sells-group/lead-cli/internal/store"
)

// api serves scoring and run history over HTTP.
type api struct {
	store     store.Store
	engine    *scorer.Engine
	threshold float64
	validate  *validator.Validate
}

func newAPI(st store.Store, engine *scorer.Engine, threshold float64) *api {
	return &api{
		store:     st,
		engine:    engine,
		threshold: threshold,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// routes builds the chi router. allowedOrigins configures CORS.
func (a *api) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(instrument)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/score", handler(a.postScore))
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", handler(a.listRuns))
			r.Get("/{id}", handler(a.getRun))
			r.Get("/{id}/leads", handler(a.listLeads))
		})
	})
	return r
}

// httpError carries a status code to the error reply.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &httpError{status: http.StatusBadRequest, msg: msg}
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			replyError(w, r, err)
		}
	}
}

func replyError(w http.ResponseWriter, r *http.Request, err error) {
	var he *httpError
	switch {
	case errors.As(err, &he):
		writeJSON(w, he.status, map[string]string{"error": he.msg})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// instrument counts responses by route pattern and status code.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

// -- POST /v1/score --

// maxScoreBody caps the size of a score request body.
const maxScoreBody = 10 << 20

type scoreSource struct {
	Name     string          `json:"name" validate:"required"`
	Priority int             `json:"priority"`
	Records  json.RawMessage `json:"records" validate:"required"`
	Filter   *scoreFilter    `json:"filter,omitempty"`
}

type scoreFilter struct {
	Industry        string `json:"industry" validate:"required"`
	Country         string `json:"country" validate:"required"`
	CaseInsensitive bool   `json:"case_insensitive"`
}

type scoreRequest struct {
	Sources   []scoreSource `json:"sources" validate:"required,min=1,dive"`
	Threshold *float64      `json:"threshold,omitempty" validate:"omitempty,gte=0,lte=10"`
}

type scoreResponse struct {
	Merged    int                           `json:"merged"`
	Filtered  int                           `json:"filtered"`
	Scored    []company.ScoredCompanyRecord `json:"scored"`
	Qualified []company.ScoredCompanyRecord `json:"qualified"`
}

func (a *api) postScore(w http.ResponseWriter, r *http.Request) error {
	var req scoreRequest
	body := http.MaxBytesReader(w, r.Body, maxScoreBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &httpError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return badRequest("invalid request body")
	}
	if err := a.validate.Struct(req); err != nil {
		return badRequest(err.Error())
	}

	sources := make([]company.Source, 0, len(req.Sources))
	filtered := 0
	for _, s := range req.Sources {
		recs, err := company.DecodeRawRecords(s.Records, s.Name)
		if err != nil {
			return badRequest("source " + s.Name + ": records must be an array of objects")
		}
		if f := s.Filter; f != nil {
			kept := company.Filter(recs, company.FilterCriteria{
				IndustrySubstring: f.Industry,
				CountryCode:       f.Country,
				CaseInsensitive:   f.CaseInsensitive,
			})
			filtered += len(recs) - len(kept)
			recs = kept
		}
		sources = append(sources, company.Source{Name: s.Name, Priority: s.Priority, Records: recs})
	}

	merged := company.Merge(sources...)
	metrics.RecordsMerged.Add(float64(len(merged)))

	threshold := a.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	scored := a.engine.Score(merged)
	qualified := scorer.Select(scored, threshold)
	metrics.RecordsScored.Add(float64(len(scored)))
	metrics.RecordsQualified.Add(float64(len(qualified)))

	writeJSON(w, http.StatusOK, scoreResponse{
		Merged:    len(merged),
		Filtered:  filtered,
		Scored:    scored,
		Qualified: qualified,
	})
	return nil
}

// -- GET /v1/runs --

func (a *api) listRuns(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	filter := store.RunFilter{Status: store.RunStatus(q.Get("status"))}

	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest(key + " must be a non-negative integer")
		}
		*dst = n
	}

	runs, err := a.store.ListRuns(r.Context(), filter)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	return nil
}

// -- GET /v1/runs/{id} --

// runDetail is a run plus its recorded artifacts.
type runDetail struct {
	*store.Run
	Artifacts []store.Artifact `json:"artifacts"`
}

func loadRunDetail(ctx context.Context, st store.Store, id string) (*runDetail, error) {
	run, err := st.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	artifacts, err := st.ListArtifacts(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "list artifacts")
	}
	if artifacts == nil {
		artifacts = []store.Artifact{}
	}
	return &runDetail{Run: run, Artifacts: artifacts}, nil
}

func (a *api) getRun(w http.ResponseWriter, r *http.Request) error {
	detail, err := loadRunDetail(r.Context(), a.store, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, detail)
	return nil
}

// -- GET /v1/runs/{id}/leads --

func (a *api) listLeads(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if _, err := a.store.GetRun(r.Context(), id); err != nil {
		return err
	}
	leads, err := a.store.ListLeads(r.Context(), id)
	if err != nil {
		return err
	}
	if leads == nil {
		leads = []company.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads})
	return nil
}
