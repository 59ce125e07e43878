// Package handler serves the rerank HTTP API: a first-pass query built from
// the request, a feedback rerank of its top documents, and a paginated,
// field-projected response.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/query"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/querybuilder"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/rerank"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/tracing"
)

// notApplicable is reported as query_b when no second-pass query was built.
const notApplicable = "N/A"

// Response is the JSON body of a rerank request.
type Response struct {
	Header ResponseHeader `json:"responseHeader"`
	Body   DocList        `json:"response"`
}

type ResponseHeader struct {
	Params       map[string][]string `json:"params"`
	QueryA       string              `json:"query_a"`
	QueryB       string              `json:"query_b"`
	Strategy     string              `json:"strategy"`
	Outcome      string              `json:"outcome"`
	Expansion    int                 `json:"expansion_terms"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

type DocList struct {
	NumFound int              `json:"num_found"`
	Start    int              `json:"start"`
	Docs     []map[string]any `json:"docs"`
}

type Handler struct {
	searcher   *searcher.Searcher
	search     config.SearchConfig
	rerank     config.RerankConfig
	rerankOpts []rerank.Option
	cache      *cache.ResponseCache
	collector  *analytics.Collector
	logger     *slog.Logger
}

// New creates a Handler. responseCache and collector may be nil.
func New(s *searcher.Searcher, search config.SearchConfig, rr config.RerankConfig, responseCache *cache.ResponseCache, collector *analytics.Collector, rerankOpts ...rerank.Option) *Handler {
	return &Handler{
		searcher:   s,
		search:     search,
		rerank:     rr,
		rerankOpts: rerankOpts,
		cache:      responseCache,
		collector:  collector,
		logger:     logger.WithComponent("rerank-handler"),
	}
}

// request is a parsed and validated rerank request.
type request struct {
	text       string
	filters    []string
	field      string
	similarity string
	queryType  querybuilder.Type
	strategy   rerank.Strategy
	cutoff     int
	sdm        querybuilder.SDMParams
	rm3        rerank.RM3Params
	axiom      rerank.AxiomParams
	start      int
	rows       int
	fields     []string
}

// Rerank serves GET /api/v1/rerank.
func (h *Handler) Rerank(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	params := r.URL.Query()

	req, err := h.parse(params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	ctx, span := tracing.StartSpan(ctx, "rerank-request", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log()
	}()

	var resp Response
	cacheHit := false
	compute := func(ctx context.Context) (any, bool, error) {
		out, err := h.run(ctx, req, params)
		if err != nil {
			return nil, false, err
		}
		return out, out.Header.ErrorMessage == "", nil
	}
	if h.cache != nil {
		cacheHit, err = h.cache.GetOrCompute(ctx, cache.Key(params), &resp, compute)
		// Equivalent requests share an entry; echo this request's own params.
		resp.Header.Params = params
	} else {
		var out *Response
		out, err = h.run(ctx, req, params)
		if out != nil {
			resp = *out
		}
	}
	if err != nil {
		log.Error("rerank request failed", "query", req.text, "error", err)
		h.writeError(w, err)
		return
	}

	latency := time.Since(start)
	span.SetAttr("cache_hit", cacheHit)
	log.Info("rerank completed",
		"query", req.text,
		"strategy", req.strategy,
		"outcome", resp.Header.Outcome,
		"num_found", resp.Body.NumFound,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(ctx, req, &resp, cacheHit, latency)
	h.writeJSON(w, http.StatusOK, resp)
}

// Handle parses params and runs one rerank request without caching or
// analytics.
func (h *Handler) Handle(ctx context.Context, params url.Values) (*Response, error) {
	req, err := h.parse(params)
	if err != nil {
		return nil, err
	}
	return h.run(ctx, req, params)
}

// run executes the first pass, reranks its top cutoff documents and renders
// the requested page. Rerank failures degrade into the response header;
// only query construction and first-pass failures are errors.
func (h *Handler) run(ctx context.Context, req *request, params url.Values) (*Response, error) {
	sim, err := ranker.ForName(req.similarity)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, err.Error())
	}
	s := h.searcher.WithSimilarity(sim)

	builder := querybuilder.New(s, req.field, req.sdm)
	first, err := builder.Build(req.queryType, req.text, req.filters)
	if err != nil {
		return nil, err
	}

	firstCtx, span := tracing.StartChildSpan(ctx, "first-pass")
	initial, err := s.Execute(firstCtx, first, req.cutoff)
	span.End()
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		return nil, apperrors.Wrap(apperrors.ErrIndexRead, status, fmt.Errorf("first pass: %w", err))
	}

	reranker := rerank.New(s, h.rerankOpts...)
	rr := rerank.Request{
		QueryText: req.text,
		Field:     req.field,
		Documents: initial.Results,
		Strategy:  req.strategy,
		RM3:       req.rm3,
		Axiom:     req.axiom,
	}
	result, err := resilience.Timed(ctx, h.rerank.Timeout, "rerank", func(ctx context.Context) (rerank.Result, error) {
		return reranker.Rerank(ctx, rr), nil
	})
	if err != nil {
		result = rerank.Result{Documents: initial.Results, ErrorMessage: err.Error()}
	}

	queryB, expansion := notApplicable, 0
	if result.Query != nil {
		queryB = result.Query.String()
		expansion = len(query.Terms(result.Query))
	}
	docs, err := h.page(s, result.Documents, req)
	if err != nil {
		return nil, err
	}
	return &Response{
		Header: ResponseHeader{
			Params:       params,
			QueryA:       first.String(),
			QueryB:       queryB,
			Strategy:     string(req.strategy),
			Outcome:      result.Outcome(),
			Expansion:    expansion,
			ErrorMessage: result.ErrorMessage,
		},
		Body: DocList{
			NumFound: initial.TotalHits,
			Start:    req.start,
			Docs:     docs,
		},
	}, nil
}

// page projects docs[start:start+rows] onto the requested stored fields.
func (h *Handler) page(s *searcher.Searcher, docs []ranker.ScoredDoc, req *request) ([]map[string]any, error) {
	from := min(req.start, len(docs))
	to := min(from+req.rows, len(docs))
	out := make([]map[string]any, 0, to-from)
	for _, d := range docs[from:to] {
		rec, ok, err := s.Doc(d.DocID)
		if err != nil {
			return nil, fmt.Errorf("%w: loading document %s: %v", apperrors.ErrIndexRead, d.DocID, err)
		}
		doc := map[string]any{"id": d.DocID, "score": d.Score}
		if ok {
			project(doc, rec.Stored, req.fields)
		}
		out = append(out, doc)
	}
	return out, nil
}

// project copies stored values into doc. An empty field list or "*"
// copies everything.
func project(doc map[string]any, stored map[string]string, fields []string) {
	all := len(fields) == 0
	for _, f := range fields {
		if f == "*" {
			all = true
		}
	}
	if all {
		for k, v := range stored {
			if _, reserved := doc[k]; !reserved {
				doc[k] = v
			}
		}
		return
	}
	for _, f := range fields {
		if v, ok := stored[f]; ok && f != "score" {
			doc[f] = v
		}
	}
}

func (h *Handler) parse(params url.Values) (*request, error) {
	text := strings.TrimSpace(params.Get("q"))
	if text == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required")
	}
	p := paramReader{values: params}
	restrict := p.boolean("_restrict", false)

	rm3 := rerank.RM3ParamsFromConfig(h.rerank.RM3)
	rm3.FbDocs = p.positive("rm3.fbDocs", rm3.FbDocs)
	rm3.FbTerms = p.positive("rm3.fbTerms", rm3.FbTerms)
	rm3.OriginalQueryWeight = p.float("rm3.originalQueryWeight", rm3.OriginalQueryWeight)
	rm3.Restrict = rm3.Restrict || restrict

	ax := rerank.AxiomParamsFromConfig(h.rerank.Axiom)
	ax.R = p.positive("ax.R", ax.R)
	ax.N = p.positive("ax.N", ax.N)
	ax.K = p.positive("ax.K", ax.K)
	ax.M = p.positive("ax.M", ax.M)
	ax.Beta = p.float("ax.beta", ax.Beta)
	ax.Seed = int64(p.integer("ax.seed", int(ax.Seed)))
	ax.Restrict = ax.Restrict || restrict

	// sdm.tw, sdm.ow and sdm.uw are short aliases; the long names win.
	sdm := querybuilder.SDMParams{
		TermWeight:            p.float("sdm.termWeight", p.float("sdm.tw", h.rerank.SDM.TermWeight)),
		OrderedWindowWeight:   p.float("sdm.orderedWindowWeight", p.float("sdm.ow", h.rerank.SDM.OrderedWindowWeight)),
		UnorderedWindowWeight: p.float("sdm.unorderedWindowWeight", p.float("sdm.uw", h.rerank.SDM.UnorderedWindowWeight)),
	}

	strategy := h.rerank.Strategy
	if v := params.Get("rtype"); v != "" {
		strategy = v
	}
	similarity := h.search.Similarity
	if v := params.Get("sim"); v != "" {
		similarity = v
	}
	field := h.search.DefaultField
	if v := params.Get("df"); v != "" {
		field = v
	}

	req := &request{
		text:       text,
		filters:    params["fq"],
		field:      field,
		similarity: similarity,
		queryType:  querybuilder.ParseType(params.Get("qtype")),
		strategy:   rerank.ParseStrategy(strategy),
		cutoff:     p.positive("rerankCutoff", h.rerank.Cutoff),
		sdm:        sdm,
		rm3:        rm3,
		axiom:      ax,
		start:      p.integer("start", 0),
		rows:       p.integer("rows", h.search.DefaultLimit),
		fields:     splitFields(params.Get("fl")),
	}
	if p.err != nil {
		return nil, p.err
	}
	if req.start < 0 || req.rows < 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "start and rows must not be negative")
	}
	if w := req.rm3.OriginalQueryWeight; w < 0 || w > 1 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "rm3.originalQueryWeight must be in [0,1], got %g", w)
	}
	if h.search.MaxResults > 0 {
		req.cutoff = min(req.cutoff, h.search.MaxResults)
	}
	return req, nil
}

// paramReader parses typed query parameters, keeping the first error.
type paramReader struct {
	values url.Values
	err    error
}

func (p *paramReader) fail(name, raw, kind string) {
	if p.err == nil {
		p.err = apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "%s must be %s, got %q", name, kind, raw)
	}
}

func (p *paramReader) integer(name string, def int) int {
	raw := p.values.Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(name, raw, "an integer")
		return def
	}
	return n
}

func (p *paramReader) positive(name string, def int) int {
	n := p.integer(name, def)
	if n <= 0 && p.values.Get(name) != "" {
		p.fail(name, p.values.Get(name), "a positive integer")
		return def
	}
	return n
}

func (p *paramReader) float(name string, def float64) float64 {
	raw := p.values.Get(name)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(name, raw, "a number")
		return def
	}
	return f
}

func (p *paramReader) boolean(name string, def bool) bool {
	raw := p.values.Get(name)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(name, raw, "a boolean")
		return def
	}
	return b
}

func splitFields(fl string) []string {
	return strings.FieldsFunc(fl, func(r rune) bool { return r == ',' || r == ' ' })
}

func (h *Handler) track(ctx context.Context, req *request, resp *Response, cacheHit bool, latency time.Duration) {
	if h.collector == nil {
		return
	}
	h.collector.Track(analytics.RerankEvent{
		RequestID:      middleware.GetRequestID(ctx),
		Query:          req.text,
		Strategy:       string(req.strategy),
		QueryType:      string(req.queryType),
		Similarity:     req.similarity,
		Outcome:        resp.Header.Outcome,
		InputDocs:      min(req.cutoff, resp.Body.NumFound),
		OutputDocs:     min(req.cutoff, resp.Body.NumFound),
		ExpansionTerms: resp.Header.Expansion,
		SecondQuery:    resp.Header.QueryB,
		ErrorMessage:   resp.Header.ErrorMessage,
		CacheHit:       cacheHit,
		LatencyMs:      latency.Milliseconds(),
		Timestamp:      time.Now().UTC(),
	})
}

// CacheStats reports response cache hit counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "rerank failed"
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}
