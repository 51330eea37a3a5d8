// Package search orchestrates the aggregation pipeline: cache lookup,
// concurrent source fan-out, deduplication, ranking, and pagination, with
// best-effort persistence of the outcome.
package search

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matomesearch/matome/internal/archive"
	"github.com/matomesearch/matome/internal/cache"
	"github.com/matomesearch/matome/internal/config"
	"github.com/matomesearch/matome/internal/fanout"
	"github.com/matomesearch/matome/internal/models"
	"github.com/matomesearch/matome/internal/rank"
	"github.com/matomesearch/matome/internal/source"
	"github.com/matomesearch/matome/internal/storage"
	"github.com/matomesearch/matome/pkg/utils"
)

// Orchestrator runs one search request end to end. All collaborators are
// injected; the orchestrator owns none of their lifecycles.
type Orchestrator struct {
	registry *source.Registry
	fanout   *fanout.Coordinator
	ranker   *rank.Ranker
	cache    *cache.ResponseCache
	store    storage.Store
	archive  *archive.Index
	config   *config.SearchConfig
	logger   *zap.Logger
}

// NewOrchestrator wires the pipeline. store and archiveIndex may be nil, in
// which case persistence is skipped; a nil cfg leaves request defaulting to
// Validate.
func NewOrchestrator(
	registry *source.Registry,
	coordinator *fanout.Coordinator,
	ranker *rank.Ranker,
	responseCache *cache.ResponseCache,
	store storage.Store,
	archiveIndex *archive.Index,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		registry: registry,
		fanout:   coordinator,
		ranker:   ranker,
		cache:    responseCache,
		store:    store,
		archive:  archiveIndex,
		config:   cfg,
		logger:   logger,
	}
}

// applyDefaults fills unset request fields from the configured defaults
// before Validate applies its built-in fallbacks.
func (o *Orchestrator) applyDefaults(req *models.SearchRequest) {
	if o.config == nil {
		return
	}
	if req.Sources == nil && o.config.DefaultSources != nil {
		req.Sources = append([]string(nil), o.config.DefaultSources...)
	}
	if req.Languages == nil && o.config.DefaultLanguages != nil {
		req.Languages = append([]string(nil), o.config.DefaultLanguages...)
	}
	if req.MaxResults == 0 {
		req.MaxResults = o.config.DefaultMaxResults
	}
	if req.PageSize == 0 {
		req.PageSize = o.config.DefaultPageSize
	}
}

// Search validates the request and runs the pipeline: cache lookup, fan-out
// to the resolved sources, dedup, rank, paginate, cache store. clientIP is
// recorded with the search history and may be empty.
func (o *Orchestrator) Search(ctx context.Context, req *models.SearchRequest, clientIP string) (*models.SearchResponse, error) {
	start := time.Now()
	o.applyDefaults(req)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if cached, ok := o.cache.Get(req.Query, req.Sources, req.Languages, req.MaxResults); ok {
		cached.FromCache = true
		o.logger.Debug("cache hit", zap.String("query", req.Query))
		return &cached, nil
	}

	adapters := o.registry.Resolve(req.Sources)
	if len(adapters) == 0 {
		return nil, &models.ValidationError{Msg: "none of the requested sources are available"}
	}

	outcomes := o.fanout.Dispatch(ctx, adapters, req.Query, req.Languages, req.MaxResults)
	merged, sourceErrors := fanout.Merge(outcomes)
	status := fanout.Classify(len(merged), len(sourceErrors))

	scored := o.ranker.Rank(rank.Dedupe(merged), req.Query)
	total := len(scored)

	resp := &models.SearchResponse{
		SearchID:     uuid.NewString(),
		Query:        req.Query,
		Mode:         req.Mode,
		Status:       status,
		Sources:      req.Sources,
		Errors:       sourceErrors,
		TotalResults: total,
		Page:         req.Page,
		PageSize:     req.PageSize,
		TotalPages:   utils.CeilDiv(total, req.PageSize),
		Results:      paginate(scored, req.Page, req.PageSize),
		DurationMS:   float64(time.Since(start).Microseconds()) / 1000.0,
	}
	o.cache.Set(req.Query, req.Sources, req.Languages, req.MaxResults, *resp)

	o.persist(ctx, req, resp, scored, clientIP)
	return resp, nil
}

// paginate slices one page out of the ranked results, clamping both bounds.
// Pages past the end are empty, not an error.
func paginate(results []models.ScoredResult, page, pageSize int) []models.ScoredResult {
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(results) {
		start = len(results)
	}
	if end > len(results) {
		end = len(results)
	}
	return results[start:end]
}

// persist records the search and feeds the archive. Failures are logged and
// swallowed; persistence never alters the response.
func (o *Orchestrator) persist(ctx context.Context, req *models.SearchRequest, resp *models.SearchResponse, scored []models.ScoredResult, clientIP string) {
	if o.store != nil {
		rec := &models.SearchRecord{
			SearchID:     resp.SearchID,
			Query:        req.Query,
			Mode:         req.Mode,
			Languages:    req.Languages,
			Sources:      req.Sources,
			Status:       resp.Status,
			ResultsCount: resp.TotalResults,
			Timestamp:    time.Now().UTC(),
			DurationMS:   resp.DurationMS,
			ClientIP:     clientIP,
		}
		if err := o.store.RecordSearch(ctx, rec); err != nil {
			o.logger.Warn("failed to record search",
				zap.String("search_id", resp.SearchID), zap.Error(err))
		} else if err := o.store.RecordResults(ctx, resp.SearchID, scored); err != nil {
			o.logger.Warn("failed to record results",
				zap.String("search_id", resp.SearchID), zap.Error(err))
		}
	}

	if o.archive != nil {
		// Results served from the archive are not fed back into it.
		fresh := make([]models.Result, 0, len(scored))
		for _, s := range scored {
			if s.Source != "archive" {
				fresh = append(fresh, s.Result)
			}
		}
		if err := o.archive.Add(fresh); err != nil {
			o.logger.Warn("failed to archive results",
				zap.String("search_id", resp.SearchID), zap.Error(err))
		}
	}
}
