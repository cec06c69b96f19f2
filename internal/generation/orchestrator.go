// Package generation turns a completed survey into a persisted draft estimate.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/metrics"
	"tour-estimate-workers/internal/estimate"
	"tour-estimate-workers/internal/matching"
	"tour-estimate-workers/internal/models"
	"tour-estimate-workers/internal/retrieval"
	"tour-estimate-workers/internal/scoring"
)

// ErrPersistenceFailed wraps any failure to write the estimate. Nothing was committed.
var ErrPersistenceFailed = errors.New("estimate persistence failed")

const fallbackNote = "To be planned by your travel expert"

// Fallback reasons recorded in the generation metadata.
const (
	ReasonRetrievalTimeout = "retrieval_timeout"
	ReasonRetrievalError   = "retrieval_error"
	ReasonNoDraft          = "no_draft_items"
	ReasonMatchingError    = "matching_error"
)

type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) (*retrieval.Result, error)
}

type Matcher interface {
	Resolve(ctx context.Context, drafts []models.DraftItem, opts matching.Options) (*matching.Outcome, error)
	MergeMustSee(ctx context.Context, items []models.EstimateItem, names []string, days int, opts matching.Options) (*matching.MergeResult, error)
}

type Store interface {
	GetSession(ctx context.Context, sessionID string) (*models.QuoteSession, error)
	CreateForSession(ctx context.Context, est *models.Estimate) error
}

type Config struct {
	RetrievalTimeout time.Duration
	PersistTimeout   time.Duration
	TopK             int
	MinSimilarity    float64
	FuzzyThreshold   float64
	ValidityDays     int
	FullRecord       bool
}

func (c Config) withDefaults() Config {
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = 8 * time.Second
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = 5 * time.Second
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = 0.7
	}
	if c.ValidityDays <= 0 {
		c.ValidityDays = 14
	}
	return c
}

type Result struct {
	EstimateID          string                  `json:"estimateId"`
	ShareToken          string                  `json:"shareToken"`
	Items               []models.EstimateItem   `json:"items"`
	HasPlaceholders     bool                    `json:"hasPlaceholders"`
	Source              models.GenerationSource `json:"source"`
	ConfidenceScore     int                     `json:"confidenceScore"`
	NotificationWarning bool                    `json:"notificationWarning"`
}

type Orchestrator struct {
	retriever Retriever
	matcher   Matcher
	store     Store
	hooks     *estimate.Hooks
	cfg       Config
	logger    logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewOrchestrator(retriever Retriever, matcher Matcher, store Store, hooks *estimate.Hooks, cfg Config, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		retriever: retriever,
		matcher:   matcher,
		store:     store,
		hooks:     hooks,
		cfg:       cfg.withDefaults(),
		logger:    logger.ForComponent(log, "generation"),
		tracer:    otel.Tracer("generation"),
		now:       time.Now,
	}
}

// Generate drafts, resolves, scores and persists an estimate for the session.
// Retrieval problems fall back to one placeholder per day and are never
// returned; not-found, state conflicts and persistence failures are.
func (o *Orchestrator) Generate(ctx context.Context, sessionID string) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "Generate", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()
	start := o.now()

	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load session")
		return nil, err
	}
	if sess.EstimateID != nil {
		err := fmt.Errorf("%w: session %s", estimate.ErrAlreadyAttached, sessionID)
		span.SetStatus(codes.Error, "estimate already attached")
		return nil, err
	}

	survey := sess.Survey
	days := survey.Days
	if days < 1 {
		days = 1
	}
	opts := matching.Options{
		FuzzyThreshold: o.cfg.FuzzyThreshold,
		Region:         survey.Region,
		FullRecord:     o.cfg.FullRecord,
	}

	meta := models.GenerationMetadata{
		GeneratedAt:        start.UTC(),
		RequestedInterests: survey.Interests,
	}

	var items []models.EstimateItem
	entries := make(map[int64]models.CatalogEntry)

	res, reason := o.retrieve(ctx, sessionID, survey)
	if res != nil {
		meta.Query = res.RawQuery
		meta.Sources = res.Sources
	}
	if reason == "" {
		outcome, err := o.resolve(ctx, res.DraftItems, opts)
		if err != nil {
			o.logger.Warn("Matching failed, using placeholder itinerary", map[string]interface{}{
				"sessionId": sessionID,
				"error":     err,
			})
			reason = ReasonMatchingError
		} else {
			meta.Source = models.SourceRetrieval
			meta.TotalDraftItems = len(res.DraftItems)
			meta.Matching = outcome.Stats
			items = outcome.Items
			for id, e := range outcome.Entries {
				entries[id] = e
			}
		}
	}
	if reason != "" {
		meta.Source = models.SourcePlaceholderFallback
		meta.FallbackReason = reason
		meta.TotalDraftItems = days
		meta.Matching = models.MatchingStats{Unmatched: days, Unresolved: []models.UnresolvedItem{}}
		items = fallbackItems(days)
	}

	items = o.mergeMustSee(ctx, sessionID, items, survey.MustSee, days, opts, &meta, entries)
	if meta.Source == models.SourcePlaceholderFallback {
		items = dropCoveredDays(items)
	}

	meta.PlaceholderCount = lo.CountBy(items, func(it models.EstimateItem) bool { return it.IsPlaceholder() })
	meta.MatchedInterests = matching.MatchedInterests(survey.Interests, lo.Values(entries))
	meta.ConfidenceScore = scoring.Score(meta)
	meta.ElapsedMs = o.now().Sub(start).Milliseconds()

	span.SetAttributes(
		attribute.String("generation.source", string(meta.Source)),
		attribute.Int("generation.items", len(items)),
		attribute.Int("generation.placeholders", meta.PlaceholderCount),
		attribute.Int("generation.confidence", meta.ConfidenceScore),
	)

	est, err := o.persist(ctx, sess, items, meta)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues(string(meta.Source), "failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist estimate")
		return nil, err
	}

	metrics.GenerationsTotal.WithLabelValues(string(meta.Source), "ok").Inc()
	metrics.GenerationDuration.WithLabelValues(string(meta.Source)).Observe(o.now().Sub(start).Seconds())
	metrics.ConfidenceScore.Observe(float64(meta.ConfidenceScore))
	span.SetStatus(codes.Ok, "estimate generated")

	estimateID := est.ID
	sess.EstimateID = &estimateID
	sess.Status = models.SessionEstimateAttached
	failed := o.hooks.Run(ctx, estimate.Notice{Trigger: estimate.TriggerGenerated, Session: sess, Estimate: est})

	o.logger.Info("Estimate generated", map[string]interface{}{
		"sessionId":       sessionID,
		"estimateId":      est.ID,
		"source":          string(meta.Source),
		"items":           len(items),
		"placeholders":    meta.PlaceholderCount,
		"confidenceScore": meta.ConfidenceScore,
		"elapsedMs":       meta.ElapsedMs,
	})

	return &Result{
		EstimateID:          est.ID,
		ShareToken:          est.ShareToken,
		Items:               est.Items,
		HasPlaceholders:     est.HasPlaceholders(),
		Source:              meta.Source,
		ConfidenceScore:     meta.ConfidenceScore,
		NotificationWarning: len(failed) > 0,
	}, nil
}

type retrieved struct {
	res *retrieval.Result
	err error
}

// retrieve races the retriever against the retrieval deadline. It returns a
// fallback reason when no usable draft came back in time. The loser of the
// race is cancelled and its result dropped.
func (o *Orchestrator) retrieve(ctx context.Context, sessionID string, survey models.Survey) (*retrieval.Result, string) {
	ctx, span := o.tracer.Start(ctx, "Retrieve")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RetrievalTimeout)
	defer cancel()

	done := make(chan retrieved, 1)
	go func() {
		res, err := o.retriever.Retrieve(ctx, retrieval.Request{
			Survey:        survey,
			Limit:         o.cfg.TopK,
			MinSimilarity: o.cfg.MinSimilarity,
		})
		done <- retrieved{res: res, err: err}
	}()

	var r retrieved
	select {
	case r = <-done:
	case <-ctx.Done():
		metrics.RetrievalOutcomes.WithLabelValues("timeout").Inc()
		span.SetStatus(codes.Error, "retrieval deadline exceeded")
		o.logger.Warn("Retrieval timed out, using placeholder itinerary", map[string]interface{}{
			"sessionId": sessionID,
			"timeoutMs": o.cfg.RetrievalTimeout.Milliseconds(),
		})
		return nil, ReasonRetrievalTimeout
	}

	switch {
	case r.err != nil && ctx.Err() != nil:
		metrics.RetrievalOutcomes.WithLabelValues("timeout").Inc()
		o.logger.Warn("Retrieval timed out, using placeholder itinerary", map[string]interface{}{
			"sessionId": sessionID,
			"error":     r.err,
		})
		return nil, ReasonRetrievalTimeout
	case r.err != nil:
		metrics.RetrievalOutcomes.WithLabelValues("error").Inc()
		span.RecordError(r.err)
		span.SetStatus(codes.Error, "retrieval failed")
		o.logger.Warn("Retrieval failed, using placeholder itinerary", map[string]interface{}{
			"sessionId": sessionID,
			"error":     r.err,
		})
		return nil, ReasonRetrievalError
	case r.res == nil || len(r.res.DraftItems) == 0:
		metrics.RetrievalOutcomes.WithLabelValues("empty").Inc()
		o.logger.Info("No draft items retrieved, using placeholder itinerary", map[string]interface{}{
			"sessionId": sessionID,
		})
		return r.res, ReasonNoDraft
	}

	metrics.RetrievalOutcomes.WithLabelValues("ok").Inc()
	span.SetAttributes(
		attribute.Int("retrieval.drafts", len(r.res.DraftItems)),
		attribute.Int("retrieval.sources", len(r.res.Sources)),
	)
	return r.res, ""
}

func (o *Orchestrator) resolve(ctx context.Context, drafts []models.DraftItem, opts matching.Options) (*matching.Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "Resolve", trace.WithAttributes(attribute.Int("drafts", len(drafts))))
	defer span.End()

	outcome, err := o.matcher.Resolve(ctx, drafts, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve drafts")
		return nil, err
	}
	return outcome, nil
}

// mergeMustSee adds traveler-picked places. Lookup failures leave the
// itinerary unchanged and mark every name unresolved.
func (o *Orchestrator) mergeMustSee(ctx context.Context, sessionID string, items []models.EstimateItem, names []string, days int,
	opts matching.Options, meta *models.GenerationMetadata, entries map[int64]models.CatalogEntry) []models.EstimateItem {
	if len(names) == 0 {
		return items
	}
	merged, err := o.matcher.MergeMustSee(ctx, items, names, days, opts)
	if err != nil {
		o.logger.Warn("Must-see merge failed", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err,
		})
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				meta.Matching.Unresolved = append(meta.Matching.Unresolved,
					models.UnresolvedItem{Name: n, Reason: models.ReasonMustSeeNotFound})
			}
		}
		return items
	}
	meta.Matching.MustSeeAdded = merged.Added
	meta.Matching.Unresolved = append(meta.Matching.Unresolved, merged.Unresolved...)
	for id, e := range merged.Entries {
		entries[id] = e
	}
	return merged.Items
}

func (o *Orchestrator) persist(ctx context.Context, sess *models.QuoteSession, items []models.EstimateItem, meta models.GenerationMetadata) (*models.Estimate, error) {
	ctx, span := o.tracer.Start(ctx, "Persist")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.PersistTimeout)
	defer cancel()

	now := o.now().UTC()
	est := &models.Estimate{
		ID:              uuid.NewString(),
		ShareToken:      newShareToken(),
		SessionID:       sess.ID,
		Status:          models.StatusDraft,
		Items:           items,
		RevisionHistory: []models.RevisionEntry{},
		Metadata:        &meta,
		ValidUntil:      now.AddDate(0, 0, o.cfg.ValidityDays),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := o.store.CreateForSession(ctx, est)
	switch {
	case err == nil:
		return est, nil
	case errors.Is(err, estimate.ErrSessionNotFound), errors.Is(err, estimate.ErrAlreadyAttached):
		return nil, err
	default:
		o.logger.Error("Failed to persist estimate", map[string]interface{}{
			"sessionId": sess.ID,
			"error":     err,
		})
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
}

// fallbackItems is one placeholder per day.
func fallbackItems(days int) []models.EstimateItem {
	items := make([]models.EstimateItem, 0, days)
	for d := 1; d <= days; d++ {
		items = append(items, models.NewPlaceholderItem(d, fmt.Sprintf("Day %d", d), fallbackNote))
	}
	return items
}

// dropCoveredDays removes the fallback placeholder of any day that received a
// real item during the must-see merge.
func dropCoveredDays(items []models.EstimateItem) []models.EstimateItem {
	covered := make(map[int]bool)
	for _, it := range items {
		if !it.IsPlaceholder() {
			covered[it.Day] = true
		}
	}
	kept := lo.Filter(items, func(it models.EstimateItem, _ int) bool {
		return !(it.IsPlaceholder() && it.Note == fallbackNote && covered[it.Day])
	})
	return models.Reindex(kept)
}

func newShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
