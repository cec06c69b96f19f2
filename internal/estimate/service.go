// internal/estimate/service.go
package estimate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/metrics"
	"tour-estimate-workers/internal/models"
)

// EntryLookup resolves catalog entries by id.
type EntryLookup interface {
	FindByIDs(ctx context.Context, ids []int64) (map[int64]models.CatalogEntry, error)
}

type Service struct {
	store   Store
	catalog EntryLookup
	hooks   *Hooks
	logger  logger.Logger
	now     func() time.Time
}

func NewService(store Store, lookup EntryLookup, hooks *Hooks, log logger.Logger) *Service {
	return &Service{
		store:   store,
		catalog: lookup,
		hooks:   hooks,
		logger:  logger.ForComponent(log, "estimate"),
		now:     time.Now,
	}
}

type SubmitResult struct {
	AlreadySubmitted    bool                  `json:"alreadySubmitted"`
	EstimateID          string                `json:"estimateId,omitempty"`
	Status              models.EstimateStatus `json:"status,omitempty"`
	NotificationWarning bool                  `json:"notificationWarning"`
}

// SubmitToExpert hands the session to an expert. Only the caller that flips
// the session's completion flag runs the notification hooks; every other
// caller gets AlreadySubmitted.
func (s *Service) SubmitToExpert(ctx context.Context, sessionID string) (*SubmitResult, error) {
	flipped, err := s.store.MarkSubmitted(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess, est, err := s.sessionEstimate(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}

	res := &SubmitResult{AlreadySubmitted: !flipped}
	if est != nil {
		res.EstimateID = est.ID
		res.Status = est.Status
	}
	if !flipped {
		metrics.SubmissionsTotal.WithLabelValues("already_submitted").Inc()
		s.logger.Info("Session already submitted", map[string]interface{}{"sessionId": sessionID})
		return res, nil
	}

	metrics.SubmissionsTotal.WithLabelValues("submitted").Inc()
	if est != nil && est.Status == models.StatusPending {
		metrics.LifecycleTransitions.WithLabelValues(string(models.StatusDraft), string(models.StatusPending)).Inc()
	}
	failed := s.hooks.Run(ctx, Notice{Trigger: TriggerSubmitted, Session: sess, Estimate: est, Previous: models.StatusDraft})
	res.NotificationWarning = len(failed) > 0

	s.logger.Info("Session submitted to expert", map[string]interface{}{
		"sessionId":           sessionID,
		"estimateId":          res.EstimateID,
		"notificationWarning": res.NotificationWarning,
	})
	return res, nil
}

type RespondResult struct {
	EstimateID          string                `json:"estimateId"`
	Status              models.EstimateStatus `json:"status"`
	RevisionID          string                `json:"revisionId,omitempty"`
	NotificationWarning bool                  `json:"notificationWarning"`
}

// Respond applies the customer's answer to the session's estimate.
func (s *Service) Respond(ctx context.Context, sessionID string, resp Response) (*RespondResult, error) {
	switch resp.Kind {
	case ResponseApproved, ResponseDeclined, ResponseRevision:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidResponse, resp.Kind)
	}

	sess, est, err := s.sessionEstimate(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}

	res := &RespondResult{EstimateID: est.ID}
	notice := Notice{Session: sess}

	switch resp.Kind {
	case ResponseRevision:
		entry := &models.RevisionEntry{
			ID:          uuid.NewString(),
			RequestedAt: s.now().UTC(),
			Details:     strings.TrimSpace(resp.Details),
			Structured:  resp.Structured,
		}
		if err := s.store.AppendRevision(ctx, est.ID, revisable, entry); err != nil {
			return nil, err
		}
		res.RevisionID = entry.ID
		notice.Trigger = TriggerRevisionRequested
		notice.Previous = entry.PreviousStatus
		notice.Revision = entry
		metrics.LifecycleTransitions.WithLabelValues(string(entry.PreviousStatus), string(models.StatusPending)).Inc()

	case ResponseApproved, ResponseDeclined:
		to, trigger := models.StatusApproved, TriggerApproved
		if resp.Kind == ResponseDeclined {
			to, trigger = models.StatusCancelled, TriggerDeclined
		}
		prev, err := s.store.TransitionStatus(ctx, est.ID, []models.EstimateStatus{models.StatusSent}, to)
		if err != nil {
			return nil, err
		}
		notice.Trigger = trigger
		notice.Previous = prev
		metrics.LifecycleTransitions.WithLabelValues(string(prev), string(to)).Inc()
	}

	if est, err = s.store.GetEstimate(ctx, est.ID); err != nil {
		return nil, err
	}
	notice.Estimate = est
	res.Status = est.Status
	res.NotificationWarning = len(s.hooks.Run(ctx, notice)) > 0

	s.logger.Info("Estimate response recorded", map[string]interface{}{
		"sessionId":  sessionID,
		"estimateId": est.ID,
		"response":   string(resp.Kind),
		"status":     string(est.Status),
	})
	return res, nil
}

type TransitionResult struct {
	EstimateID          string                `json:"estimateId"`
	PreviousStatus      models.EstimateStatus `json:"previousStatus"`
	Status              models.EstimateStatus `json:"status"`
	NotificationWarning bool                  `json:"notificationWarning"`
}

// Transition applies an administrative action.
func (s *Service) Transition(ctx context.Context, estimateID string, action Action) (*TransitionResult, error) {
	to, ok := action.target()
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidResponse, action)
	}

	prev, err := s.store.TransitionStatus(ctx, estimateID, sourcesOf(to), to)
	if err != nil {
		return nil, err
	}
	metrics.LifecycleTransitions.WithLabelValues(string(prev), string(to)).Inc()

	est, err := s.store.GetEstimate(ctx, estimateID)
	if err != nil {
		return nil, err
	}
	sess, err := s.store.GetSession(ctx, est.SessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	trigger := TriggerSent
	if to == models.StatusCompleted {
		trigger = TriggerCompleted
	}
	failed := s.hooks.Run(ctx, Notice{Trigger: trigger, Session: sess, Estimate: est, Previous: prev})

	return &TransitionResult{
		EstimateID:          estimateID,
		PreviousStatus:      prev,
		Status:              est.Status,
		NotificationWarning: len(failed) > 0,
	}, nil
}

// ResolvePlaceholder binds a placeholder item to a catalog entry.
func (s *Service) ResolvePlaceholder(ctx context.Context, estimateID, itemID string, catalogID int64) (*models.Estimate, error) {
	entries, err := s.catalog.FindByIDs(ctx, []int64{catalogID})
	if err != nil {
		return nil, fmt.Errorf("find catalog entry: %w", err)
	}
	entry, ok := entries[catalogID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrCatalogEntryNotFound, catalogID)
	}

	est, err := s.store.UpdateItems(ctx, estimateID, editable, func(est *models.Estimate) error {
		idx := est.FindItem(itemID)
		if idx < 0 {
			return ErrItemNotFound
		}
		if !est.Items[idx].IsPlaceholder() {
			return fmt.Errorf("%w: item %s is already resolved", ErrStateConflict, itemID)
		}
		est.Items[idx].Resolve(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hooks.Run(ctx, Notice{Trigger: TriggerItemUpdated, Estimate: est})
	return est, nil
}

// RemoveItem deletes an item and closes the gap in its day's ordering.
func (s *Service) RemoveItem(ctx context.Context, estimateID, itemID string) (*models.Estimate, error) {
	est, err := s.store.UpdateItems(ctx, estimateID, editable, func(est *models.Estimate) error {
		idx := est.FindItem(itemID)
		if idx < 0 {
			return ErrItemNotFound
		}
		items := append(est.Items[:idx:idx], est.Items[idx+1:]...)
		est.Items = models.Reindex(items)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hooks.Run(ctx, Notice{Trigger: TriggerItemUpdated, Estimate: est})
	return est, nil
}

// LinkIdentity attaches a guest session to an authenticated user. Linking the
// same user again is a no-op success.
func (s *Service) LinkIdentity(ctx context.Context, sessionID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrMissingIdentity
	}
	if err := s.store.LinkIdentity(ctx, sessionID, userID); err != nil {
		return err
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	s.hooks.Run(ctx, Notice{Trigger: TriggerIdentityLinked, Session: sess})
	return nil
}

// sessionEstimate loads a session and its attached estimate. With required
// set, a session without an estimate is ErrEstimateNotFound.
func (s *Service) sessionEstimate(ctx context.Context, sessionID string, required bool) (*models.QuoteSession, *models.Estimate, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.EstimateID == nil {
		if required {
			return nil, nil, fmt.Errorf("%w: session %s has no estimate", ErrEstimateNotFound, sessionID)
		}
		return sess, nil, nil
	}
	est, err := s.store.GetEstimate(ctx, *sess.EstimateID)
	if err != nil {
		return nil, nil, err
	}
	return sess, est, nil
}
