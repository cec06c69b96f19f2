// internal/estimate/hooks.go
package estimate

import (
	"context"
	"fmt"
	"time"

	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/metrics"
	"tour-estimate-workers/internal/models"
)

// Trigger names the committed change a hook is told about.
type Trigger string

const (
	TriggerGenerated         Trigger = "generated"
	TriggerSubmitted         Trigger = "submitted"
	TriggerSent              Trigger = "sent"
	TriggerApproved          Trigger = "approved"
	TriggerDeclined          Trigger = "declined"
	TriggerCompleted         Trigger = "completed"
	TriggerRevisionRequested Trigger = "revision_requested"
	TriggerItemUpdated       Trigger = "item_updated"
	TriggerIdentityLinked    Trigger = "identity_linked"
)

// Notice describes a committed change. Session and Estimate may be nil when
// the change does not involve them.
type Notice struct {
	Trigger  Trigger
	Session  *models.QuoteSession
	Estimate *models.Estimate
	Previous models.EstimateStatus
	Revision *models.RevisionEntry
}

// SessionID returns the session the notice belongs to.
func (n Notice) SessionID() string {
	if n.Session != nil {
		return n.Session.ID
	}
	if n.Estimate != nil {
		return n.Estimate.SessionID
	}
	return ""
}

// Hook reacts to a committed change. Hooks ignore triggers they do not handle.
type Hook interface {
	Name() string
	Fire(ctx context.Context, n Notice) error
}

// Hooks runs post-commit hooks in order. Each hook gets its own timeout, and a
// failing or panicking hook does not stop the others.
type Hooks struct {
	hooks   []Hook
	timeout time.Duration
	logger  logger.Logger
}

func NewHooks(timeout time.Duration, log logger.Logger, hooks ...Hook) *Hooks {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Hooks{
		hooks:   hooks,
		timeout: timeout,
		logger:  logger.ForComponent(log, "estimate-hooks"),
	}
}

// Run fires every hook and returns the names of those that failed.
func (h *Hooks) Run(ctx context.Context, n Notice) []string {
	if h == nil {
		return nil
	}
	var failed []string
	for _, hook := range h.hooks {
		if err := h.fire(ctx, hook, n); err != nil {
			failed = append(failed, hook.Name())
			metrics.HookFailures.WithLabelValues(hook.Name()).Inc()
			h.logger.Warn("Post-commit hook failed", map[string]interface{}{
				"hook":      hook.Name(),
				"trigger":   string(n.Trigger),
				"sessionId": n.SessionID(),
				"error":     err,
			})
		}
	}
	return failed
}

func (h *Hooks) fire(ctx context.Context, hook Hook, n Notice) (err error) {
	// the triggering transaction is already committed
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("hook panicked: %v", p)
		}
	}()
	return hook.Fire(ctx, n)
}

// HookFunc adapts a function to Hook.
type HookFunc struct {
	HookName string
	Fn       func(ctx context.Context, n Notice) error
}

func (f HookFunc) Name() string { return f.HookName }

func (f HookFunc) Fire(ctx context.Context, n Notice) error { return f.Fn(ctx, n) }
