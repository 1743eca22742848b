// Package triggers holds the independent violation detectors invoked after
// each submission event. Each detector decides on its own and calls
// governance with its own reason category; one detector failing never stops
// the others.
package triggers

import (
	"context"
	"log/slog"
	"time"

	"warden/internal/suspension"
	"warden/pkg/domain"
)

// SubmissionStatus is the review outcome of a submission event.
type SubmissionStatus string

const (
	StatusAccepted SubmissionStatus = "accepted"
	StatusRejected SubmissionStatus = "rejected"
	StatusPending  SubmissionStatus = "pending"
)

// SubmissionEvent is the fact a detector evaluates.
type SubmissionEvent struct {
	UserID      domain.UserID
	IdentityID  domain.IdentityID
	CampaignID  domain.CampaignID
	Sector      string
	ArtifactRef string
	Status      SubmissionStatus
	OccurredAt  time.Time
}

// Finding is a fired trigger: the category and details governance receives.
type Finding struct {
	Category suspension.ReasonCategory
	Details  string
}

// Detector evaluates one rule against a submission event. fired=false with
// a nil error means the rule simply did not match.
type Detector interface {
	Name() string
	Detect(ctx context.Context, event SubmissionEvent) (Finding, bool, error)
}

// Suspender is the governance entry point detectors feed into.
type Suspender interface {
	DetectAndSuspend(ctx context.Context, userID domain.UserID, category suspension.ReasonCategory, details string) (suspension.DetectOutcome, error)
}

// Registry fans a submission event out to every registered detector.
type Registry struct {
	detectors []Detector
	governor  Suspender
	logger    *slog.Logger
}

// NewRegistry builds a registry over the given detectors.
func NewRegistry(governor Suspender, logger *slog.Logger, detectors ...Detector) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{detectors: detectors, governor: governor, logger: logger}
}

// Evaluate runs every detector against the event. Detector errors degrade
// to a log line; a firing detector calls governance and the sweep
// continues, so several rules can fire on one event.
func (r *Registry) Evaluate(ctx context.Context, event SubmissionEvent) []Finding {
	var fired []Finding
	for _, det := range r.detectors {
		finding, hit, err := det.Detect(ctx, event)
		if err != nil {
			r.logger.WarnContext(ctx, "trigger detector degraded",
				"detector", det.Name(), "user_id", event.UserID, "error", err)
			continue
		}
		if !hit {
			continue
		}

		fired = append(fired, finding)
		r.logger.InfoContext(ctx, "trigger fired",
			"detector", det.Name(), "user_id", event.UserID, "category", finding.Category)

		if _, err := r.governor.DetectAndSuspend(ctx, event.UserID, finding.Category, finding.Details); err != nil {
			r.logger.ErrorContext(ctx, "governance call failed",
				"detector", det.Name(), "user_id", event.UserID, "error", err)
		}
	}
	return fired
}
