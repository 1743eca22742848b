// Package service implements the quota and cooldown decision logic.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"warden/internal/ledger"
	"warden/internal/ledger/metrics"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/requestcontext"
)

// Service evaluates submission gates and maintains compliance standing.
type Service struct {
	identities ledger.IdentityStore
	compliance ledger.ComplianceStore
	directory  ledger.CampaignDirectory
	publisher  audit.Publisher
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithAuditPublisher wires audit emission.
func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// New builds the ledger service. All three stores are required.
func New(identities ledger.IdentityStore, compliance ledger.ComplianceStore, directory ledger.CampaignDirectory, opts ...Option) (*Service, error) {
	if identities == nil {
		return nil, fmt.Errorf("ledger service requires an identity store")
	}
	if compliance == nil {
		return nil, fmt.Errorf("ledger service requires a compliance store")
	}
	if directory == nil {
		return nil, fmt.Errorf("ledger service requires a campaign directory")
	}
	s := &Service{
		identities: identities,
		compliance: compliance,
		directory:  directory,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CanSubmit runs the gate checks in strict order, short-circuiting on the
// first failure: blocked, global monthly quota, compliance floor, sector
// quota, sector cooldown. The check only reads; counters move in
// RecordSubmission.
func (s *Service) CanSubmit(ctx context.Context, identityID domain.IdentityID, campaignID domain.CampaignID) (ledger.Decision, error) {
	now := requestcontext.Now(ctx)

	identity, err := s.identities.Get(ctx, identityID)
	if err != nil {
		return ledger.Decision{}, dErrors.Wrap(err, dErrors.CodeNotFound, "identity not found")
	}

	globalUsed, sectors := identity.EffectiveUsage(now)
	usage := ledger.Usage{GlobalUsed: globalUsed, GlobalMax: identity.GlobalMax()}

	if identity.Blocked || !identity.Active {
		return s.deny(ctx, identity, audit.EventSubmissionDenied, ledger.Decision{
			Reason:  ledger.ReasonBlocked,
			Message: "identity is blocked or inactive",
			Usage:   usage,
		}), nil
	}

	if globalUsed >= usage.GlobalMax {
		return s.deny(ctx, identity, audit.EventQuotaExceeded, ledger.Decision{
			Reason:  ledger.ReasonGlobalQuota,
			Message: fmt.Sprintf("monthly quota reached (%d/%d)", globalUsed, usage.GlobalMax),
			Usage:   usage,
		}), nil
	}

	standing, err := s.compliance.Get(ctx, identity.UserID)
	if err != nil {
		return ledger.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "load compliance score")
	}
	if standing.Score < ledger.ComplianceThreshold {
		return s.deny(ctx, identity, audit.EventSubmissionDenied, ledger.Decision{
			Reason:  ledger.ReasonLowCompliance,
			Message: fmt.Sprintf("compliance score %d below threshold %d", standing.Score, ledger.ComplianceThreshold),
			Usage:   usage,
		}), nil
	}

	sector, policy, err := s.directory.Resolve(ctx, campaignID)
	if err != nil {
		return s.deny(ctx, identity, audit.EventSubmissionDenied, ledger.Decision{
			Reason:  ledger.ReasonUnknownCampaign,
			Message: "campaign is not registered with any sector",
			Usage:   usage,
		}), nil
	}

	activity := sectors[sector]
	usage.SectorUsed = activity.CountThisMonth
	usage.SectorMax = policy.MaxPerMonth

	if activity.CountThisMonth >= policy.MaxPerMonth {
		return s.deny(ctx, identity, audit.EventQuotaExceeded, ledger.Decision{
			Reason:  ledger.ReasonSectorQuota,
			Message: fmt.Sprintf("sector %q monthly cap reached (%d/%d)", sector, activity.CountThisMonth, policy.MaxPerMonth),
			Usage:   usage,
		}), nil
	}

	if !activity.LastPosted.IsZero() {
		days := int(now.Sub(activity.LastPosted).Hours() / 24)
		if days < policy.MinDaysBetween {
			usage.NextEligible = activity.LastPosted.AddDate(0, 0, policy.MinDaysBetween)
			return s.deny(ctx, identity, audit.EventSubmissionDenied, ledger.Decision{
				Reason:  ledger.ReasonSectorCooldown,
				Message: fmt.Sprintf("sector %q cooldown: %d of %d days elapsed", sector, days, policy.MinDaysBetween),
				Usage:   usage,
			}), nil
		}
	}

	metrics.DecisionsTotal.WithLabelValues(string(ledger.ReasonOK)).Inc()
	return ledger.Decision{Allowed: true, Reason: ledger.ReasonOK, Usage: usage}, nil
}

func (s *Service) deny(ctx context.Context, identity ledger.Identity, event audit.AuditEvent, d ledger.Decision) ledger.Decision {
	metrics.DecisionsTotal.WithLabelValues(string(d.Reason)).Inc()
	s.logger.InfoContext(ctx, "submission denied",
		"identity_id", identity.ID,
		"user_id", identity.UserID,
		"reason", d.Reason,
	)
	audit.Log(ctx, s.publisher, s.logger, event, identity.UserID, "submission", string(d.Reason), d.Message)
	return d
}

// RecordSubmission moves the counters for an accepted submission. The store
// performs the reset-check, increments and timestamps as one atomic update.
func (s *Service) RecordSubmission(ctx context.Context, identityID domain.IdentityID, sector ledger.Sector) (ledger.Identity, error) {
	now := requestcontext.Now(ctx)

	identity, err := s.identities.RecordSubmission(ctx, identityID, sector, now)
	if err != nil {
		return ledger.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "record submission")
	}

	metrics.SubmissionsRecorded.WithLabelValues(string(sector)).Inc()
	s.logger.InfoContext(ctx, "submission recorded",
		"identity_id", identityID,
		"sector", sector,
		"monthly_used", identity.MonthlyUsed,
	)
	audit.Log(ctx, s.publisher, s.logger, audit.EventSubmissionRecorded, identity.UserID,
		"submission", string(sector), fmt.Sprintf("monthly_used=%d", identity.MonthlyUsed))

	return identity, nil
}

// LogViolation deducts compliance points for a rule breach and appends the
// immutable log entry.
func (s *Service) LogViolation(ctx context.Context, userID domain.UserID, rule string, severity ledger.Severity, detail string) (ledger.ComplianceScore, error) {
	if userID.IsNil() {
		return ledger.ComplianceScore{}, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}

	v := ledger.Violation{
		Rule:       rule,
		Severity:   severity,
		Points:     severity.Points(),
		Detail:     detail,
		OccurredAt: requestcontext.Now(ctx),
	}

	standing, err := s.compliance.ApplyViolation(ctx, userID, v)
	if err != nil {
		return ledger.ComplianceScore{}, dErrors.Wrap(err, dErrors.CodeInternal, "apply violation")
	}

	metrics.ViolationsTotal.WithLabelValues(string(severity)).Inc()
	metrics.ComplianceScore.Observe(float64(standing.Score))
	s.logger.WarnContext(ctx, "violation logged",
		"user_id", userID,
		"rule", rule,
		"severity", severity,
		"score", standing.Score,
	)
	audit.Log(ctx, s.publisher, s.logger, audit.EventViolationLogged, userID,
		"compliance", rule, fmt.Sprintf("severity=%s score=%d", severity, standing.Score))

	return standing, nil
}

// RestoreCompliance credits points back toward the 100 cap, for admin-driven
// remediation after a successful appeal.
func (s *Service) RestoreCompliance(ctx context.Context, userID domain.UserID, points int, reason string) (ledger.ComplianceScore, error) {
	if points <= 0 {
		return ledger.ComplianceScore{}, dErrors.New(dErrors.CodeInvalidInput, "points must be positive")
	}

	standing, err := s.compliance.Restore(ctx, userID, points)
	if err != nil {
		return ledger.ComplianceScore{}, dErrors.Wrap(err, dErrors.CodeInternal, "restore compliance")
	}

	s.logger.InfoContext(ctx, "compliance restored", "user_id", userID, "points", points, "score", standing.Score)
	audit.Log(ctx, s.publisher, s.logger, audit.EventComplianceRecovered, userID,
		"compliance", reason, fmt.Sprintf("points=%d score=%d", points, standing.Score))

	return standing, nil
}

// Compliance returns the user's current standing.
func (s *Service) Compliance(ctx context.Context, userID domain.UserID) (ledger.ComplianceScore, error) {
	return s.compliance.Get(ctx, userID)
}

// LastSectorActivity exposes an identity's sector standing for the trigger
// detectors without handing them the whole store.
func (s *Service) LastSectorActivity(ctx context.Context, identityID domain.IdentityID, sector ledger.Sector) (ledger.SectorActivity, ledger.SectorPolicy, error) {
	identity, err := s.identities.Get(ctx, identityID)
	if err != nil {
		return ledger.SectorActivity{}, ledger.SectorPolicy{}, err
	}
	policy, err := s.directory.PolicyFor(ctx, sector)
	if err != nil {
		return ledger.SectorActivity{}, ledger.SectorPolicy{}, err
	}
	_, sectors := identity.EffectiveUsage(requestcontext.Now(ctx))
	return sectors[sector], policy, nil
}
