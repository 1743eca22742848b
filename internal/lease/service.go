package lease

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warden/internal/lease/metrics"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
	"warden/pkg/requestcontext"
)

// Store persists leases. Claim must be atomic: it succeeds only when no
// prior claim exists, the prior claim has expired, or the claimant already
// holds the lease (renewal). A live claim by another user returns
// sentinel.ErrConflict.
type Store interface {
	Claim(ctx context.Context, claim Lease, now time.Time) (Lease, error)
	Get(ctx context.Context, campaignID domain.CampaignID) (Lease, error)
}

// Service coordinates work-item claims.
type Service struct {
	store     Store
	ttl       time.Duration
	logger    *slog.Logger
	publisher audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithTTL overrides the claim duration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New builds the lease service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("lease store is required")
	}
	s := &Service{
		store:  store,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Claim takes or renews the lease on a work item for the caller. A live
// claim held by someone else is reported as a conflict; the caller should
// move on to another item rather than retry.
func (s *Service) Claim(ctx context.Context, campaignID domain.CampaignID, userID domain.UserID) (Lease, error) {
	if campaignID.IsNil() {
		return Lease{}, dErrors.New(dErrors.CodeInvalidInput, "campaign_id is required")
	}
	if userID.IsNil() {
		return Lease{}, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}

	now := requestcontext.Now(ctx)
	claim := Lease{
		CampaignID:  campaignID,
		LockedBy:    userID,
		LockedUntil: now.Add(s.ttl),
		ClaimedAt:   now,
	}

	granted, err := s.store.Claim(ctx, claim, now)
	if errors.Is(err, sentinel.ErrConflict) {
		metrics.ClaimsTotal.WithLabelValues("contended").Inc()
		return Lease{}, dErrors.Wrap(err, dErrors.CodeConflict, "work item already claimed")
	}
	if err != nil {
		return Lease{}, fmt.Errorf("claim lease: %w", err)
	}

	metrics.ClaimsTotal.WithLabelValues("granted").Inc()
	s.logger.InfoContext(ctx, "lease claimed",
		"campaign_id", campaignID, "user_id", userID, "locked_until", granted.LockedUntil)
	audit.Log(ctx, s.publisher, s.logger, audit.EventLeaseClaimed, userID,
		campaignID.String(), "", "until "+granted.LockedUntil.Format(time.RFC3339))
	return granted, nil
}

// Holder returns the live lease on a work item, if any. Expired claims are
// reported as absent; the rows are overwritten by the next claim rather
// than reaped.
func (s *Service) Holder(ctx context.Context, campaignID domain.CampaignID) (Lease, bool, error) {
	if campaignID.IsNil() {
		return Lease{}, false, dErrors.New(dErrors.CodeInvalidInput, "campaign_id is required")
	}

	current, err := s.store.Get(ctx, campaignID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Lease{}, false, nil
	}
	if err != nil {
		return Lease{}, false, fmt.Errorf("load lease: %w", err)
	}
	if !current.Valid(requestcontext.Now(ctx)) {
		return Lease{}, false, nil
	}
	return current, true, nil
}
