package suspension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"warden/internal/notify"
	"warden/internal/suspension/metrics"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
	pstrings "warden/pkg/platform/strings"
	"warden/pkg/requestcontext"
)

// Service is the suspension governance state machine.
type Service struct {
	store     Store
	config    ConfigStore
	geo       GeoLocator
	notifier  notify.Notifier
	publisher audit.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
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

// WithNotifier wires best-effort notification dispatch.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithGeoLocator wires the IP-to-country lookup used by geoblocking.
func WithGeoLocator(g GeoLocator) Option {
	return func(s *Service) {
		s.geo = g
	}
}

// New builds the governance service. Store and config store are required;
// geo, notifier and audit are optional overlays.
func New(store Store, config ConfigStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("suspension service requires a store")
	}
	if config == nil {
		return nil, fmt.Errorf("suspension service requires a config store")
	}
	s := &Service{
		store:  store,
		config: config,
		logger: slog.Default(),
		tracer: otel.Tracer("warden/suspension"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DetectAndSuspend is the single entry point for violation-driven
// suspension. It loads the policy fresh, applies the exemption overlay, and
// either opens a first suspension or escalates through the recidivism path
// when one is already active.
func (s *Service) DetectAndSuspend(ctx context.Context, userID domain.UserID, category ReasonCategory, details string) (DetectOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "suspension.DetectAndSuspend")
	defer span.End()

	if userID.IsNil() {
		return DetectOutcome{}, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return DetectOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "load governance config")
	}

	if !cfg.Enabled || !cfg.AutoSuspend {
		s.logger.InfoContext(ctx, "suspension skipped: governance disabled",
			"user_id", userID, "category", category)
		return DetectOutcome{Reason: "governance disabled"}, nil
	}

	if exempt, why := s.isExempt(ctx, cfg, userID); exempt {
		audit.Log(ctx, s.publisher, s.logger, audit.EventExemptionBypass, userID,
			"suspension", why, string(category))
		metrics.ExemptionBypasses.Inc()
		return DetectOutcome{Exempted: true, Reason: why}, nil
	}

	span.SetAttributes(attribute.String("suspension.category", string(category)))

	active, err := s.store.GetActive(ctx, userID)
	switch {
	case err == nil:
		return s.escalate(ctx, cfg, active, category, details)
	case errors.Is(err, sentinel.ErrNotFound):
		return s.suspendFresh(ctx, cfg, userID, category, details)
	default:
		return DetectOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "load active suspension")
	}
}

// strikeGated reports whether the category accumulates toward the policy's
// violation threshold. Geoblocking and manual action apply immediately.
func strikeGated(category ReasonCategory) bool {
	return category != ReasonGeoblock && category != ReasonManual
}

// suspendFresh opens a suspension for a user with no active one, at the
// level following their most recent historical suspension. First-time
// offenders accrue strikes until the policy threshold; prior offenders get
// no such grace.
func (s *Service) suspendFresh(ctx context.Context, cfg Config, userID domain.UserID, category ReasonCategory, details string) (DetectOutcome, error) {
	ordinal := 1
	last, err := s.store.LastHistory(ctx, userID)
	switch {
	case err == nil:
		ordinal = NextOrdinal(last.LevelOrdinal)
	case errors.Is(err, sentinel.ErrNotFound):
		// First offense.
		if strikeGated(category) {
			strikes, err := s.store.RecordStrike(ctx, userID)
			if err != nil {
				return DetectOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "record strike")
			}
			if strikes < cfg.ViolationThreshold {
				metrics.StrikesTotal.Inc()
				s.logger.InfoContext(ctx, "strike recorded below suspension threshold",
					"user_id", userID,
					"category", category,
					"strikes", strikes,
					"threshold", cfg.ViolationThreshold,
				)
				return DetectOutcome{Reason: fmt.Sprintf("strike %d of %d", strikes, cfg.ViolationThreshold)}, nil
			}
		}
	default:
		return DetectOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "load suspension history")
	}

	created, err := s.create(ctx, userID, ordinal, category, details)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			// A concurrent trigger won the race; the user is already in the
			// state this call wanted.
			existing, getErr := s.store.GetActive(ctx, userID)
			if getErr == nil {
				return DetectOutcome{Suspended: true, SuspensionID: existing.ID, LevelOrdinal: existing.LevelOrdinal}, nil
			}
		}
		return DetectOutcome{}, err
	}

	audit.Log(ctx, s.publisher, s.logger, audit.EventSuspensionCreated, userID,
		"suspension", string(category), fmt.Sprintf("level=%d", created.LevelOrdinal))
	s.notifySuspension(ctx, created)

	return DetectOutcome{Suspended: true, SuspensionID: created.ID, LevelOrdinal: created.LevelOrdinal}, nil
}

// escalate handles a violation arriving while a suspension is already
// active: close the current one, then open the next level. This is the only
// path allowed past the one-active-suspension precondition, because it
// closes before it opens.
func (s *Service) escalate(ctx context.Context, cfg Config, active UserSuspension, category ReasonCategory, details string) (DetectOutcome, error) {
	now := requestcontext.Now(ctx)

	_, closed, err := s.store.CloseIfActive(ctx, active.ID, now, "system", string(ReasonRecidivism))
	if err != nil {
		return DetectOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "close suspension for escalation")
	}
	if !closed {
		// Lost a race with a lift or another escalation; re-read and let the
		// fresh path decide.
		return s.suspendFresh(ctx, cfg, active.UserID, category, details)
	}

	ordinal := NextOrdinal(active.LevelOrdinal)
	created, err := s.create(ctx, active.UserID, ordinal, category,
		fmt.Sprintf("%s (escalated from level %d)", details, active.LevelOrdinal))
	if err != nil {
		return DetectOutcome{}, err
	}

	metrics.Escalations.Inc()
	audit.Log(ctx, s.publisher, s.logger, audit.EventSuspensionEscalated, active.UserID,
		"suspension", string(category), fmt.Sprintf("level=%d->%d", active.LevelOrdinal, created.LevelOrdinal))
	s.notifySuspension(ctx, created)

	return DetectOutcome{Suspended: true, SuspensionID: created.ID, LevelOrdinal: created.LevelOrdinal}, nil
}

// create builds and persists a suspension at the given level. The store
// runs the precondition, insert, status flip and history append as one
// transaction.
func (s *Service) create(ctx context.Context, userID domain.UserID, ordinal int, category ReasonCategory, details string) (UserSuspension, error) {
	level, err := LevelByOrdinal(ordinal)
	if err != nil {
		return UserSuspension{}, err
	}

	now := requestcontext.Now(ctx)
	suspension := UserSuspension{
		ID:           domain.NewSuspensionID(),
		UserID:       userID,
		LevelOrdinal: level.Ordinal,
		Category:     category,
		Details:      details,
		StartedAt:    now,
		EndsAt:       now.AddDate(0, 0, level.DurationDays),
		Active:       true,
	}
	history := HistoryEntry{
		UserID:       userID,
		SuspensionID: suspension.ID,
		LevelOrdinal: level.Ordinal,
		Category:     category,
		StartedAt:    now,
		Note:         details,
	}

	created, err := s.store.Create(ctx, suspension, history)
	if errors.Is(err, sentinel.ErrConflict) {
		return UserSuspension{}, dErrors.Wrap(err, dErrors.CodeConflict, "user already has an active suspension")
	}
	if err != nil {
		return UserSuspension{}, dErrors.Wrap(err, dErrors.CodeInternal, "create suspension")
	}

	metrics.SuspensionsTotal.WithLabelValues(fmt.Sprint(level.Ordinal), string(category)).Inc()
	s.logger.WarnContext(ctx, "suspension created",
		"user_id", userID,
		"suspension_id", created.ID,
		"level", level.Ordinal,
		"category", category,
		"ends_at", created.EndsAt,
	)
	return created, nil
}

// Lift closes a suspension manually. Lifting an already-closed suspension
// is reported as a conflict so callers can treat it as already done.
func (s *Service) Lift(ctx context.Context, suspensionID domain.SuspensionID, actor, reason string) (UserSuspension, error) {
	if _, err := s.store.Get(ctx, suspensionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return UserSuspension{}, dErrors.New(dErrors.CodeNotFound, "suspension not found")
		}
		return UserSuspension{}, dErrors.Wrap(err, dErrors.CodeInternal, "load suspension")
	}

	now := requestcontext.Now(ctx)
	lifted, closed, err := s.store.CloseIfActive(ctx, suspensionID, now, actor, reason)
	if err != nil {
		return UserSuspension{}, dErrors.Wrap(err, dErrors.CodeInternal, "lift suspension")
	}
	if !closed {
		return UserSuspension{}, dErrors.New(dErrors.CodeConflict, "suspension already closed")
	}

	metrics.LiftsTotal.WithLabelValues("manual").Inc()
	s.logger.InfoContext(ctx, "suspension lifted",
		"suspension_id", suspensionID, "actor", actor, "reason", reason)
	audit.Log(ctx, s.publisher, s.logger, audit.EventSuspensionLifted, lifted.UserID,
		"suspension", reason, fmt.Sprintf("level=%d", lifted.LevelOrdinal))
	s.notify(ctx, lifted.UserID, "Suspension lifted", reason)

	return lifted, nil
}

// ActiveSuspension returns the user's active suspension, or ok=false when
// the user is in good standing.
func (s *Service) ActiveSuspension(ctx context.Context, userID domain.UserID) (UserSuspension, bool, error) {
	active, err := s.store.GetActive(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return UserSuspension{}, false, nil
	}
	if err != nil {
		return UserSuspension{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "load active suspension")
	}
	return active, true, nil
}

// AutoLiftExpired closes every active, expired suspension whose level
// permits automatic release. Each row transition is guarded by its own
// active flag, so the sweep is idempotent and safe to run from several
// workers at once.
func (s *Service) AutoLiftExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)

	expired, err := s.store.ListExpiredActive(ctx, now, AutoLiftOrdinals())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list expired suspensions")
	}

	lifted := 0
	for _, susp := range expired {
		closed, ok, err := s.store.CloseIfActive(ctx, susp.ID, now, "system", "duration elapsed")
		if err != nil {
			s.logger.ErrorContext(ctx, "auto-lift failed",
				"suspension_id", susp.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		lifted++
		metrics.LiftsTotal.WithLabelValues("auto").Inc()
		audit.Log(ctx, s.publisher, s.logger, audit.EventSuspensionAutoLifted, closed.UserID,
			"suspension", "duration elapsed", fmt.Sprintf("level=%d", closed.LevelOrdinal))
		s.notify(ctx, closed.UserID, "Suspension lifted", "your suspension period has ended")
	}

	if lifted > 0 {
		s.logger.InfoContext(ctx, "auto-lift sweep complete", "lifted", lifted)
	}
	return lifted, nil
}

// EnforceGeoblock resolves the caller's origin country and suspends when it
// is on the blocked list. The external lookup runs only when the observed
// origin differs from the last recorded one for this user.
func (s *Service) EnforceGeoblock(ctx context.Context, userID domain.UserID, ip string) (DetectOutcome, error) {
	if s.geo == nil || ip == "" {
		return DetectOutcome{}, nil
	}

	changed, err := s.store.SwapOrigin(ctx, userID, ip)
	if err != nil {
		return DetectOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "record origin")
	}
	if !changed {
		return DetectOutcome{}, nil
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return DetectOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "load governance config")
	}

	country, err := s.geo.Country(ctx, ip)
	if err != nil || country == "" {
		// Best effort: an unavailable lookup never blocks the caller.
		s.logger.WarnContext(ctx, "geo lookup degraded", "ip", ip, "error", err)
		return DetectOutcome{}, nil
	}

	if pstrings.ContainsFold(cfg.ExemptCountries, country) {
		return DetectOutcome{Exempted: true, Reason: "exempt country"}, nil
	}
	if !pstrings.ContainsFold(cfg.BlockedCountries, country) {
		return DetectOutcome{}, nil
	}

	audit.Log(ctx, s.publisher, s.logger, audit.EventGeoblockApplied, userID,
		"suspension", country, ip)
	metrics.GeoblocksTotal.WithLabelValues(country).Inc()

	return s.DetectAndSuspend(ctx, userID, ReasonGeoblock,
		fmt.Sprintf("submission from blocked country %s", country))
}

// GetConfig returns the current governance policy.
func (s *Service) GetConfig(ctx context.Context) (Config, error) {
	return s.config.Get(ctx)
}

// SetConfig replaces the governance policy.
func (s *Service) SetConfig(ctx context.Context, cfg Config) error {
	cfg.ExemptUserIDs = pstrings.DedupeAndTrimLower(cfg.ExemptUserIDs)
	cfg.ExemptCountries = pstrings.DedupeAndTrimLower(cfg.ExemptCountries)
	cfg.BlockedCountries = pstrings.DedupeAndTrimLower(cfg.BlockedCountries)

	if err := s.config.Set(ctx, cfg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store governance config")
	}
	audit.Log(ctx, s.publisher, s.logger, audit.EventGovernanceConfigSet, domain.UserID{},
		"config", "admin update", "")
	return nil
}

// isExempt applies the exemption overlay: explicit user allow-list and the
// always-exempt privileged roles carried by the acting principal.
func (s *Service) isExempt(ctx context.Context, cfg Config, userID domain.UserID) (bool, string) {
	if pstrings.ContainsFold(cfg.ExemptUserIDs, userID.String()) {
		return true, "exempt user"
	}
	if role := requestcontext.Role(ctx); role != "" && pstrings.ContainsFold(cfg.ExemptRoles, role) {
		return true, "exempt role"
	}
	return false, ""
}

func (s *Service) notifySuspension(ctx context.Context, susp UserSuspension) {
	level, err := LevelByOrdinal(susp.LevelOrdinal)
	if err != nil {
		return
	}
	s.notify(ctx, susp.UserID,
		fmt.Sprintf("Account suspended: %s", level.Name),
		fmt.Sprintf("until %s: %s", susp.EndsAt.Format("2006-01-02"), susp.Details))
}

// notify is post-commit and strictly best-effort.
func (s *Service) notify(ctx context.Context, userID domain.UserID, subject, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notify.Notification{UserID: userID, Subject: subject, Body: body}); err != nil {
		s.logger.WarnContext(ctx, "notification failed", "user_id", userID, "error", err)
	}
}
