package trust

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"warden/internal/identity"
	"warden/internal/profile"
	"warden/internal/trust/metrics"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/audit"
	"warden/pkg/requestcontext"
)

// EmailValidator scores an email address.
type EmailValidator interface {
	Validate(ctx context.Context, address string) identity.Result
}

// ProfileAnalyzer scores a public reviewer profile.
type ProfileAnalyzer interface {
	Analyze(ctx context.Context, profileURL string) profile.Result
}

// Service orchestrates signal gathering and composes the trust verdict.
type Service struct {
	validator EmailValidator
	analyzer  ProfileAnalyzer
	publisher audit.Publisher
	quota     QuotaPolicy
	logger    *slog.Logger
	tracer    trace.Tracer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithAuditPublisher wires audit emission.
func WithAuditPublisher(p audit.Publisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithQuotaPolicy overrides the level-to-quota table.
func WithQuotaPolicy(p QuotaPolicy) ServiceOption {
	return func(s *Service) {
		s.quota = p
	}
}

// NewService builds the trust service. The validator and analyzer are
// required.
func NewService(validator EmailValidator, analyzer ProfileAnalyzer, opts ...ServiceOption) (*Service, error) {
	if validator == nil {
		return nil, fmt.Errorf("trust service requires an email validator")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("trust service requires a profile analyzer")
	}
	s := &Service{
		validator: validator,
		analyzer:  analyzer,
		quota:     DefaultQuotaPolicy(),
		logger:    slog.Default(),
		tracer:    otel.Tracer("warden/trust"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluate gathers the email and profile signals in parallel and composes
// them. The two signals are independent, so one slow upstream does not
// serialize behind the other.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "trust.Evaluate")
	defer span.End()

	if req.UserID.IsNil() {
		return Evaluation{}, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	if req.Email == "" {
		return Evaluation{}, dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}

	var (
		emailRes identity.Result
		profRes  profile.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		emailRes = s.validator.Validate(gctx, req.Email)
		return nil
	})
	g.Go(func() error {
		profRes = s.analyzer.Analyze(gctx, req.ProfileURL)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Evaluation{}, dErrors.Wrap(err, dErrors.CodeInternal, "gather trust signals")
	}

	if profRes.Degraded {
		metrics.SignalFailuresTotal.WithLabelValues("profile").Inc()
	}
	if !emailRes.SyntaxValid {
		metrics.SignalFailuresTotal.WithLabelValues("email_syntax").Inc()
	}

	ev := Compose(emailRes, profRes, req.PhoneVerified)
	ev.UserID = req.UserID
	ev.MaxReviewsPerMonth = s.quota.MonthlyMax(ev.Level)
	ev.EvaluatedAt = requestcontext.Now(ctx)

	span.SetAttributes(
		attribute.Int("trust.score", ev.Score),
		attribute.String("trust.level", string(ev.Level)),
	)
	metrics.EvaluationsTotal.WithLabelValues(string(ev.Level)).Inc()
	metrics.EvaluationScore.Observe(float64(ev.Score))

	s.logger.InfoContext(ctx, "trust evaluated",
		"user_id", ev.UserID,
		"score", ev.Score,
		"level", ev.Level,
		"email_valid", emailRes.Valid,
		"profile_valid", profRes.Valid,
	)
	audit.Log(ctx, s.publisher, s.logger, audit.EventTrustEvaluated, ev.UserID,
		"trust", string(ev.Level), fmt.Sprintf("score=%d", ev.Score))

	return ev, nil
}
