package trust

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/identity"
	"warden/internal/profile"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	auditmem "warden/pkg/platform/audit/store/memory"
	auditpub "warden/pkg/platform/audit/publisher"
	"warden/pkg/requestcontext"
)

type stubValidator struct {
	result identity.Result
}

func (s *stubValidator) Validate(context.Context, string) identity.Result {
	return s.result
}

type stubAnalyzer struct {
	result profile.Result
}

func (s *stubAnalyzer) Analyze(context.Context, string) profile.Result {
	return s.result
}

type ServiceSuite struct {
	suite.Suite
	auditStore *auditmem.InMemoryStore
	now        time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.auditStore = auditmem.NewInMemoryStore()
	s.now = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) newService(v EmailValidator, a ProfileAnalyzer) *Service {
	svc, err := NewService(v, a,
		WithAuditPublisher(auditpub.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
	return svc
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) TestEvaluateComposesSignals() {
	svc := s.newService(
		&stubValidator{result: identity.Result{Valid: true, Score: 30}},
		&stubAnalyzer{result: profile.Result{Valid: true, Level: 3, Score: 45}},
	)

	ev, err := svc.Evaluate(s.ctx(), EvaluateRequest{
		UserID:        domain.NewUserID(),
		Email:         "jane.doe@gmail.com",
		ProfileURL:    "https://reviews.example/jane",
		PhoneVerified: true,
	})

	s.Require().NoError(err)
	s.Equal(100, ev.Score)
	s.Equal(LevelPlatinum, ev.Level)
	s.Equal(s.now, ev.EvaluatedAt)
	s.Contains(s.auditStore.Actions(), "trust_evaluated")
}

func (s *ServiceSuite) TestEvaluateRejectsMissingInput() {
	svc := s.newService(&stubValidator{}, &stubAnalyzer{})

	_, err := svc.Evaluate(s.ctx(), EvaluateRequest{Email: "a@b.test"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = svc.Evaluate(s.ctx(), EvaluateRequest{UserID: domain.NewUserID()})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestDegradedProfileStillEvaluates() {
	svc := s.newService(
		&stubValidator{result: identity.Result{Valid: true}},
		&stubAnalyzer{result: profile.Result{Degraded: true}},
	)

	ev, err := svc.Evaluate(s.ctx(), EvaluateRequest{
		UserID: domain.NewUserID(),
		Email:  "jane.doe@gmail.com",
	})

	s.Require().NoError(err)
	s.Equal(30, ev.Score)
	s.Equal(LevelBronze, ev.Level)
}

func (s *ServiceSuite) TestDisposableIdentityFullyBlocked() {
	svc := s.newService(
		&stubValidator{result: identity.Result{Disposable: true, Score: -30}},
		&stubAnalyzer{result: profile.Result{Degraded: true}},
	)

	ev, err := svc.Evaluate(s.ctx(), EvaluateRequest{
		UserID: domain.NewUserID(),
		Email:  "x@mailinator.com",
	})

	s.Require().NoError(err)
	s.Equal(0, ev.Score)
	s.Equal(LevelBlocked, ev.Level)
	s.True(ev.Blocked)
	s.Equal(0, ev.MaxReviewsPerMonth)
}

func (s *ServiceSuite) TestQuotaPolicyOverride() {
	svc := s.newService(
		&stubValidator{result: identity.Result{Valid: true}},
		&stubAnalyzer{result: profile.Result{Valid: true, Level: 3}},
	)
	svc.quota = QuotaPolicy{LevelPlatinum: 50}

	ev, err := svc.Evaluate(s.ctx(), EvaluateRequest{
		UserID:        domain.NewUserID(),
		Email:         "jane.doe@gmail.com",
		PhoneVerified: true,
	})

	s.Require().NoError(err)
	s.Equal(LevelPlatinum, ev.Level)
	s.Equal(50, ev.MaxReviewsPerMonth)
}

func (s *ServiceSuite) TestNewServiceValidatesDeps() {
	_, err := NewService(nil, &stubAnalyzer{})
	s.Error(err)

	_, err = NewService(&stubValidator{}, nil)
	s.Error(err)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
