package suspension_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"warden/internal/suspension"
	"warden/internal/suspension/mocks"
	"warden/internal/suspension/store"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	auditmem "warden/pkg/platform/audit/store/memory"
	auditpub "warden/pkg/platform/audit/publisher"
	"warden/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	config     *store.InMemoryConfigStore
	auditStore *auditmem.InMemoryStore
	service    *suspension.Service

	now    time.Time
	userID domain.UserID
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.config = store.NewInMemoryConfigStore()
	s.auditStore = auditmem.NewInMemoryStore()

	// Threshold 1 so every detected violation suspends; the threshold
	// itself is covered by StrikeSuite.
	cfg := suspension.DefaultConfig()
	cfg.ViolationThreshold = 1
	s.Require().NoError(s.config.Set(context.Background(), cfg))

	svc, err := suspension.New(s.store, s.config,
		suspension.WithAuditPublisher(auditpub.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
	s.service = svc

	s.now = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	s.userID = domain.NewUserID()
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) TestFirstViolationOpensLevelOne() {
	outcome, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "burst detected")

	s.Require().NoError(err)
	s.True(outcome.Suspended)
	s.Equal(1, outcome.LevelOrdinal)

	active, ok, err := s.service.ActiveSuspension(s.ctx(), s.userID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(s.now.AddDate(0, 0, 3), active.EndsAt)

	status, err := s.store.Status(s.ctx(), s.userID)
	s.Require().NoError(err)
	s.Equal(suspension.StatusSuspended, status)
	s.Contains(s.auditStore.Actions(), "suspension_created")
}

func (s *ServiceSuite) TestRecidivismEscalatesAtomically() {
	first, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "first")
	s.Require().NoError(err)

	second, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonRepeatedRejection, "second")
	s.Require().NoError(err)
	s.True(second.Suspended)
	s.Equal(2, second.LevelOrdinal)
	s.NotEqual(first.SuspensionID, second.SuspensionID)

	// The original suspension is closed, the escalated one active, and the
	// user never passes through ACTIVE in between.
	old, err := s.store.Get(s.ctx(), first.SuspensionID)
	s.Require().NoError(err)
	s.False(old.Active)

	status, err := s.store.Status(s.ctx(), s.userID)
	s.Require().NoError(err)
	s.Equal(suspension.StatusSuspended, status)

	history, err := s.store.History(s.ctx(), s.userID)
	s.Require().NoError(err)
	s.Len(history, 2)
	s.Contains(s.auditStore.Actions(), "suspension_escalated")
}

func (s *ServiceSuite) TestEscalationIsNonDecreasingAndCapped() {
	levels := []int{1, 2, 3, 4, 5, 5, 5}
	for i, expected := range levels {
		outcome, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "violation")
		s.Require().NoError(err)
		s.Equal(expected, outcome.LevelOrdinal, "violation %d", i+1)
	}
}

func (s *ServiceSuite) TestEscalationAfterLiftUsesHistory() {
	outcome, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "first")
	s.Require().NoError(err)

	_, err = s.service.Lift(s.ctx(), outcome.SuspensionID, "admin@example.test", "appeal upheld")
	s.Require().NoError(err)

	// Next offense escalates from history even though nothing is active.
	next, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "again")
	s.Require().NoError(err)
	s.Equal(2, next.LevelOrdinal)
}

func (s *ServiceSuite) TestExemptUserBypasses() {
	cfg := suspension.DefaultConfig()
	cfg.ExemptUserIDs = []string{s.userID.String()}
	s.Require().NoError(s.config.Set(s.ctx(), cfg))

	outcome, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "burst")

	s.Require().NoError(err)
	s.False(outcome.Suspended)
	s.True(outcome.Exempted)
	s.Contains(s.auditStore.Actions(), "exemption_bypass")
}

func (s *ServiceSuite) TestExemptRoleBypasses() {
	ctx := requestcontext.WithActor(s.ctx(), "ops@example.test")
	ctx = requestcontext.WithRole(ctx, "governance-admin")

	outcome, err := s.service.DetectAndSuspend(ctx, s.userID, suspension.ReasonBurst, "burst")

	s.Require().NoError(err)
	s.True(outcome.Exempted)
}

func (s *ServiceSuite) TestDisabledGovernanceSkips() {
	cfg := suspension.DefaultConfig()
	cfg.Enabled = false
	s.Require().NoError(s.config.Set(s.ctx(), cfg))

	outcome, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "burst")

	s.Require().NoError(err)
	s.False(outcome.Suspended)
	s.False(outcome.Exempted)
}

func (s *ServiceSuite) TestStrikesAccumulateBeforeFirstSuspension() {
	cfg := suspension.DefaultConfig()
	s.Require().Equal(3, cfg.ViolationThreshold)
	s.Require().NoError(s.config.Set(s.ctx(), cfg))

	for i := 1; i <= 2; i++ {
		outcome, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "burst")
		s.Require().NoError(err)
		s.False(outcome.Suspended, "strike %d", i)
		s.Contains(outcome.Reason, "strike")

		_, ok, err := s.service.ActiveSuspension(s.ctx(), s.userID)
		s.Require().NoError(err)
		s.False(ok)
	}

	outcome, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "burst")
	s.Require().NoError(err)
	s.True(outcome.Suspended)
	s.Equal(1, outcome.LevelOrdinal)
}

func (s *ServiceSuite) TestPriorOffendersGetNoStrikeGrace() {
	// First suspension via the threshold-1 fixture, then lift it.
	outcome, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "first")
	s.Require().NoError(err)
	_, err = s.service.Lift(s.ctx(), outcome.SuspensionID, "admin", "appeal upheld")
	s.Require().NoError(err)

	// With the default threshold back in force, a repeat offender still
	// escalates on the very next violation.
	s.Require().NoError(s.config.Set(s.ctx(), suspension.DefaultConfig()))

	next, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "again")
	s.Require().NoError(err)
	s.True(next.Suspended)
	s.Equal(2, next.LevelOrdinal)
}

func (s *ServiceSuite) TestManualCategorySkipsStrikeThreshold() {
	s.Require().NoError(s.config.Set(s.ctx(), suspension.DefaultConfig()))

	outcome, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonManual, "admin action")
	s.Require().NoError(err)
	s.True(outcome.Suspended)
	s.Equal(1, outcome.LevelOrdinal)
}

func (s *ServiceSuite) TestLiftClosedSuspensionIsConflict() {
	outcome, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "burst")
	s.Require().NoError(err)

	_, err = s.service.Lift(s.ctx(), outcome.SuspensionID, "admin", "done")
	s.Require().NoError(err)

	_, err = s.service.Lift(s.ctx(), outcome.SuspensionID, "admin", "again")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestLiftUnknownSuspensionNotFound() {
	_, err := s.service.Lift(s.ctx(), domain.NewSuspensionID(), "admin", "why")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestLiftRestoresUserStatus() {
	outcome, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "burst")
	s.Require().NoError(err)

	_, err = s.service.Lift(s.ctx(), outcome.SuspensionID, "admin", "appeal upheld")
	s.Require().NoError(err)

	status, err := s.store.Status(s.ctx(), s.userID)
	s.Require().NoError(err)
	s.Equal(suspension.StatusActive, status)

	_, ok, err := s.service.ActiveSuspension(s.ctx(), s.userID)
	s.Require().NoError(err)
	s.False(ok)
	s.Contains(s.auditStore.Actions(), "suspension_lifted")
}

func (s *ServiceSuite) TestAutoLiftOnlyExpiredAutoLiftable() {
	// Level 1 (auto-lift, 3 days) for one user; escalate another user to
	// level 5 (manual only).
	otherUser := domain.NewUserID()
	_, err := s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "level one")
	s.Require().NoError(err)
	for range 5 {
		_, err = s.service.DetectAndSuspend(s.ctx(), otherUser, suspension.ReasonBurst, "repeat")
		s.Require().NoError(err)
	}

	// Before expiry nothing lifts.
	lifted, err := s.service.AutoLiftExpired(s.ctxAt(s.now.AddDate(0, 0, 1)))
	s.Require().NoError(err)
	s.Equal(0, lifted)

	// Well past every duration, only the auto-liftable level closes.
	muchLater := s.now.AddDate(1, 0, 0)
	lifted, err = s.service.AutoLiftExpired(s.ctxAt(muchLater))
	s.Require().NoError(err)
	s.Equal(1, lifted)

	_, ok, err := s.service.ActiveSuspension(s.ctx(), s.userID)
	s.Require().NoError(err)
	s.False(ok)

	stillSuspended, ok, err := s.service.ActiveSuspension(s.ctx(), otherUser)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(5, stillSuspended.LevelOrdinal)

	// Idempotent: a second consecutive run is a no-op.
	lifted, err = s.service.AutoLiftExpired(s.ctxAt(muchLater))
	s.Require().NoError(err)
	s.Equal(0, lifted)
	s.Contains(s.auditStore.Actions(), "suspension_auto_lifted")
}

func (s *ServiceSuite) TestConcurrentDetectSingleActiveRow() {
	const writers = 16

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.service.DetectAndSuspend(s.ctx(), s.userID, suspension.ReasonBurst, "race")
		}()
	}
	wg.Wait()

	// Whatever interleaving happened, exactly one suspension is active.
	active, ok, err := s.service.ActiveSuspension(s.ctx(), s.userID)
	s.Require().NoError(err)
	s.True(ok)
	s.GreaterOrEqual(active.LevelOrdinal, 1)

	history, err := s.store.History(s.ctx(), s.userID)
	s.Require().NoError(err)
	activeCount := 0
	for _, entry := range history {
		susp, err := s.store.Get(s.ctx(), entry.SuspensionID)
		s.Require().NoError(err)
		if susp.Active {
			activeCount++
		}
	}
	s.Equal(1, activeCount)
}

func (s *ServiceSuite) TestSetConfigNormalizesLists() {
	cfg := suspension.DefaultConfig()
	cfg.BlockedCountries = []string{" RU ", "ru", "KP"}
	s.Require().NoError(s.service.SetConfig(s.ctx(), cfg))

	stored, err := s.service.GetConfig(s.ctx())
	s.Require().NoError(err)
	s.Equal([]string{"ru", "kp"}, stored.BlockedCountries)
	s.Contains(s.auditStore.Actions(), "governance_config_updated")
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

type GeoblockSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	geo     *mocks.MockGeoLocator
	store   *store.InMemoryStore
	config  *store.InMemoryConfigStore
	service *suspension.Service

	userID domain.UserID
}

func (s *GeoblockSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.geo = mocks.NewMockGeoLocator(s.ctrl)
	s.store = store.NewInMemoryStore()
	s.config = store.NewInMemoryConfigStore()

	cfg := suspension.DefaultConfig()
	cfg.BlockedCountries = []string{"xx"}
	cfg.ExemptCountries = []string{"ee"}
	s.Require().NoError(s.config.Set(context.Background(), cfg))

	svc, err := suspension.New(s.store, s.config, suspension.WithGeoLocator(s.geo))
	s.Require().NoError(err)
	s.service = svc
	s.userID = domain.NewUserID()
}

func (s *GeoblockSuite) TestBlockedCountrySuspends() {
	s.geo.EXPECT().Country(gomock.Any(), "203.0.113.9").Return("XX", nil)

	outcome, err := s.service.EnforceGeoblock(context.Background(), s.userID, "203.0.113.9")

	s.Require().NoError(err)
	s.True(outcome.Suspended)
	s.Equal(1, outcome.LevelOrdinal)

	active, err := s.store.GetActive(context.Background(), s.userID)
	s.Require().NoError(err)
	s.Equal(suspension.ReasonGeoblock, active.Category)
}

func (s *GeoblockSuite) TestUnchangedOriginSkipsLookup() {
	s.geo.EXPECT().Country(gomock.Any(), "203.0.113.9").Return("DE", nil).Times(1)

	_, err := s.service.EnforceGeoblock(context.Background(), s.userID, "203.0.113.9")
	s.Require().NoError(err)

	// Same origin again: no second lookup.
	outcome, err := s.service.EnforceGeoblock(context.Background(), s.userID, "203.0.113.9")
	s.Require().NoError(err)
	s.False(outcome.Suspended)
}

func (s *GeoblockSuite) TestExemptCountryBypasses() {
	s.geo.EXPECT().Country(gomock.Any(), "198.51.100.4").Return("EE", nil)

	outcome, err := s.service.EnforceGeoblock(context.Background(), s.userID, "198.51.100.4")

	s.Require().NoError(err)
	s.True(outcome.Exempted)
	s.False(outcome.Suspended)
}

func (s *GeoblockSuite) TestLookupFailureIsNeutral() {
	s.geo.EXPECT().Country(gomock.Any(), "192.0.2.1").Return("", context.DeadlineExceeded)

	outcome, err := s.service.EnforceGeoblock(context.Background(), s.userID, "192.0.2.1")

	s.Require().NoError(err)
	s.False(outcome.Suspended)
}

func TestGeoblockSuite(t *testing.T) {
	suite.Run(t, new(GeoblockSuite))
}
