package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/ledger"
	compliancestore "warden/internal/ledger/store/compliance"
	identitystore "warden/internal/ledger/store/identity"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	auditmem "warden/pkg/platform/audit/store/memory"
	auditpub "warden/pkg/platform/audit/publisher"
	"warden/pkg/requestcontext"
)

const sectorTech = ledger.Sector("tech")

type ServiceSuite struct {
	suite.Suite
	identities *identitystore.InMemoryStore
	compliance *compliancestore.InMemoryStore
	directory  *ledger.StaticDirectory
	auditStore *auditmem.InMemoryStore
	service    *Service

	now        time.Time
	identityID domain.IdentityID
	userID     domain.UserID
	campaignID domain.CampaignID
}

func (s *ServiceSuite) SetupTest() {
	s.identities = identitystore.NewInMemoryStore()
	s.compliance = compliancestore.NewInMemoryStore()
	s.directory = ledger.NewStaticDirectory()
	s.auditStore = auditmem.NewInMemoryStore()

	svc, err := New(s.identities, s.compliance, s.directory,
		WithAuditPublisher(auditpub.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
	s.service = svc

	s.now = time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)
	s.identityID = domain.NewIdentityID()
	s.userID = domain.NewUserID()
	s.campaignID = domain.NewCampaignID()

	s.directory.AddCampaign(s.campaignID, sectorTech)
	s.directory.SetPolicy(sectorTech, ledger.SectorPolicy{MaxPerMonth: 3, MinDaysBetween: 2})

	s.Require().NoError(s.identities.Put(context.Background(), ledger.Identity{
		ID:          s.identityID,
		UserID:      s.userID,
		Email:       "jane.doe@gmail.com",
		Active:      true,
		PeriodStart: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}))
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) TestAllowedWhenAllChecksPass() {
	decision, err := s.service.CanSubmit(s.ctx(), s.identityID, s.campaignID)

	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.Equal(ledger.ReasonOK, decision.Reason)
	s.Equal(20, decision.Usage.GlobalMax)
	s.Equal(3, decision.Usage.SectorMax)
}

func (s *ServiceSuite) TestBlockedIdentityDenied() {
	identity, _ := s.identities.Get(context.Background(), s.identityID)
	identity.Blocked = true
	s.Require().NoError(s.identities.Put(context.Background(), identity))

	decision, err := s.service.CanSubmit(s.ctx(), s.identityID, s.campaignID)

	s.Require().NoError(err)
	s.False(decision.Allowed)
	s.Equal(ledger.ReasonBlocked, decision.Reason)
	s.Contains(s.auditStore.Actions(), "submission_denied")
}

func (s *ServiceSuite) TestGlobalQuotaDenied() {
	identity, _ := s.identities.Get(context.Background(), s.identityID)
	identity.MonthlyUsed = 20
	s.Require().NoError(s.identities.Put(context.Background(), identity))

	decision, err := s.service.CanSubmit(s.ctx(), s.identityID, s.campaignID)

	s.Require().NoError(err)
	s.Equal(ledger.ReasonGlobalQuota, decision.Reason)
	s.Contains(s.auditStore.Actions(), "quota_exceeded")
}

func (s *ServiceSuite) TestPersonalMaxRaisesGlobalFloor() {
	identity, _ := s.identities.Get(context.Background(), s.identityID)
	identity.MonthlyMax = 30
	identity.MonthlyUsed = 25
	s.Require().NoError(s.identities.Put(context.Background(), identity))

	decision, err := s.service.CanSubmit(s.ctx(), s.identityID, s.campaignID)

	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.Equal(30, decision.Usage.GlobalMax)
}

func (s *ServiceSuite) TestCalendarMonthResetClearsUsage() {
	identity, _ := s.identities.Get(context.Background(), s.identityID)
	identity.MonthlyUsed = 20
	identity.Sectors = map[ledger.Sector]ledger.SectorActivity{
		sectorTech: {CountThisMonth: 3, LastPosted: time.Date(2026, 5, 28, 0, 0, 0, 0, time.UTC)},
	}
	s.Require().NoError(s.identities.Put(context.Background(), identity))

	// Next month: counters read as zero, but the cooldown clock carries over.
	june3 := time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)
	decision, err := s.service.CanSubmit(s.ctxAt(june3), s.identityID, s.campaignID)

	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.Equal(0, decision.Usage.GlobalUsed)
	s.Equal(0, decision.Usage.SectorUsed)
}

func (s *ServiceSuite) TestCooldownSpansMonthBoundary() {
	identity, _ := s.identities.Get(context.Background(), s.identityID)
	identity.Sectors = map[ledger.Sector]ledger.SectorActivity{
		sectorTech: {CountThisMonth: 1, LastPosted: time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)},
	}
	s.Require().NoError(s.identities.Put(context.Background(), identity))

	june1 := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	decision, err := s.service.CanSubmit(s.ctxAt(june1), s.identityID, s.campaignID)

	s.Require().NoError(err)
	s.False(decision.Allowed)
	s.Equal(ledger.ReasonSectorCooldown, decision.Reason)
}

func (s *ServiceSuite) TestLowComplianceDenied() {
	_, err := s.service.LogViolation(s.ctx(), s.userID, "spam", ledger.SeverityCritical, "")
	s.Require().NoError(err)
	_, err = s.service.LogViolation(s.ctx(), s.userID, "spam", ledger.SeverityCritical, "")
	s.Require().NoError(err)

	decision, err := s.service.CanSubmit(s.ctx(), s.identityID, s.campaignID)

	s.Require().NoError(err)
	s.Equal(ledger.ReasonLowCompliance, decision.Reason)
}

func (s *ServiceSuite) TestSectorQuotaDenied() {
	identity, _ := s.identities.Get(context.Background(), s.identityID)
	identity.Sectors = map[ledger.Sector]ledger.SectorActivity{
		sectorTech: {CountThisMonth: 3, LastPosted: s.now.AddDate(0, 0, -5)},
	}
	s.Require().NoError(s.identities.Put(context.Background(), identity))

	decision, err := s.service.CanSubmit(s.ctx(), s.identityID, s.campaignID)

	s.Require().NoError(err)
	s.Equal(ledger.ReasonSectorQuota, decision.Reason)
}

func (s *ServiceSuite) TestCooldownBoundaryExactMinDaysAccepted() {
	base := s.identities
	put := func(last time.Time) {
		identity, _ := base.Get(context.Background(), s.identityID)
		identity.Sectors = map[ledger.Sector]ledger.SectorActivity{
			sectorTech: {CountThisMonth: 1, LastPosted: last},
		}
		s.Require().NoError(base.Put(context.Background(), identity))
	}

	// One day ago: rejected with a cooldown reason.
	put(s.now.AddDate(0, 0, -1))
	decision, err := s.service.CanSubmit(s.ctx(), s.identityID, s.campaignID)
	s.Require().NoError(err)
	s.False(decision.Allowed)
	s.Equal(ledger.ReasonSectorCooldown, decision.Reason)
	s.Equal(s.now.AddDate(0, 0, 1), decision.Usage.NextEligible)

	// Exactly minDays ago: accepted.
	put(s.now.AddDate(0, 0, -2))
	decision, err = s.service.CanSubmit(s.ctx(), s.identityID, s.campaignID)
	s.Require().NoError(err)
	s.True(decision.Allowed)
}

func (s *ServiceSuite) TestUnknownCampaignDenied() {
	decision, err := s.service.CanSubmit(s.ctx(), s.identityID, domain.NewCampaignID())

	s.Require().NoError(err)
	s.Equal(ledger.ReasonUnknownCampaign, decision.Reason)
}

func (s *ServiceSuite) TestUnknownIdentityErrors() {
	_, err := s.service.CanSubmit(s.ctx(), domain.NewIdentityID(), s.campaignID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRecordSubmissionMovesCounters() {
	identity, err := s.service.RecordSubmission(s.ctx(), s.identityID, sectorTech)

	s.Require().NoError(err)
	s.Equal(1, identity.MonthlyUsed)
	s.Equal(1, identity.Sectors[sectorTech].CountThisMonth)
	s.Equal(s.now, identity.Sectors[sectorTech].LastPosted)
	s.Equal(s.now, identity.LastActivity)
	s.Contains(s.auditStore.Actions(), "submission_recorded")
}

func (s *ServiceSuite) TestRecordSubmissionResetsOnNewMonth() {
	identity, _ := s.identities.Get(context.Background(), s.identityID)
	identity.MonthlyUsed = 18
	identity.Sectors = map[ledger.Sector]ledger.SectorActivity{
		sectorTech: {CountThisMonth: 3, LastPosted: time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)},
	}
	s.Require().NoError(s.identities.Put(context.Background(), identity))

	june10 := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	updated, err := s.service.RecordSubmission(s.ctxAt(june10), s.identityID, sectorTech)

	s.Require().NoError(err)
	s.Equal(1, updated.MonthlyUsed)
	s.Equal(1, updated.Sectors[sectorTech].CountThisMonth)
	s.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), updated.PeriodStart)
}

func (s *ServiceSuite) TestViolationDeductionsAndFloor() {
	cases := []struct {
		severity ledger.Severity
		expected int
	}{
		{ledger.SeverityLow, 95},
		{ledger.SeverityMedium, 85},
		{ledger.SeverityHigh, 65},
		{ledger.SeverityCritical, 25},
	}
	for _, tc := range cases {
		standing, err := s.service.LogViolation(s.ctx(), s.userID, "rule", tc.severity, "")
		s.Require().NoError(err)
		s.Equal(tc.expected, standing.Score, tc.severity)
	}

	// Floors at zero rather than going negative.
	standing, err := s.service.LogViolation(s.ctx(), s.userID, "rule", ledger.SeverityCritical, "")
	s.Require().NoError(err)
	s.Equal(0, standing.Score)
	s.Equal(5, standing.ViolationCount)
	s.Len(standing.Violations, 5)
}

func (s *ServiceSuite) TestRestoreComplianceCapsAtHundred() {
	_, err := s.service.LogViolation(s.ctx(), s.userID, "rule", ledger.SeverityLow, "")
	s.Require().NoError(err)

	standing, err := s.service.RestoreCompliance(s.ctx(), s.userID, 50, "appeal upheld")
	s.Require().NoError(err)
	s.Equal(100, standing.Score)
	s.Contains(s.auditStore.Actions(), "compliance_recovered")
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
