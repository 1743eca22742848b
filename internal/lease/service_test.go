package lease_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/internal/lease"
	"warden/internal/lease/store"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite

	service *lease.Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	svc, err := lease.New(store.NewInMemoryStore())
	s.Require().NoError(err)
	s.service = svc
	s.now = time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) ctxAt(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func (s *ServiceSuite) TestClaimGrantsForDefaultTTL() {
	campaignID := domain.NewCampaignID()
	userID := domain.NewUserID()

	granted, err := s.service.Claim(s.ctxAt(s.now), campaignID, userID)
	s.Require().NoError(err)
	s.Equal(userID, granted.LockedBy)
	s.Equal(s.now.Add(lease.DefaultTTL), granted.LockedUntil)
	s.True(granted.Valid(s.now))
}

func (s *ServiceSuite) TestLiveClaimBlocksOtherUsers() {
	campaignID := domain.NewCampaignID()

	_, err := s.service.Claim(s.ctxAt(s.now), campaignID, domain.NewUserID())
	s.Require().NoError(err)

	_, err = s.service.Claim(s.ctxAt(s.now.Add(time.Minute)), campaignID, domain.NewUserID())
	s.Require().Error(err)
	s.Equal(dErrors.CodeConflict, dErrors.GetCode(err))
}

func (s *ServiceSuite) TestHolderRenewsOwnClaim() {
	campaignID := domain.NewCampaignID()
	userID := domain.NewUserID()

	first, err := s.service.Claim(s.ctxAt(s.now), campaignID, userID)
	s.Require().NoError(err)

	renewed, err := s.service.Claim(s.ctxAt(s.now.Add(10*time.Minute)), campaignID, userID)
	s.Require().NoError(err)
	s.True(renewed.LockedUntil.After(first.LockedUntil))
}

func (s *ServiceSuite) TestExpiredClaimYieldsToNextClaimant() {
	campaignID := domain.NewCampaignID()
	second := domain.NewUserID()

	_, err := s.service.Claim(s.ctxAt(s.now), campaignID, domain.NewUserID())
	s.Require().NoError(err)

	after := s.now.Add(lease.DefaultTTL)
	granted, err := s.service.Claim(s.ctxAt(after), campaignID, second)
	s.Require().NoError(err)
	s.Equal(second, granted.LockedBy)
}

func (s *ServiceSuite) TestHolderReportsLiveThenExpired() {
	campaignID := domain.NewCampaignID()
	userID := domain.NewUserID()

	_, err := s.service.Claim(s.ctxAt(s.now), campaignID, userID)
	s.Require().NoError(err)

	current, held, err := s.service.Holder(s.ctxAt(s.now.Add(time.Minute)), campaignID)
	s.Require().NoError(err)
	s.True(held)
	s.Equal(userID, current.LockedBy)

	// No unlock ever happens; expiry alone releases the item.
	_, held, err = s.service.Holder(s.ctxAt(s.now.Add(lease.DefaultTTL)), campaignID)
	s.Require().NoError(err)
	s.False(held)
}

func (s *ServiceSuite) TestHolderUnknownCampaign() {
	_, held, err := s.service.Holder(s.ctxAt(s.now), domain.NewCampaignID())
	s.Require().NoError(err)
	s.False(held)
}

func (s *ServiceSuite) TestClaimValidatesInput() {
	_, err := s.service.Claim(s.ctxAt(s.now), domain.CampaignID{}, domain.NewUserID())
	s.Equal(dErrors.CodeInvalidInput, dErrors.GetCode(err))

	_, err = s.service.Claim(s.ctxAt(s.now), domain.NewCampaignID(), domain.UserID{})
	s.Equal(dErrors.CodeInvalidInput, dErrors.GetCode(err))
}

func (s *ServiceSuite) TestCustomTTL() {
	svc, err := lease.New(store.NewInMemoryStore(), lease.WithTTL(time.Hour))
	s.Require().NoError(err)

	granted, err := svc.Claim(s.ctxAt(s.now), domain.NewCampaignID(), domain.NewUserID())
	s.Require().NoError(err)
	s.Equal(s.now.Add(time.Hour), granted.LockedUntil)
}
