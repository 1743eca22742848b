package identity

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type fakeResolver struct {
	records map[string][]*net.MX
	err     error
}

func (f *fakeResolver) LookupMX(_ context.Context, domain string) ([]*net.MX, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[domain], nil
}

type ValidatorSuite struct {
	suite.Suite
	validator *Validator
}

func (s *ValidatorSuite) SetupTest() {
	s.validator = NewValidator(
		WithResolver(&fakeResolver{records: map[string][]*net.MX{
			"gmail.com":   {{Host: "smtp.gmail.com"}},
			"example.org": {{Host: "mx.example.org"}},
		}}),
		WithDNSBudget(time.Second),
	)
}

func (s *ValidatorSuite) TestCleanFreemailAddress() {
	res := s.validator.Validate(context.Background(), "jane.doe@gmail.com")

	s.True(res.Valid)
	s.True(res.SyntaxValid)
	s.True(res.MXValid)
	s.False(res.Disposable)
	s.False(res.SuspiciousPattern)
	// 5 syntax + 10 non-disposable + 5 MX + 10 clean pattern
	s.Equal(30, res.Score)
}

func (s *ValidatorSuite) TestSyntaxFailureIsTerminal() {
	for _, addr := range []string{"", "not-an-email", "missing@", "@missing-local"} {
		res := s.validator.Validate(context.Background(), addr)
		s.False(res.Valid, addr)
		s.False(res.SyntaxValid, addr)
		s.Equal(0, res.Score, addr)
		s.Contains(res.Flags, "syntax_invalid")
	}
}

func (s *ValidatorSuite) TestDisposableAlwaysInvalid() {
	// Even with a perfect remainder a throwaway domain cannot reach validity.
	s.validator.resolver = &fakeResolver{records: map[string][]*net.MX{
		"mailinator.com": {{Host: "mail.mailinator.com"}},
	}}
	res := s.validator.Validate(context.Background(), "jane.doe@mailinator.com")

	s.False(res.Valid)
	s.True(res.Disposable)
	// 5 syntax - 50 disposable + 5 MX + 10 clean pattern
	s.Equal(-30, res.Score)
	s.Contains(res.Flags, "disposable_domain")
}

func (s *ValidatorSuite) TestMissingMXDegradesScore() {
	res := s.validator.Validate(context.Background(), "jane.doe@no-mx-here.test")

	s.True(res.Valid)
	s.False(res.MXValid)
	s.Equal(25, res.Score)
	s.Contains(res.Flags, "mx_missing")
}

func (s *ValidatorSuite) TestResolverErrorTreatedAsNoMX() {
	s.validator.resolver = &fakeResolver{err: errors.New("dns timeout")}
	res := s.validator.Validate(context.Background(), "jane.doe@gmail.com")

	s.True(res.Valid)
	s.False(res.MXValid)
	s.Equal(25, res.Score)
}

func (s *ValidatorSuite) TestSuspiciousLocalParts() {
	cases := []string{
		"user1234567@gmail.com",
		"testaccount@gmail.com",
		"bot-farm@example.org",
		"x9f2kq8zt1mwv3bj@gmail.com",
	}
	for _, addr := range cases {
		res := s.validator.Validate(context.Background(), addr)
		s.True(res.SuspiciousPattern, addr)
		s.Contains(res.Flags, "suspicious_local_part")
	}
}

func (s *ValidatorSuite) TestSuspiciousBelowThreshold() {
	// 5 syntax + 10 non-disposable + 0 MX - 10 suspicious = 5 < threshold
	res := s.validator.Validate(context.Background(), "test123456789@unknown.test")

	s.False(res.Valid)
	s.Equal(-5, res.Score)
}

func (s *ValidatorSuite) TestAgeHeuristics() {
	cases := []struct {
		addr   string
		months int
	}{
		{"bob@gmail.com", 120},
		{"jane.doe@gmail.com", 60},
		{"jane.doe42@gmail.com", 24},
		{"someone@corporate-widgets.test", 60},
		{"qwhzlkasdf@gmail.com", 6},
	}
	for _, tc := range cases {
		res := s.validator.Validate(context.Background(), tc.addr)
		s.Equal(tc.months, res.EstimatedAgeMonths, tc.addr)
	}
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}
