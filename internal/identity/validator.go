package identity

import (
	"context"
	"log/slog"
	"net"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"warden/pkg/email"
)

// MXResolver looks up mail exchanger records for a domain. *net.Resolver
// satisfies it; tests supply a fake.
type MXResolver interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

// Validator scores an email address from static heuristics plus a DNS MX
// probe. It holds no per-request state and is safe for concurrent use.
type Validator struct {
	resolver  MXResolver
	logger    *slog.Logger
	dnsBudget time.Duration
}

// Option configures a Validator.
type Option func(*Validator)

// WithResolver overrides the DNS resolver used for MX lookups.
func WithResolver(r MXResolver) Option {
	return func(v *Validator) {
		v.resolver = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// WithDNSBudget bounds how long a single MX lookup may take.
func WithDNSBudget(d time.Duration) Option {
	return func(v *Validator) {
		v.dnsBudget = d
	}
}

// NewValidator builds a Validator with a default resolver and a 3s DNS budget.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		resolver:  net.DefaultResolver,
		logger:    slog.Default(),
		dnsBudget: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var (
	// Local parts that are mostly digits, carry long digit runs, or look like
	// machine-generated noise.
	digitRunRe   = regexp.MustCompile(`\d{6,}`)
	randomBlobRe = regexp.MustCompile(`^[a-z0-9]{16,}$`)
	botPrefixRe  = regexp.MustCompile(`^(test|bot|spam|fake|temp|noreply|no-reply)\b`)
)

// Validate scores the address. The score is additive and order matters only
// for the two terminal gates: a syntax failure returns immediately with a
// zero score, and a disposable domain forces Valid false no matter what the
// remaining signals add up to.
func (v *Validator) Validate(ctx context.Context, address string) Result {
	res := Result{}

	addr := strings.TrimSpace(address)
	if _, err := mail.ParseAddress(addr); err != nil {
		res.Flags = append(res.Flags, "syntax_invalid")
		return res
	}
	local, domain, ok := email.Split(addr)
	if !ok {
		res.Flags = append(res.Flags, "syntax_invalid")
		return res
	}
	domain = strings.ToLower(domain)
	local = strings.ToLower(local)

	res.SyntaxValid = true
	res.Score += 5

	if IsDisposable(domain) {
		res.Disposable = true
		res.Score -= 50
		res.Flags = append(res.Flags, "disposable_domain")
	} else {
		res.Score += 10
	}

	if v.lookupMX(ctx, domain) {
		res.MXValid = true
		res.Score += 5
	} else {
		res.Flags = append(res.Flags, "mx_missing")
	}

	if suspiciousLocal(local) {
		res.SuspiciousPattern = true
		res.Score -= 10
		res.Flags = append(res.Flags, "suspicious_local_part")
	} else {
		res.Score += 10
	}

	res.EstimatedAgeMonths = estimateAgeMonths(local, domain)
	res.Valid = res.Score >= validThreshold && !res.Disposable

	return res
}

// lookupMX is best effort: DNS trouble is treated as "no MX" rather than a
// validation failure, so a resolver outage degrades scores instead of
// rejecting everyone.
func (v *Validator) lookupMX(ctx context.Context, domain string) bool {
	ctx, cancel := context.WithTimeout(ctx, v.dnsBudget)
	defer cancel()

	records, err := v.resolver.LookupMX(ctx, domain)
	if err != nil {
		v.logger.DebugContext(ctx, "mx lookup failed", "domain", domain, "error", err)
		return false
	}
	return len(records) > 0
}

func suspiciousLocal(local string) bool {
	if digitRunRe.MatchString(local) {
		return true
	}
	if randomBlobRe.MatchString(local) && !strings.ContainsAny(local, "._-") {
		return true
	}
	if botPrefixRe.MatchString(local) {
		return true
	}
	return false
}

// estimateAgeMonths guesses account age from address shape. Short personal
// handles on freemail predate the handle land-grab; first.last forms are
// typically deliberate long-term accounts; name-plus-short-digits suggests a
// collision workaround on a newer signup; corporate domains imply an
// established mailbox.
func estimateAgeMonths(local, domain string) int {
	tokens := email.LocalTokens(local)
	hasDigits := strings.ContainsAny(local, "0123456789")

	switch {
	case IsFreemail(domain) && len(local) <= 8 && !hasDigits:
		return 120
	case len(tokens) >= 2 && !hasDigits:
		return 60
	case len(tokens) >= 1 && hasDigits && shortDigitSuffix(local):
		return 24
	case !IsFreemail(domain):
		return 60
	default:
		return 6
	}
}

func shortDigitSuffix(local string) bool {
	i := len(local)
	for i > 0 && local[i-1] >= '0' && local[i-1] <= '9' {
		i--
	}
	run := len(local) - i
	return run >= 1 && run <= 4
}
