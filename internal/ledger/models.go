// Package ledger tracks per-identity submission quotas and cooldowns and the
// per-user behavioral compliance score.
package ledger

import (
	"time"

	"warden/pkg/domain"
)

// Sector identifies a category of reviewable work. Quota and cooldown
// policies apply per sector.
type Sector string

// SectorActivity is one identity's standing within a sector. LastPosted
// survives the monthly counter reset: cooldowns span month boundaries.
type SectorActivity struct {
	CountThisMonth int       `json:"count_this_month"`
	LastPosted     time.Time `json:"last_posted"`
}

// Identity is the quota-bearing account evaluated by the ledger. The sector
// map is strongly typed in memory and serialized only at the storage
// boundary.
type Identity struct {
	ID           domain.IdentityID
	UserID       domain.UserID
	Email        string
	Blocked      bool
	Active       bool
	MonthlyUsed  int
	MonthlyMax   int
	PeriodStart  time.Time
	LastActivity time.Time
	Sectors      map[Sector]SectorActivity
}

// minGlobalMonthly is the floor of the global monthly cap: identities with a
// lower (or unset) personal max still get this many.
const minGlobalMonthly = 20

// GlobalMax is the identity's effective global monthly cap.
func (i Identity) GlobalMax() int {
	if i.MonthlyMax > minGlobalMonthly {
		return i.MonthlyMax
	}
	return minGlobalMonthly
}

// SameCountingMonth reports whether both times fall in the same calendar
// month, the ledger's reset granularity.
func SameCountingMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// EffectiveUsage returns the identity's counters as of now, applying the
// calendar-month reset without mutating stored state.
func (i Identity) EffectiveUsage(now time.Time) (global int, sectors map[Sector]SectorActivity) {
	if SameCountingMonth(i.PeriodStart, now) {
		return i.MonthlyUsed, i.Sectors
	}
	reset := make(map[Sector]SectorActivity, len(i.Sectors))
	for sector, activity := range i.Sectors {
		activity.CountThisMonth = 0
		reset[sector] = activity
	}
	return 0, reset
}

// SectorPolicy is the per-sector participation policy.
type SectorPolicy struct {
	MaxPerMonth    int `json:"max_per_month"`
	MinDaysBetween int `json:"min_days_between"`
}

// ReasonCode explains a submission gate decision.
type ReasonCode string

const (
	ReasonOK              ReasonCode = "ok"
	ReasonBlocked         ReasonCode = "identity_blocked"
	ReasonGlobalQuota     ReasonCode = "global_quota_exceeded"
	ReasonLowCompliance   ReasonCode = "compliance_below_threshold"
	ReasonSectorQuota     ReasonCode = "sector_quota_exceeded"
	ReasonSectorCooldown  ReasonCode = "sector_cooldown"
	ReasonUnknownCampaign ReasonCode = "unknown_campaign"
)

// Usage is the counter snapshot attached to a decision so callers can show
// remaining headroom without a second query.
type Usage struct {
	GlobalUsed   int       `json:"global_used"`
	GlobalMax    int       `json:"global_max"`
	SectorUsed   int       `json:"sector_used"`
	SectorMax    int       `json:"sector_max"`
	NextEligible time.Time `json:"next_eligible,omitzero"`
}

// Decision is the outcome of a CanSubmit check.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  ReasonCode `json:"reason"`
	Message string     `json:"message"`
	Usage   Usage      `json:"usage"`
}

// Severity tiers a violation. Each tier carries a fixed compliance deduction.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Points returns the compliance deduction for a severity. Unknown severities
// deduct as medium rather than silently deducting nothing.
func (s Severity) Points() int {
	switch s {
	case SeverityLow:
		return 5
	case SeverityMedium:
		return 10
	case SeverityHigh:
		return 20
	case SeverityCritical:
		return 40
	default:
		return 10
	}
}

// ComplianceThreshold is the minimum compliance score required to submit.
const ComplianceThreshold = 50

// Violation is one immutable entry in a user's violation log.
type Violation struct {
	Rule       string    `json:"rule"`
	Severity   Severity  `json:"severity"`
	Points     int       `json:"points"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ComplianceScore is the per-user behavioral score. It starts at 100, is
// decremented by violations, floors at 0 and never exceeds 100.
type ComplianceScore struct {
	UserID         domain.UserID `json:"user_id"`
	Score          int           `json:"score"`
	ViolationCount int           `json:"violation_count"`
	Violations     []Violation   `json:"violations,omitempty"`
}

// NewComplianceScore is the default standing of a fresh user.
func NewComplianceScore(userID domain.UserID) ComplianceScore {
	return ComplianceScore{UserID: userID, Score: 100}
}
