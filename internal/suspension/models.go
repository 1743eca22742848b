// Package suspension owns the account suspension lifecycle: creation,
// escalation on recidivism, lifting, auto-expiry and the exemption and
// geoblocking overlays.
package suspension

import (
	"time"

	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

// Level is one rung of the static suspension ladder.
type Level struct {
	Ordinal      int      `json:"ordinal"`
	Name         string   `json:"name"`
	DurationDays int      `json:"duration_days"`
	AutoLift     bool     `json:"auto_lift"`
	Consequences []string `json:"consequences"`
	Requirements []string `json:"requirements"`
}

// MaxLevel is the terminal rung. It never auto-lifts.
const MaxLevel = 5

// ladder is the reference data for the five rungs. Levels 4 and 5 require
// manual review before release even after their nominal duration.
var ladder = [MaxLevel]Level{
	{
		Ordinal:      1,
		Name:         "warning hold",
		DurationDays: 3,
		AutoLift:     true,
		Consequences: []string{"submissions paused"},
		Requirements: []string{"review community guidelines"},
	},
	{
		Ordinal:      2,
		Name:         "short suspension",
		DurationDays: 7,
		AutoLift:     true,
		Consequences: []string{"submissions paused", "pending work reassigned"},
		Requirements: []string{"review community guidelines"},
	},
	{
		Ordinal:      3,
		Name:         "extended suspension",
		DurationDays: 14,
		AutoLift:     true,
		Consequences: []string{"submissions paused", "pending work reassigned", "payout on hold"},
		Requirements: []string{"acknowledge violation notice"},
	},
	{
		Ordinal:      4,
		Name:         "account freeze",
		DurationDays: 30,
		AutoLift:     false,
		Consequences: []string{"account frozen", "payout on hold"},
		Requirements: []string{"successful appeal"},
	},
	{
		Ordinal:      5,
		Name:         "permanent ban",
		DurationDays: 3650,
		AutoLift:     false,
		Consequences: []string{"account closed", "outstanding payouts forfeited"},
		Requirements: []string{"none: terminal"},
	},
}

// LevelByOrdinal returns the ladder rung for an ordinal in [1, 5].
func LevelByOrdinal(ordinal int) (Level, error) {
	if ordinal < 1 || ordinal > MaxLevel {
		return Level{}, dErrors.New(dErrors.CodeNotFound, "unknown suspension level")
	}
	return ladder[ordinal-1], nil
}

// Ladder returns the full reference ladder.
func Ladder() []Level {
	return ladder[:]
}

// NextOrdinal escalates from the most recent historical level; first
// offenses start at 1 and the ladder caps at MaxLevel.
func NextOrdinal(lastOrdinal int) int {
	if lastOrdinal < 1 {
		return 1
	}
	if lastOrdinal >= MaxLevel {
		return MaxLevel
	}
	return lastOrdinal + 1
}

// AutoLiftOrdinals lists the rungs eligible for the auto-expiry sweep.
func AutoLiftOrdinals() []int {
	var ordinals []int
	for _, level := range ladder {
		if level.AutoLift {
			ordinals = append(ordinals, level.Ordinal)
		}
	}
	return ordinals
}

// ReasonCategory classifies why a suspension was opened.
type ReasonCategory string

const (
	ReasonBurst             ReasonCategory = "submission_burst"
	ReasonCooldownViolation ReasonCategory = "cooldown_violation"
	ReasonRepeatedRejection ReasonCategory = "repeated_rejection"
	ReasonDuplicateArtifact ReasonCategory = "duplicate_artifact"
	ReasonGeoblock          ReasonCategory = "geoblocked_country"
	ReasonRecidivism        ReasonCategory = "escalated_by_recidivism"
	ReasonManual            ReasonCategory = "manual"
)

// UserStatus is the account-level standing governance controls.
type UserStatus string

const (
	StatusActive    UserStatus = "ACTIVE"
	StatusSuspended UserStatus = "SUSPENDED"
)

// UserSuspension is one suspension instance. At most one row per user is
// active at any time; storage enforces it.
type UserSuspension struct {
	ID           domain.SuspensionID `json:"id"`
	UserID       domain.UserID       `json:"user_id"`
	LevelOrdinal int                 `json:"level"`
	Category     ReasonCategory      `json:"category"`
	Details      string              `json:"details,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	EndsAt       time.Time           `json:"ends_at"`
	Active       bool                `json:"active"`
	LiftedAt     time.Time           `json:"lifted_at,omitzero"`
	LiftedBy     string              `json:"lifted_by,omitempty"`
	LiftReason   string              `json:"lift_reason,omitempty"`
}

// Expired reports whether the suspension's nominal duration has elapsed.
func (s UserSuspension) Expired(now time.Time) bool {
	return !now.Before(s.EndsAt)
}

// HistoryEntry is one row of the append-only suspension ledger. Only the
// most recent entry matters for escalation; the rest is the paper trail.
type HistoryEntry struct {
	UserID       domain.UserID       `json:"user_id"`
	SuspensionID domain.SuspensionID `json:"suspension_id"`
	LevelOrdinal int                 `json:"level"`
	Category     ReasonCategory      `json:"category"`
	StartedAt    time.Time           `json:"started_at"`
	Note         string              `json:"note,omitempty"`
}

// Config is the process-wide governance policy, admin-editable and read
// fresh on every decision.
type Config struct {
	Enabled            bool     `json:"enabled"`
	AutoSuspend        bool     `json:"auto_suspend"`
	ExemptUserIDs      []string `json:"exempt_user_ids"`
	ExemptRoles        []string `json:"exempt_roles"`
	ExemptCountries    []string `json:"exempt_countries"`
	BlockedCountries   []string `json:"blocked_countries"`

	// ViolationThreshold is how many detected violations a first-time
	// offender accrues before a suspension opens. Geoblock and manual
	// suspensions apply immediately regardless.
	ViolationThreshold int `json:"violation_threshold"`
}

// DefaultConfig is the policy applied before an admin ever edits it.
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		AutoSuspend:        true,
		ExemptRoles:        []string{"governance-admin"},
		ViolationThreshold: 3,
	}
}

// DetectOutcome reports what DetectAndSuspend decided.
type DetectOutcome struct {
	Suspended    bool                `json:"suspended"`
	Exempted     bool                `json:"exempted"`
	SuspensionID domain.SuspensionID `json:"suspension_id,omitzero"`
	LevelOrdinal int                 `json:"level,omitempty"`
	Reason       string              `json:"reason,omitempty"`
}
