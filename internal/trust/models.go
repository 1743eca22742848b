package trust

import (
	"time"

	"warden/internal/identity"
	"warden/internal/profile"
	"warden/pkg/domain"
)

// Level buckets a trust score into an operator-facing tier.
type Level string

const (
	LevelBlocked  Level = "BLOCKED"
	LevelBronze   Level = "BRONZE"
	LevelSilver   Level = "SILVER"
	LevelGold     Level = "GOLD"
	LevelPlatinum Level = "PLATINUM"
)

// Components breaks the composite score into its weighted parts.
type Components struct {
	Email        int `json:"email"`
	Profile      int `json:"profile"`
	ProfileLevel int `json:"profile_level"`
	Phone        int `json:"phone"`
}

// Evaluation is the composite trust verdict for one reviewer.
type Evaluation struct {
	UserID             domain.UserID   `json:"user_id"`
	Score              int             `json:"score"`
	Level              Level           `json:"level"`
	Blocked            bool            `json:"blocked"`
	MaxReviewsPerMonth int             `json:"max_reviews_per_month"`
	Components         Components      `json:"components"`
	EmailResult        identity.Result `json:"email_result"`
	ProfileResult      profile.Result  `json:"profile_result"`
	PhoneVerified      bool            `json:"phone_verified"`
	Recommendations    []string        `json:"recommendations,omitempty"`
	EvaluatedAt        time.Time       `json:"evaluated_at"`
}

// EvaluateRequest carries the raw signals for one evaluation.
type EvaluateRequest struct {
	UserID        domain.UserID `json:"user_id"`
	Email         string        `json:"email"`
	ProfileURL    string        `json:"profile_url"`
	PhoneVerified bool          `json:"phone_verified"`
}
