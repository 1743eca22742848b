package profile

import "time"

// Profile is the normalized view of a reviewer's public profile page.
type Profile struct {
	Level        int
	Points       int
	ReviewCount  int
	PhotoCount   int
	OldestReview time.Time
	ReviewDates  []time.Time
	Ratings      []int
	MaxRating    int
}

// SuspiciousPatterns are shape-of-activity signals the analyzer derives from
// the profile. They do not affect the score; downstream consumers decide
// what to do with them.
type SuspiciousPatterns struct {
	AllFiveStars    bool `json:"all_five_stars"`
	NoPublicReviews bool `json:"no_public_reviews"`
	RecentBurst     bool `json:"recent_burst"`
}

// Result is the analyzer's output. Degraded means the profile could not be
// fetched or parsed; the result is then neutral (zero score, not valid) and
// the caller should not treat it as evidence of a bad profile.
type Result struct {
	Valid            bool               `json:"valid"`
	Score            int                `json:"score"`
	Level            int                `json:"level"`
	Points           int                `json:"points"`
	ReviewCount      int                `json:"review_count"`
	PhotoCount       int                `json:"photo_count"`
	AccountAgeMonths int                `json:"account_age_months"`
	FirstReviewDate  time.Time          `json:"first_review_date,omitzero"`
	Suspicious       SuspiciousPatterns `json:"suspicious"`
	Degraded         bool               `json:"degraded"`
	Flags            []string           `json:"flags,omitempty"`
}

const (
	validThreshold = 20
	maxScore       = 60
)
