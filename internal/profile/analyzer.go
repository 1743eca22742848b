package profile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"warden/pkg/requestcontext"
)

// Analyzer fetches and scores public reviewer profiles. A fetch or parse
// failure never fails the caller: the analyzer degrades to a neutral result
// and logs, because the profile signal is one input among several and the
// platform being down is not the reviewer's fault.
type Analyzer struct {
	client  *http.Client
	logger  *slog.Logger
	maxBody int64
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithHTTPClient overrides the HTTP client used to fetch profiles.
func WithHTTPClient(c *http.Client) AnalyzerOption {
	return func(a *Analyzer) {
		a.client = c
	}
}

// WithAnalyzerLogger sets the logger.
func WithAnalyzerLogger(l *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// NewAnalyzer builds an Analyzer with a 10s client timeout and a 1MiB body cap.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
		maxBody: 1 << 20,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze fetches the profile at profileURL and scores it. An empty URL is a
// degraded (neutral) result, not an error.
func (a *Analyzer) Analyze(ctx context.Context, profileURL string) Result {
	if profileURL == "" {
		return Result{Degraded: true, Flags: []string{"no_profile_url"}}
	}

	now := requestcontext.Now(ctx)
	prof, err := a.fetch(ctx, profileURL, now)
	if err != nil {
		a.logger.WarnContext(ctx, "profile fetch degraded", "url", profileURL, "error", err)
		return Result{Degraded: true, Flags: []string{"fetch_failed"}}
	}

	return Score(prof, now)
}

func (a *Analyzer) fetch(ctx context.Context, profileURL string, now time.Time) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build request: %w", err)
	}
	// Browser-like headers; some platforms serve bots a stripped page.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0")
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := a.client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("profile fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBody))
	if err != nil {
		return Profile{}, fmt.Errorf("read profile body: %w", err)
	}

	return ParseProfile(body, now)
}

// Score rates a parsed profile. Points are additive with per-signal caps and
// the total clamps to [0, 60]:
//
//	level        5 per level
//	points       10 at >=500, 5 at >=100
//	reviews      0.5 each, capped at 25
//	tenure       15 when the oldest review is at least six months old
//	photos       0.1 each, capped at 10
//
// A profile is valid at 20+ points provided it has visible reviews.
func Score(prof Profile, now time.Time) Result {
	res := Result{
		Level:       prof.Level,
		Points:      prof.Points,
		ReviewCount: prof.ReviewCount,
		PhotoCount:  prof.PhotoCount,
	}
	if !prof.OldestReview.IsZero() {
		res.FirstReviewDate = prof.OldestReview
		res.AccountAgeMonths = monthsBetween(prof.OldestReview, now)
	}

	score := prof.Level * 5

	switch {
	case prof.Points >= 500:
		score += 10
	case prof.Points >= 100:
		score += 5
	}

	reviewPts := prof.ReviewCount / 2
	if reviewPts > 25 {
		reviewPts = 25
	}
	score += reviewPts

	if !prof.OldestReview.IsZero() && now.Sub(prof.OldestReview) >= 6*30*24*time.Hour {
		score += 15
	}

	photoPts := prof.PhotoCount / 10
	if photoPts > 10 {
		photoPts = 10
	}
	score += photoPts

	if score > maxScore {
		score = maxScore
	}
	if score < 0 {
		score = 0
	}

	res.Score = score
	res.Suspicious = detectSuspicious(prof, now)
	res.Valid = score >= validThreshold && !res.Suspicious.NoPublicReviews
	if res.Suspicious.AllFiveStars {
		res.Flags = append(res.Flags, "all_max_ratings")
	}
	if res.Suspicious.NoPublicReviews {
		res.Flags = append(res.Flags, "no_public_reviews")
	}
	if res.Suspicious.RecentBurst {
		res.Flags = append(res.Flags, "recent_review_burst")
	}
	return res
}

func detectSuspicious(prof Profile, now time.Time) SuspiciousPatterns {
	patterns := SuspiciousPatterns{
		NoPublicReviews: prof.ReviewCount == 0,
	}

	if len(prof.Ratings) >= 3 {
		max := prof.MaxRating
		if max == 0 {
			max = 5
		}
		allMax := true
		for _, r := range prof.Ratings {
			if r != max {
				allMax = false
				break
			}
		}
		patterns.AllFiveStars = allMax
	}

	recent := 0
	for _, t := range prof.ReviewDates {
		if now.Sub(t) <= 30*24*time.Hour {
			recent++
		}
	}
	if recent >= 5 {
		patterns.RecentBurst = true
	}
	return patterns
}

func monthsBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	months := int(to.Sub(from).Hours() / (24 * 30))
	return months
}
