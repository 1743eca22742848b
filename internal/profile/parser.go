package profile

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// profilePayload is the JSON shape served by cooperating platforms.
type profilePayload struct {
	Level        int      `json:"level"`
	Points       int      `json:"points"`
	ReviewCount  int      `json:"review_count"`
	PhotoCount   int      `json:"photo_count"`
	OldestReview string   `json:"oldest_review"`
	ReviewDates  []string `json:"review_dates"`
	Ratings      []int    `json:"ratings"`
	MaxRating    int      `json:"max_rating"`
}

var (
	levelRe    = regexp.MustCompile(`(?i)level\s+(\d+)`)
	pointsRe   = regexp.MustCompile(`(?i)([\d,]+)\s+points?`)
	reviewsRe  = regexp.MustCompile(`(?i)([\d,]+)\s+reviews?`)
	photosRe   = regexp.MustCompile(`(?i)([\d,]+)\s+photos?`)
	ratingRe   = regexp.MustCompile(`(?i)(\d)\s+stars?`)
	relativeRe = regexp.MustCompile(`(?i)(\d+)\s+(day|week|month|year)s?\s+ago`)
)

// ParseProfile decodes a profile document relative to now (used to resolve
// "N months ago" style dates). JSON is tried first; anything else falls
// through to the free-text scraper, which tolerates partial matches and
// leaves missing fields zero.
func ParseProfile(body []byte, now time.Time) (Profile, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var payload profilePayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return Profile{}, err
		}
		return payload.toProfile(), nil
	}
	return scrapeText(trimmed, now), nil
}

func (p profilePayload) toProfile() Profile {
	prof := Profile{
		Level:       p.Level,
		Points:      p.Points,
		ReviewCount: p.ReviewCount,
		PhotoCount:  p.PhotoCount,
		Ratings:     p.Ratings,
		MaxRating:   p.MaxRating,
	}
	if prof.MaxRating == 0 {
		prof.MaxRating = 5
	}
	if t, err := time.Parse(time.RFC3339, p.OldestReview); err == nil {
		prof.OldestReview = t
	}
	for _, raw := range p.ReviewDates {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			prof.ReviewDates = append(prof.ReviewDates, t)
		}
	}
	prof.normalizeOldest()
	return prof
}

func scrapeText(text string, now time.Time) Profile {
	prof := Profile{MaxRating: 5}
	if m := levelRe.FindStringSubmatch(text); m != nil {
		prof.Level = parseCount(m[1])
	}
	if m := pointsRe.FindStringSubmatch(text); m != nil {
		prof.Points = parseCount(m[1])
	}
	if m := reviewsRe.FindStringSubmatch(text); m != nil {
		prof.ReviewCount = parseCount(m[1])
	}
	if m := photosRe.FindStringSubmatch(text); m != nil {
		prof.PhotoCount = parseCount(m[1])
	}
	for _, m := range ratingRe.FindAllStringSubmatch(text, -1) {
		prof.Ratings = append(prof.Ratings, parseCount(m[1]))
	}
	for _, m := range relativeRe.FindAllStringSubmatch(text, -1) {
		if t, ok := resolveRelative(parseCount(m[1]), strings.ToLower(m[2]), now); ok {
			prof.ReviewDates = append(prof.ReviewDates, t)
		}
	}
	prof.normalizeOldest()
	return prof
}

// normalizeOldest fills OldestReview from the parsed review dates when the
// page carried no explicit "since" marker.
func (p *Profile) normalizeOldest() {
	for _, t := range p.ReviewDates {
		if p.OldestReview.IsZero() || t.Before(p.OldestReview) {
			p.OldestReview = t
		}
	}
}

func resolveRelative(n int, unit string, now time.Time) (time.Time, bool) {
	switch unit {
	case "day":
		return now.AddDate(0, 0, -n), true
	case "week":
		return now.AddDate(0, 0, -7*n), true
	case "month":
		return now.AddDate(0, -n, 0), true
	case "year":
		return now.AddDate(-n, 0, 0), true
	default:
		return time.Time{}, false
	}
}

func parseCount(raw string) int {
	n, _ := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	return n
}
