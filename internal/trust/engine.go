package trust

import (
	"fmt"

	"warden/internal/identity"
	"warden/internal/profile"
)

// Score weights. A fully verified reviewer with a strong, above-minimum
// profile tops out at 100.
const (
	emailWeight        = 30
	profileWeight      = 30
	profileLevelWeight = 30
	phoneWeight        = 10

	// minProfileLevel is the platform level a profile must exceed to earn
	// the level bonus.
	minProfileLevel = 1
)

// Compose merges the per-signal verdicts into a composite evaluation. It is
// pure: all I/O happens upstream in the validator and analyzer.
func Compose(email identity.Result, prof profile.Result, phoneVerified bool) Evaluation {
	ev := Evaluation{
		EmailResult:   email,
		ProfileResult: prof,
		PhoneVerified: phoneVerified,
	}

	if email.Valid {
		ev.Components.Email = emailWeight
	}
	if prof.Valid {
		ev.Components.Profile = profileWeight
		if prof.Level > minProfileLevel {
			ev.Components.ProfileLevel = profileLevelWeight
		}
	}
	if phoneVerified {
		ev.Components.Phone = phoneWeight
	}

	score := ev.Components.Email + ev.Components.Profile + ev.Components.ProfileLevel + ev.Components.Phone
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	ev.Score = score
	ev.Level = LevelForScore(score)
	ev.Blocked = ev.Level == LevelBlocked
	ev.Recommendations = recommend(ev)
	return ev
}

// nextBoundary returns the lower bound of the next level up, or 0 when
// already at the top tier.
func nextBoundary(score int) int {
	for _, b := range []int{21, 41, 71, 91} {
		if score < b {
			return b
		}
	}
	return 0
}

// LevelForScore maps a composite score to its tier. Boundaries are inclusive
// on the lower end.
func LevelForScore(score int) Level {
	switch {
	case score < 21:
		return LevelBlocked
	case score < 41:
		return LevelBronze
	case score < 71:
		return LevelSilver
	case score < 91:
		return LevelGold
	default:
		return LevelPlatinum
	}
}

// recommend produces actionable next steps for a reviewer to raise their
// standing. Ordered by expected score impact.
func recommend(ev Evaluation) []string {
	var recs []string
	if !ev.EmailResult.Valid {
		if ev.EmailResult.Disposable {
			recs = append(recs, "register with a permanent email address")
		} else {
			recs = append(recs, "verify your email address")
		}
	}
	if ev.ProfileResult.Degraded {
		recs = append(recs, "link a public reviewer profile")
	} else if !ev.ProfileResult.Valid {
		recs = append(recs, "build up public review history")
	} else if ev.Components.ProfileLevel == 0 {
		recs = append(recs, "raise your platform contributor level")
	}
	if !ev.PhoneVerified {
		recs = append(recs, "verify your phone number")
	}
	if b := nextBoundary(ev.Score); b > 0 && len(recs) > 0 {
		recs = append(recs, fmt.Sprintf("%d points to %s", b-ev.Score, LevelForScore(b)))
	}
	return recs
}
