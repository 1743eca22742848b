// Package lease implements time-bounded exclusive claims on work items.
// A claim is a mutual-exclusion hint, not an ownership grant: it is valid
// only while its expiry lies in the future, so a crashed claimant releases
// the item by doing nothing.
package lease

import (
	"time"

	"warden/pkg/domain"
)

// DefaultTTL bounds how long a claim holds without renewal.
const DefaultTTL = 15 * time.Minute

// Lease is a claim on one work item by one user.
type Lease struct {
	CampaignID  domain.CampaignID `json:"campaign_id"`
	LockedBy    domain.UserID     `json:"locked_by"`
	LockedUntil time.Time         `json:"locked_until"`
	ClaimedAt   time.Time         `json:"claimed_at"`
}

// Valid reports whether the lease still holds at the given instant. There
// is no unlock operation; expiry is the only release.
func (l Lease) Valid(now time.Time) bool {
	return now.Before(l.LockedUntil)
}
