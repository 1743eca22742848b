package triggers

import (
	"context"
	"fmt"

	"warden/internal/ledger"
	"warden/internal/suspension"
	"warden/pkg/domain"
)

// SectorActivitySource exposes an identity's last activity in a sector and
// the sector's policy. The ledger service implements it.
type SectorActivitySource interface {
	LastSectorActivity(ctx context.Context, identityID domain.IdentityID, sector ledger.Sector) (ledger.SectorActivity, ledger.SectorPolicy, error)
}

// CooldownDetector flags a submission that lands inside the sector's
// minimum interval. The gate should already have rejected it, so a hit here
// means the caller bypassed or raced the gate.
type CooldownDetector struct {
	source SectorActivitySource
}

func NewCooldownDetector(source SectorActivitySource) *CooldownDetector {
	return &CooldownDetector{source: source}
}

func (d *CooldownDetector) Name() string { return "sector-cooldown" }

func (d *CooldownDetector) Detect(ctx context.Context, event SubmissionEvent) (Finding, bool, error) {
	activity, policy, err := d.source.LastSectorActivity(ctx, event.IdentityID, ledger.Sector(event.Sector))
	if err != nil {
		return Finding{}, false, err
	}
	if activity.LastPosted.IsZero() {
		return Finding{}, false, nil
	}

	days := int(event.OccurredAt.Sub(activity.LastPosted).Hours() / 24)
	if days >= policy.MinDaysBetween {
		return Finding{}, false, nil
	}
	return Finding{
		Category: suspension.ReasonCooldownViolation,
		Details:  fmt.Sprintf("sector %q resubmitted after %d of %d days", event.Sector, days, policy.MinDaysBetween),
	}, true, nil
}
