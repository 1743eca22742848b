package ledger

import (
	"context"
	"sync"

	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

// DefaultSectorPolicy applies to sectors without an explicit entry.
var DefaultSectorPolicy = SectorPolicy{MaxPerMonth: 3, MinDaysBetween: 3}

// StaticDirectory is an in-process campaign directory fed from configuration
// or test fixtures. The real campaign catalog lives outside this service;
// this keeps the lookup injectable.
type StaticDirectory struct {
	mu        sync.RWMutex
	campaigns map[domain.CampaignID]Sector
	policies  map[Sector]SectorPolicy
}

// NewStaticDirectory builds an empty directory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		campaigns: make(map[domain.CampaignID]Sector),
		policies:  make(map[Sector]SectorPolicy),
	}
}

// AddCampaign registers a campaign under a sector.
func (d *StaticDirectory) AddCampaign(campaignID domain.CampaignID, sector Sector) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.campaigns[campaignID] = sector
}

// SetPolicy overrides the policy for a sector.
func (d *StaticDirectory) SetPolicy(sector Sector, policy SectorPolicy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.policies[sector] = policy
}

// Resolve maps a campaign to its sector and policy.
func (d *StaticDirectory) Resolve(_ context.Context, campaignID domain.CampaignID) (Sector, SectorPolicy, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sector, ok := d.campaigns[campaignID]
	if !ok {
		return "", SectorPolicy{}, dErrors.New(dErrors.CodeNotFound, "unknown campaign")
	}
	return sector, d.policyLocked(sector), nil
}

// PolicyFor returns the sector's policy, falling back to the default.
func (d *StaticDirectory) PolicyFor(_ context.Context, sector Sector) (SectorPolicy, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.policyLocked(sector), nil
}

func (d *StaticDirectory) policyLocked(sector Sector) SectorPolicy {
	if policy, ok := d.policies[sector]; ok {
		return policy
	}
	return DefaultSectorPolicy
}
