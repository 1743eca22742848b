// Package domain defines the typed identifiers shared across modules.
// Wrapping uuid.UUID in distinct types keeps user, identity, and campaign
// handles from being swapped at call sites.
package domain

import (
	"github.com/google/uuid"

	dErrors "warden/pkg/domain-errors"
)

type (
	// UserID identifies a platform user account (the controller).
	UserID uuid.UUID
	// IdentityID identifies a reviewer identity evaluated for trust.
	IdentityID uuid.UUID
	// CampaignID identifies a reviewable work item.
	CampaignID uuid.UUID
	// SuspensionID identifies a single suspension instance.
	SuspensionID uuid.UUID
)

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewIdentityID returns a fresh random IdentityID.
func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }

// NewCampaignID returns a fresh random CampaignID.
func NewCampaignID() CampaignID { return CampaignID(uuid.New()) }

// NewSuspensionID returns a fresh random SuspensionID.
func NewSuspensionID() SuspensionID { return SuspensionID(uuid.New()) }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id IdentityID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id CampaignID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id SuspensionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id IdentityID) String() string   { return uuid.UUID(id).String() }
func (id CampaignID) String() string   { return uuid.UUID(id).String() }
func (id SuspensionID) String() string { return uuid.UUID(id).String() }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be the nil UUID")
	}
	return parsed, nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user_id")
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseIdentityID parses and validates an identity ID from its string form.
func ParseIdentityID(raw string) (IdentityID, error) {
	parsed, err := parseUUID(raw, "identity_id")
	if err != nil {
		return IdentityID{}, err
	}
	return IdentityID(parsed), nil
}

// ParseCampaignID parses and validates a campaign ID from its string form.
func ParseCampaignID(raw string) (CampaignID, error) {
	parsed, err := parseUUID(raw, "campaign_id")
	if err != nil {
		return CampaignID{}, err
	}
	return CampaignID(parsed), nil
}

// ParseSuspensionID parses and validates a suspension ID from its string form.
func ParseSuspensionID(raw string) (SuspensionID, error) {
	parsed, err := parseUUID(raw, "suspension_id")
	if err != nil {
		return SuspensionID{}, err
	}
	return SuspensionID(parsed), nil
}
