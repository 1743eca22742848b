package audit

import (
	"time"

	id "warden/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryGovernance covers suspension lifecycle events. These are the
	// record of why an account was curtailed and require long retention.
	CategoryGovernance EventCategory = "governance"

	// CategorySecurity covers events relevant to abuse monitoring:
	// violations, geoblocks, quota breaches.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	// These can be sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    string
	Reason    string
	Detail    string
	RequestID string
	// ActorID tracks who performed the action when different from UserID,
	// e.g. the admin lifting a suspension.
	ActorID string
	// ClientIP and Bot carry the caller's network origin and User-Agent
	// classification, captured by the metadata middleware.
	ClientIP string
	Bot      bool
}

type AuditEvent string

const (
	// Governance events
	EventSuspensionCreated    AuditEvent = "suspension_created"
	EventSuspensionEscalated  AuditEvent = "suspension_escalated"
	EventSuspensionLifted     AuditEvent = "suspension_lifted"
	EventSuspensionAutoLifted AuditEvent = "suspension_auto_lifted"
	EventGovernanceConfigSet  AuditEvent = "governance_config_updated"

	// Security events
	EventViolationLogged  AuditEvent = "violation_logged"
	EventQuotaExceeded    AuditEvent = "quota_exceeded"
	EventSubmissionDenied AuditEvent = "submission_denied"
	EventGeoblockApplied  AuditEvent = "geoblock_applied"
	EventExemptionBypass  AuditEvent = "exemption_bypass"

	// Operations events
	EventTrustEvaluated      AuditEvent = "trust_evaluated"
	EventSubmissionRecorded  AuditEvent = "submission_recorded"
	EventLeaseClaimed        AuditEvent = "lease_claimed"
	EventComplianceRecovered AuditEvent = "compliance_recovered"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventSuspensionCreated:    CategoryGovernance,
	EventSuspensionEscalated:  CategoryGovernance,
	EventSuspensionLifted:     CategoryGovernance,
	EventSuspensionAutoLifted: CategoryGovernance,
	EventGovernanceConfigSet:  CategoryGovernance,

	EventViolationLogged:  CategorySecurity,
	EventQuotaExceeded:    CategorySecurity,
	EventSubmissionDenied: CategorySecurity,
	EventGeoblockApplied:  CategorySecurity,
	EventExemptionBypass:  CategorySecurity,

	EventTrustEvaluated:      CategoryOperations,
	EventSubmissionRecorded:  CategoryOperations,
	EventLeaseClaimed:        CategoryOperations,
	EventComplianceRecovered: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
