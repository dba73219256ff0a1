package data

// AuditEventType defines audit event type constants.
// These constants are used for audit logging in route_audit_logs table.
type AuditEventType string

const (
	// AuditEventBreakerStateChanged is logged on every breaker transition
	AuditEventBreakerStateChanged AuditEventType = "BREAKER_STATE_CHANGED"

	// AuditEventBreakerTripped is logged when a breaker trips open on failures
	AuditEventBreakerTripped AuditEventType = "BREAKER_TRIPPED"

	// AuditEventManualTrip is logged when an operator forces a breaker open
	AuditEventManualTrip AuditEventType = "MANUAL_TRIP"

	// AuditEventManualReset is logged when an operator forces a breaker closed
	AuditEventManualReset AuditEventType = "MANUAL_RESET"

	// AuditEventProviderUnhealthy is logged when a provider crosses the
	// consecutive failure threshold
	AuditEventProviderUnhealthy AuditEventType = "PROVIDER_UNHEALTHY"

	// AuditEventPaymentRouted is logged for every routing decision
	AuditEventPaymentRouted AuditEventType = "PAYMENT_ROUTED"
)

// String returns the string representation of AuditEventType
func (e AuditEventType) String() string {
	return string(e)
}
