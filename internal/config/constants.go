package config

type DeliveryStatus = string

// Operation is the record mutation requested by a CRM payload.
type Operation string

// MatcherOperator joins trait conditions in a record lookup.
type MatcherOperator string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationUpsert Operation = "upsert"
	OperationDelete Operation = "delete"

	MatcherOr  MatcherOperator = "OR"
	MatcherAnd MatcherOperator = "AND"

	DeliveryStatusQueued    DeliveryStatus = "queued"
	DeliveryStatusRunning   DeliveryStatus = "running"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusCompleted DeliveryStatus = "completed"

	// FeatureSalesforceAdvancedLogging turns on per-job logging in bulk handlers.
	FeatureSalesforceAdvancedLogging = "salesforce-advanced-logging"

	DefaultMaxRetries = 3
)
