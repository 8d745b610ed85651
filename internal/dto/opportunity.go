package dto

import "github.com/joshu-sajeev/destinations/internal/config"

// BulkUpsertExternalID names the external id field and value used to key a
// record in a bulk upsert job.
type BulkUpsertExternalID struct {
	ExternalIDName  string `json:"externalIdName,omitempty" yaml:"externalIdName,omitempty"`
	ExternalIDValue string `json:"externalIdValue,omitempty" yaml:"externalIdValue,omitempty"`
}

// OpportunityPayload is the mapped input of the Salesforce opportunity action.
// close_date, name and stage_name are deliberately not tagged required: which of
// them are needed depends on the operation and is checked by the dispatcher.
type OpportunityPayload struct {
	Operation             config.Operation       `json:"operation" validate:"required,oneof=create update upsert delete"`
	RecordMatcherOperator config.MatcherOperator `json:"recordMatcherOperator,omitempty" validate:"omitempty,oneof=OR AND"`
	EnableBatching        bool                   `json:"enable_batching,omitempty"`
	BatchSize             int                    `json:"batch_size,omitempty" validate:"omitempty,gte=1,lte=10000"`
	Traits                map[string]any         `json:"traits,omitempty"`
	BulkUpsertExternalID  *BulkUpsertExternalID  `json:"bulkUpsertExternalId,omitempty"`
	BulkUpdateRecordID    string                 `json:"bulkUpdateRecordId,omitempty"`

	CloseDate    string         `json:"close_date,omitempty"`
	Name         string         `json:"name,omitempty"`
	StageName    string         `json:"stage_name,omitempty"`
	Amount       string         `json:"amount,omitempty"`
	Description  string         `json:"description,omitempty"`
	CustomFields map[string]any `json:"customFields,omitempty"`
}
