// Package salesforce implements the Salesforce destination: record mutation
// dispatch, lookup validation and a REST and Bulk API 2.0 client.
package salesforce

import (
	"net/http"

	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/config"
	"github.com/joshu-sajeev/destinations/internal/dto"
)

// Record is the object-agnostic form of a mapped CRM payload. Fields holds
// Salesforce API field names.
type Record struct {
	Operation            config.Operation
	Traits               map[string]any
	MatcherOperator      config.MatcherOperator
	BulkUpdateRecordID   string
	BulkUpsertExternalID *dto.BulkUpsertExternalID
	EnableBatching       bool
	// BatchSize caps the rows per bulk job; zero sends one job.
	BatchSize int
	Fields    map[string]any
}

// Check is a precondition run by the dispatcher before any client call.
type Check func() error

const missingOpportunityFields = "Missing close_date, name or stage_name value"

// OpportunityRecord converts an opportunity payload. Custom fields win over
// the named ones.
func OpportunityRecord(p *dto.OpportunityPayload) Record {
	f := make(map[string]any, 5+len(p.CustomFields))
	setIf(f, "CloseDate", p.CloseDate)
	setIf(f, "Name", p.Name)
	setIf(f, "StageName", p.StageName)
	setIf(f, "Amount", p.Amount)
	setIf(f, "Description", p.Description)
	for k, v := range p.CustomFields {
		f[k] = v
	}

	return Record{
		Operation:            p.Operation,
		Traits:               p.Traits,
		MatcherOperator:      p.RecordMatcherOperator,
		BulkUpdateRecordID:   p.BulkUpdateRecordID,
		BulkUpsertExternalID: p.BulkUpsertExternalID,
		EnableBatching:       p.EnableBatching,
		BatchSize:            p.BatchSize,
		Fields:               f,
	}
}

// OpportunityRequired checks the fields Salesforce needs to create an
// opportunity.
func OpportunityRequired(p *dto.OpportunityPayload) Check {
	return func() error {
		if p.CloseDate == "" || p.Name == "" || p.StageName == "" {
			return common.NewIntegrationError(
				missingOpportunityFields,
				common.CodeMisconfiguredRequiredField,
				http.StatusBadRequest,
			)
		}
		return nil
	}
}

func setIf(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
