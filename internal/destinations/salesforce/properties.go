package salesforce

import "github.com/joshu-sajeev/destinations/internal/fields"

// hiddenOnDelete hides record content fields when the record is being deleted.
var hiddenOnDelete = &fields.Condition{
	FieldKey: "operation",
	Operator: "is_not",
	Values:   []string{"delete"},
}

var hiddenOnCreate = &fields.Condition{
	FieldKey: "operation",
	Operator: "is_not",
	Values:   []string{"create"},
}

// recordFields are shared by every Salesforce object action.
func recordFields() fields.Schema {
	return fields.Schema{
		{
			Key:         "operation",
			Label:       "Operation",
			Description: "The Salesforce operation performed: create, update, upsert or delete records.",
			Type:        fields.TypeString,
			Required:    true,
			Choices: []fields.Choice{
				{Label: "Create new record", Value: "create"},
				{Label: "Update existing record", Value: "update"},
				{Label: "Update or create a record if one doesn't exist", Value: "upsert"},
				{Label: "Delete existing record", Value: "delete"},
			},
		},
		{
			Key:         "recordMatcherOperator",
			Label:       "Record Matchers Operator",
			Description: "How record matchers are combined when looking up a record. OR matches any trait, AND matches all of them.",
			Type:        fields.TypeString,
			Choices: []fields.Choice{
				{Label: "OR", Value: "OR"},
				{Label: "AND", Value: "AND"},
			},
			Default:   fields.Literal("OR"),
			DependsOn: hiddenOnCreate,
		},
		{
			Key:         "enable_batching",
			Label:       "Use Salesforce Bulk API",
			Description: "When enabled, events are batched and sent through Bulk API 2.0. Bulk jobs run asynchronously on the Salesforce side.",
			Type:        fields.TypeBoolean,
			Default:     fields.Literal(false),
		},
		{
			Key:         "batch_size",
			Label:       "Batch Size",
			Description: "Maximum number of records per bulk job.",
			Type:        fields.TypeInteger,
			Default:     fields.Literal(5000),
		},
		{
			Key:         "traits",
			Label:       "Record Matchers",
			Description: "Fields used to find the Salesforce record to update, upsert or delete. Keys are Salesforce field API names.",
			Type:        fields.TypeObject,
			DependsOn:   hiddenOnCreate,
		},
		{
			Key:         "bulkUpsertExternalId",
			Label:       "Bulk Upsert External Id",
			Description: "The external id field name and its value used to key records in a bulk upsert.",
			Type:        fields.TypeObject,
		},
		{
			Key:         "bulkUpdateRecordId",
			Label:       "Bulk Update Record Id",
			Description: "The Salesforce Id of the record to update or delete.",
			Type:        fields.TypeString,
		},
	}
}

var customFieldsField = fields.Field{
	Key:         "customFields",
	Label:       "Other Fields",
	Description: "Additional fields to send, keyed by Salesforce field API name. Custom fields end in __c.",
	Type:        fields.TypeObject,
	DependsOn:   hiddenOnDelete,
}
