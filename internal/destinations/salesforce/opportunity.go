package salesforce

import (
	"context"

	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/config"
	"github.com/joshu-sajeev/destinations/internal/dto"
	"github.com/joshu-sajeev/destinations/internal/fields"
)

const opportunityObject = "Opportunity"

func opportunityFields() fields.Schema {
	s := recordFields()
	s = append(s,
		fields.Field{
			Key:         "close_date",
			Label:       "Close Date",
			Description: "Date when the opportunity is expected to close, in yyyy-MM-dd format. Required to create an opportunity.",
			Type:        fields.TypeString,
			DependsOn:   hiddenOnDelete,
		},
		fields.Field{
			Key:         "name",
			Label:       "Name",
			Description: "A name for the opportunity. Required to create an opportunity.",
			Type:        fields.TypeString,
			DependsOn:   hiddenOnDelete,
		},
		fields.Field{
			Key:         "stage_name",
			Label:       "Stage Name",
			Description: "Current stage of the opportunity. Required to create an opportunity.",
			Type:        fields.TypeString,
			DependsOn:   hiddenOnDelete,
		},
		fields.Field{
			Key:         "amount",
			Label:       "Amount",
			Description: "Estimated total sale amount.",
			Type:        fields.TypeString,
			DependsOn:   hiddenOnDelete,
		},
		fields.Field{
			Key:         "description",
			Label:       "Description",
			Description: "A text description of the opportunity.",
			Type:        fields.TypeString,
			DependsOn:   hiddenOnDelete,
		},
		customFieldsField,
	)
	return s
}

// OpportunityAction creates, updates, upserts or deletes Opportunity records.
func OpportunityAction(client Client) *actions.Definition {
	return &actions.Definition{
		Name:        "opportunity",
		Title:       "Opportunity",
		Description: "Create, update, or upsert opportunities in Salesforce.",
		Fields:      opportunityFields(),
		Validate:    actions.Validate[dto.OpportunityPayload](),
		Perform: actions.Handle(func(ctx context.Context, ec actions.ExecContext, p *dto.OpportunityPayload) (*actions.Result, error) {
			return Dispatch(ctx, client, OpportunityRecord(p), opportunityObject, OpportunityRequired(p))
		}),
		PerformBatch: actions.HandleBatch(func(ctx context.Context, ec actions.ExecContext, ps []*dto.OpportunityPayload) (*actions.Result, error) {
			recs := make([]Record, 0, len(ps))
			for _, p := range ps {
				recs = append(recs, OpportunityRecord(p))
			}

			var required Check
			if len(ps) > 0 {
				required = OpportunityRequired(ps[0])
			}

			return DispatchBatch(ctx, client, recs, opportunityObject, required, BulkOptions{
				ShouldLog: ec.Enabled(config.FeatureSalesforceAdvancedLogging),
				Stats:     ec.Stats,
				Logger:    ec.Logger,
			})
		}),
	}
}

// NewDestination returns the Salesforce destination backed by client.
func NewDestination(client Client) *actions.Destination {
	return &actions.Destination{
		Name:        "salesforce",
		Description: "Create, update, upsert and delete Salesforce records.",
		Actions:     []*actions.Definition{OpportunityAction(client)},
	}
}
