package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/fields"
)

type pingPayload struct {
	Email string `json:"email" validate:"required,email"`
	Plan  string `json:"plan,omitempty"`
}

// testRegistry holds one destination with a batching action and an action
// whose transport always fails.
func testRegistry() *actions.Registry {
	ping := &actions.Definition{
		Name:  "ping",
		Title: "Ping",
		Fields: fields.Schema{
			{Key: "email", Label: "Email", Type: fields.TypeString, Required: true, Default: fields.Path("$.traits.email")},
			{Key: "plan", Label: "Plan", Type: fields.TypeString, Default: fields.Literal("free")},
		},
		Validate: actions.Validate[pingPayload](),
		Perform: actions.Handle(func(ctx context.Context, ec actions.ExecContext, p *pingPayload) (*actions.Result, error) {
			body := "ok:" + p.Email
			if ec.Enabled("loud") {
				body += "!"
			}
			return &actions.Result{StatusCode: 200, Body: body}, nil
		}),
		PerformBatch: actions.HandleBatch(func(ctx context.Context, ec actions.ExecContext, ps []*pingPayload) (*actions.Result, error) {
			return &actions.Result{StatusCode: 200, Body: fmt.Sprintf("batch:%d", len(ps))}, nil
		}),
	}

	broken := &actions.Definition{
		Name: "broken",
		Perform: func(ctx context.Context, ec actions.ExecContext, raw json.RawMessage) (*actions.Result, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}

	return actions.NewRegistry(&actions.Destination{
		Name:    "acme",
		Actions: []*actions.Definition{ping, broken},
	})
}
