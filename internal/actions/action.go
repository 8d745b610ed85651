// Package actions defines destination actions and the runtime that invokes them.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/fields"
)

type PerformFunc func(ctx context.Context, ec ExecContext, raw json.RawMessage) (*Result, error)

type BatchFunc func(ctx context.Context, ec ExecContext, raw []json.RawMessage) (*Result, error)

// Definition is one action of a destination: its field table plus the
// functions that turn a mapped payload into an outbound request.
type Definition struct {
	Name                string        `json:"name"`
	Title               string        `json:"title"`
	Description         string        `json:"description"`
	DefaultSubscription string        `json:"defaultSubscription,omitempty"`
	Fields              fields.Schema `json:"fields"`

	Validate     func(raw json.RawMessage) error `json:"-"`
	Perform      PerformFunc                     `json:"-"`
	PerformBatch BatchFunc                       `json:"-"`
}

// SupportsBatch reports whether the action accepts batched payloads.
func (d *Definition) SupportsBatch() bool {
	return d.PerformBatch != nil
}

// Run invokes the action. When batch is set, raw must be a JSON array of payloads.
func (d *Definition) Run(ctx context.Context, ec ExecContext, raw json.RawMessage, batch bool) (*Result, error) {
	if !batch {
		return d.Perform(ctx, ec.withDefaults(), raw)
	}

	if !d.SupportsBatch() {
		return nil, common.NewIntegrationError(
			fmt.Sprintf("action %s does not support batching", d.Name),
			common.CodeInvalidInput,
			http.StatusBadRequest,
		)
	}

	var payloads []json.RawMessage
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, common.NewIntegrationError("batch payload must be a JSON array", common.CodeInvalidInput, http.StatusBadRequest)
	}
	return d.PerformBatch(ctx, ec.withDefaults(), payloads)
}

// Destination groups the actions of one third-party integration.
type Destination struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Actions     []*Definition `json:"actions"`
}

// Action returns the named action.
func (d *Destination) Action(name string) (*Definition, bool) {
	for _, a := range d.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Registry indexes destinations by name. It is built once at startup and is
// read-only afterwards.
type Registry struct {
	destinations map[string]*Destination
}

func NewRegistry(destinations ...*Destination) *Registry {
	r := &Registry{destinations: make(map[string]*Destination, len(destinations))}
	for _, d := range destinations {
		if d != nil {
			r.destinations[d.Name] = d
		}
	}
	return r
}

// Lookup returns the action registered under destination/action, or a 400
// APIError listing what is available.
func (r *Registry) Lookup(destination, action string) (*Definition, error) {
	d, ok := r.destinations[destination]
	if !ok {
		return nil, common.NewAPIError(http.StatusBadRequest, "invalid destination", map[string]any{
			"provided": destination,
			"allowed":  r.Names(),
		})
	}

	def, ok := d.Action(action)
	if !ok {
		names := make([]string, 0, len(d.Actions))
		for _, a := range d.Actions {
			names = append(names, a.Name)
		}
		return nil, common.NewAPIError(http.StatusBadRequest, "invalid action", map[string]any{
			"provided": action,
			"allowed":  names,
		})
	}
	return def, nil
}

// Names returns the registered destination names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.destinations))
	for name := range r.destinations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Destinations returns the registered destinations ordered by name.
func (r *Registry) Destinations() []*Destination {
	out := make([]*Destination, 0, len(r.destinations))
	for _, name := range r.Names() {
		out = append(out, r.destinations[name])
	}
	return out
}

// QueueNames returns one worker queue per destination.
func (r *Registry) QueueNames() []string {
	return r.Names()
}
