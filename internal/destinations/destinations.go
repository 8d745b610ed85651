// Package destinations assembles the configured destinations into a registry.
package destinations

import (
	"context"
	"net/http"

	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/config"
	"github.com/joshu-sajeev/destinations/internal/destinations/podscribe"
	"github.com/joshu-sajeev/destinations/internal/destinations/salesforce"
)

// FromConfig registers every destination. Destinations whose settings are
// missing are still listed but reject every invocation.
func FromConfig(ctx context.Context, cfg *config.Config, httpClient *http.Client) *actions.Registry {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Worker.HTTPTimeout}
	}

	var sf salesforce.Client = unconfigured{destination: "salesforce"}
	if cfg.Salesforce.InstanceURL != "" {
		sf = salesforce.NewRESTClient(ctx,
			cfg.Salesforce.InstanceURL,
			cfg.Salesforce.AccessToken,
			salesforce.WithAPIVersion(cfg.Salesforce.APIVersion),
			salesforce.WithHTTPClient(httpClient),
		)
	}

	var tag actions.HTTPClient = httpClient
	if cfg.Podscribe.Advertiser == "" {
		tag = unconfigured{destination: "podscribe"}
	}

	return actions.NewRegistry(
		podscribe.NewDestination(podscribe.Settings{Advertiser: cfg.Podscribe.Advertiser}, tag),
		salesforce.NewDestination(sf),
	)
}

// unconfigured stands in for the client of a destination with no settings.
type unconfigured struct {
	destination string
}

func (u unconfigured) err() error {
	return common.Errf(http.StatusBadRequest, "destination %s is not configured", u.destination)
}

func (u unconfigured) Do(*http.Request) (*http.Response, error) {
	return nil, u.err()
}

func (u unconfigured) CreateRecord(context.Context, salesforce.Record, string) (*actions.Result, error) {
	return nil, u.err()
}

func (u unconfigured) UpdateRecord(context.Context, salesforce.Record, string) (*actions.Result, error) {
	return nil, u.err()
}

func (u unconfigured) UpsertRecord(context.Context, salesforce.Record, string) (*actions.Result, error) {
	return nil, u.err()
}

func (u unconfigured) DeleteRecord(context.Context, salesforce.Record, string) (*actions.Result, error) {
	return nil, u.err()
}

func (u unconfigured) BulkHandler(context.Context, []salesforce.Record, string, salesforce.BulkOptions) (*actions.Result, error) {
	return nil, u.err()
}
