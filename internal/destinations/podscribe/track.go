// Package podscribe implements the Podscribe tag pixel destination.
package podscribe

import (
	"context"
	"net/http"

	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/dto"
	"github.com/joshu-sajeev/destinations/internal/fields"
	"github.com/joshu-sajeev/destinations/internal/querystring"
)

// DefaultEndpoint is the pixel endpoint tag requests are sent to.
const DefaultEndpoint = "https://verifi.podscribe.com/tag"

type Settings struct {
	Advertiser string
	// Endpoint overrides DefaultEndpoint.
	Endpoint string
}

func (s Settings) endpoint() string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	return DefaultEndpoint
}

var trackFields = fields.Schema{
	{
		Key:         "anonymousId",
		Label:       "Anonymous ID",
		Description: "The anonymous ID associated with the user",
		Type:        fields.TypeString,
		AllowNull:   true,
		Default:     fields.Path("$.anonymousId"),
	},
	{
		Key:         "timestamp",
		Label:       "Timestamp",
		Description: "The timestamp of the event",
		Type:        fields.TypeString,
		Format:      fields.FormatDateTime,
		Default:     fields.Path("$.timestamp"),
	},
	{
		Key:         "referrer",
		Label:       "Page Referrer",
		Description: "The page referrer",
		Type:        fields.TypeString,
		AllowNull:   true,
		Default:     fields.IfExists(fields.Path("$.context.page.referrer"), fields.Path("$.context.page.referrer"), fields.Path("$.properties.referrer")),
	},
	{
		Key:         "url",
		Label:       "Page URL",
		Description: "The page URL",
		Type:        fields.TypeString,
		Format:      fields.FormatURI,
		AllowNull:   true,
		Default:     fields.IfExists(fields.Path("$.context.page.url"), fields.Path("$.context.page.url"), fields.Path("$.properties.url")),
	},
	{
		Key:         "ip",
		Label:       "IP",
		Description: "The IP address of the device sending the event.",
		Type:        fields.TypeString,
		Required:    true,
		Default:     fields.Path("$.context.ip"),
	},
	{
		Key:         "userAgent",
		Label:       "User Agent",
		Description: "The user agent of the device sending the event.",
		Type:        fields.TypeString,
		Default:     fields.Path("$.context.userAgent"),
	},
	{
		Key:         "email",
		Label:       "Email address",
		Description: "Email address of the user",
		Type:        fields.TypeString,
		Format:      fields.FormatEmail,
		AllowNull:   true,
		Default:     fields.IfExists(fields.Path("$.context.traits.email"), fields.Path("$.context.traits.email"), fields.Path("$.properties.email")),
	},
	{
		Key:         "properties",
		Label:       "Event properties",
		Description: "Properties to send with the event",
		Type:        fields.TypeObject,
		Default:     fields.Path("$.properties"),
	},
	{
		Key:         "podscribeEvent",
		Label:       "Podscribe event type",
		Description: "Podscribe type of event to send",
		Type:        fields.TypeString,
		Required:    true,
		Default:     fields.Path("$.podscribeEvent"),
	},
}

// TagParams returns the pixel query parameters for p, in the order the
// endpoint expects them.
func TagParams(settings Settings, p *dto.TrackPayload) querystring.Params {
	prop := func(key string) any {
		return p.Properties[key]
	}

	return querystring.Params{}.
		Add("action", p.PodscribeEvent).
		Add("advertiser", settings.Advertiser).
		Add("timestamp", p.Timestamp).
		Add("device_id", p.AnonymousID).
		Add("referrer", p.Referrer).
		Add("url", p.URL).
		Add("ip", p.IP).
		Add("user_agent", p.UserAgent).
		Add("order_value", prop("total")).
		Add("order_number", prop("order_id")).
		Add("currency", prop("currency")).
		Add("discount_code", prop("coupon")).
		Add("hashed_email", p.Email).
		Add("num_items_purchased", prop("num_items_purchased")).
		Add("is_new_customer", prop("is_new_customer")).
		Add("is_subscription", prop("is_subscription"))
}

// TagURL is the full pixel request URL for p.
func TagURL(settings Settings, p *dto.TrackPayload) string {
	return settings.endpoint() + "?" + querystring.Serialize(TagParams(settings, p))
}

// TrackAction sends a track event to the Podscribe pixel.
func TrackAction(settings Settings, client actions.HTTPClient) *actions.Definition {
	return &actions.Definition{
		Name:                "track",
		Title:               "Track",
		Description:         "Send user events to Podscribe",
		DefaultSubscription: `type = "track"`,
		Fields:              trackFields,
		Validate:            actions.Validate[dto.TrackPayload](),
		Perform: actions.Handle(func(ctx context.Context, ec actions.ExecContext, p *dto.TrackPayload) (*actions.Result, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, TagURL(settings, p), nil)
			if err != nil {
				return nil, err
			}
			res, _, err := actions.Send(client, req)
			return res, err
		}),
	}
}

// NewDestination returns the Podscribe destination.
func NewDestination(settings Settings, client actions.HTTPClient) *actions.Destination {
	return &actions.Destination{
		Name:        "podscribe",
		Description: "Send conversion events to the Podscribe tag pixel.",
		Actions:     []*actions.Definition{TrackAction(settings, client)},
	}
}
