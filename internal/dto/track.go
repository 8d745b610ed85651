package dto

// TrackPayload is the mapped input of the Podscribe track action. Pointer
// fields are optional: nil is left out of the pixel request, an empty string
// is sent as an empty value.
type TrackPayload struct {
	AnonymousID    *string        `json:"anonymousId,omitempty"`
	Timestamp      *string        `json:"timestamp,omitempty"`
	Referrer       *string        `json:"referrer,omitempty"`
	URL            *string        `json:"url,omitempty" validate:"omitempty,url"`
	IP             string         `json:"ip" validate:"required"`
	UserAgent      *string        `json:"userAgent,omitempty"`
	Email          *string        `json:"email,omitempty" validate:"omitempty,email"`
	Properties     map[string]any `json:"properties,omitempty"`
	PodscribeEvent string         `json:"podscribeEvent" validate:"required"`
}
