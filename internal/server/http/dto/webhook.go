package dto

import "encoding/json"

// WebhookRequest is the gateway notification payload. Only the payment id is
// trusted; the actual state is re-fetched from the gateway.
type WebhookRequest struct {
	Type              string      `json:"type"`
	Action            string      `json:"action,omitempty"`
	ExternalReference string      `json:"external_reference,omitempty"`
	Data              WebhookData `json:"data"`
}

// WebhookData carries the gateway payment id. The gateway sends it either as
// a string or a number depending on the event version.
type WebhookData struct {
	ID json.Number `json:"id"`
}
