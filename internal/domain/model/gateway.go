package model

// Payer identifies the customer on the gateway side.
type Payer struct {
	Name  string
	Email string
	Phone string
}

// PreferenceItem is one purchasable line sent to the gateway.
type PreferenceItem struct {
	Title     string
	UnitPrice float64
	Quantity  int
}

// ReturnURLs are the redirect targets the gateway sends the payer back to.
type ReturnURLs struct {
	Success string
	Failure string
	Pending string
}

// PreferenceRequest carries everything the gateway needs to open a payable
// checkout session.
type PreferenceRequest struct {
	Items             []PreferenceItem
	Payer             Payer
	ExternalReference string
	ReturnURLs        ReturnURLs
}

// Preference is the gateway-side checkout session.
type Preference struct {
	ID          string
	RedirectURL string
}

// PaymentInfo is the authoritative payment state fetched from the gateway.
// Webhook payloads are only a signal to fetch one of these, never a source
// of truth themselves.
type PaymentInfo struct {
	GatewayPaymentID  string
	ExternalReference string
	Status            PaymentStatus
	Amount            float64
	Currency          string
}

// StatusClass collapses the gateway vocabulary into the classes the engine
// branches on, instead of inspecting raw statuses throughout.
type StatusClass int

const (
	ClassPending StatusClass = iota
	ClassInFlight
	ClassApproved
	ClassTerminal
)

// Class derives the coarse class of the fetched status.
func (i *PaymentInfo) Class() StatusClass {
	switch i.Status.Rank() {
	case 2:
		return ClassApproved
	case 3:
		return ClassTerminal
	case 1:
		return ClassInFlight
	default:
		return ClassPending
	}
}

// WebhookEvent is the parsed gateway delivery handed to the engine by the
// transport adapter. Either field may be absent depending on event type.
type WebhookEvent struct {
	Type              string
	GatewayPaymentID  string
	ExternalReference string
}

// RefundInfo is the gateway response to a refund request.
type RefundInfo struct {
	RefundID         string
	GatewayPaymentID string
	Amount           float64
	Status           PaymentStatus
}
