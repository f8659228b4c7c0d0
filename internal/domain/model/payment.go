package model

import "time"

// PaymentStatus is the gateway-reported status normalized into a closed
// vocabulary. The stored status is only overwritten through MergePayment.
type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusApproved    PaymentStatus = "approved"
	PaymentStatusAuthorized  PaymentStatus = "authorized"
	PaymentStatusInProcess   PaymentStatus = "in_process"
	PaymentStatusInMediation PaymentStatus = "in_mediation"
	PaymentStatusRejected    PaymentStatus = "rejected"
	PaymentStatusCancelled   PaymentStatus = "cancelled"
	PaymentStatusRefunded    PaymentStatus = "refunded"
	PaymentStatusChargedBack PaymentStatus = "charged_back"
)

// ranks order gateway statuses monotonically. The gateway carries no reliable
// version number across deliveries, so out-of-order redeliveries are rejected
// by rank comparison instead.
var ranks = map[PaymentStatus]int{
	PaymentStatusPending:     0,
	PaymentStatusInProcess:   1,
	PaymentStatusAuthorized:  1,
	PaymentStatusInMediation: 1,
	PaymentStatusApproved:    2,
	PaymentStatusRejected:    3,
	PaymentStatusCancelled:   3,
	PaymentStatusRefunded:    3,
	PaymentStatusChargedBack: 3,
}

// ValidPaymentStatus reports whether s belongs to the gateway vocabulary.
func ValidPaymentStatus(s PaymentStatus) bool {
	_, ok := ranks[s]
	return ok
}

// Rank returns the merge rank of s. Unknown statuses rank below pending so a
// malformed report can never displace real state.
func (s PaymentStatus) Rank() int {
	if r, ok := ranks[s]; ok {
		return r
	}
	return -1
}

// Terminal reports whether no further transition is expected from s.
func (s PaymentStatus) Terminal() bool {
	return s.Rank() == 3
}

// MergeDecision is the outcome of comparing a fetched status with the stored one.
type MergeDecision int

const (
	// MergeUnchanged means the fetched status equals the stored one; the
	// delivery is an idempotent duplicate and produces no side effects.
	MergeUnchanged MergeDecision = iota
	// MergeApply means the fetched status supersedes the stored one.
	MergeApply
	// MergeStale means the fetched status is older than the stored one and
	// must be discarded.
	MergeStale
)

// MergePayment decides whether fetched may overwrite current. A fetched
// status applies when its rank is at least the current rank; a different
// terminal status may replace a same-rank terminal one (gateway correction).
// Everything else is stale.
func MergePayment(current, fetched PaymentStatus) MergeDecision {
	if fetched == current {
		return MergeUnchanged
	}
	if fetched.Rank() < current.Rank() {
		return MergeStale
	}
	return MergeApply
}

// Payment is one attempt to settle an order through the external gateway.
type Payment struct {
	ID                int64
	OrderID           int64
	ExternalReference string
	PreferenceID      string
	// GatewayPaymentID is assigned by the gateway and may stay empty until
	// the payer completes the flow.
	GatewayPaymentID string
	Status           PaymentStatus
	Amount           float64
	Currency         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
