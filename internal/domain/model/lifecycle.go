package model

import domainErrors "github.com/tiendita/pagoflow/internal/domain/errors"

// OrderEvent is an input to the order state machine.
type OrderEvent string

const (
	// EventPreferenceIssued fires when a payment preference was created for the order.
	EventPreferenceIssued OrderEvent = "preference_issued"
	// EventPaymentApproved fires when the active payment crossed into approved.
	EventPaymentApproved OrderEvent = "payment_approved"
	// EventPaymentPending fires on pending/in_process gateway reports.
	EventPaymentPending OrderEvent = "payment_pending"
	// EventFulfillmentStarted is an administrative transition into IN_PROGRESS.
	EventFulfillmentStarted OrderEvent = "fulfillment_started"
	// EventFulfillmentCompleted is an administrative transition into COMPLETED.
	EventFulfillmentCompleted OrderEvent = "fulfillment_completed"
)

// transitions maps each event to its allowed source statuses and target.
var transitions = map[OrderEvent]struct {
	from   map[OrderStatus]bool
	target OrderStatus
}{
	EventPreferenceIssued: {
		from:   map[OrderStatus]bool{OrderStatusCreated: true, OrderStatusAwaitingPayment: true},
		target: OrderStatusAwaitingPayment,
	},
	EventPaymentApproved: {
		from:   map[OrderStatus]bool{OrderStatusAwaitingPayment: true},
		target: OrderStatusPaid,
	},
	EventPaymentPending: {
		from:   map[OrderStatus]bool{OrderStatusAwaitingPayment: true},
		target: OrderStatusAwaitingPayment,
	},
	EventFulfillmentStarted: {
		from:   map[OrderStatus]bool{OrderStatusPaid: true},
		target: OrderStatusInProgress,
	},
	EventFulfillmentCompleted: {
		from:   map[OrderStatus]bool{OrderStatusInProgress: true},
		target: OrderStatusCompleted,
	},
}

// ApplyOrderEvent validates event against current and returns the resulting
// status. An event whose target equals current is an idempotent no-op and is
// distinguishable by next == current. Illegal transitions return
// ErrInvalidTransition with current preserved.
func ApplyOrderEvent(current OrderStatus, event OrderEvent) (OrderStatus, error) {
	rule, ok := transitions[event]
	if !ok {
		return current, domainErrors.ErrInvalidTransition
	}
	if current == rule.target {
		return current, nil
	}
	if !rule.from[current] {
		return current, domainErrors.ErrInvalidTransition
	}
	return rule.target, nil
}

// OrderEventForStatus resolves the administrative event leading to target.
// Used by the status-override endpoint so overrides go through the same
// transition table as reconciliation.
func OrderEventForStatus(target OrderStatus) (OrderEvent, error) {
	switch target {
	case OrderStatusAwaitingPayment:
		return EventPreferenceIssued, nil
	case OrderStatusPaid:
		return EventPaymentApproved, nil
	case OrderStatusInProgress:
		return EventFulfillmentStarted, nil
	case OrderStatusCompleted:
		return EventFulfillmentCompleted, nil
	}
	return "", domainErrors.ErrInvalidTransition
}
