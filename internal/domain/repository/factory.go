package repository

// Factory produces domain repositories backed by a single storage.
type Factory interface {
	Orders() OrderRepository
	Payments() PaymentRepository
}
