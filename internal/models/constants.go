package models

// BookingStatus константы статусов бронирований
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusPaid      = "PAID"
	BookingStatusCancelled = "CANCELLED"
)

// ActiveBookingStatuses — статусы, участвующие в проверке пересечения дат.
var ActiveBookingStatuses = []string{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusPaid,
}

// PaymentStatus константы статусов оплаты
const (
	PaymentStatusNone = "NONE"
	PaymentStatusPaid = "PAID"
)

// ShippingStatus константы статусов доставки (машина владельца)
const (
	ShippingStatusNotRequired   = "NOT_REQUIRED"
	ShippingStatusPending       = "PENDING"
	ShippingStatusReady         = "READY"
	ShippingStatusShipped       = "SHIPPED"
	ShippingStatusDelivered     = "DELIVERED"
	ShippingStatusReturnPending = "RETURN_PENDING"
	ShippingStatusReturned      = "RETURNED"
	ShippingStatusLost          = "LOST"
	ShippingStatusCancelled     = "CANCELLED"
)

// ReturnStatus константы статусов возврата (машина арендатора)
const (
	ReturnStatusPending   = "RETURN_PENDING"
	ReturnStatusShipped   = "SHIPPED"
	ReturnStatusReturned  = "RETURNED"
	ReturnStatusLost      = "LOST"
	ReturnStatusCancelled = "CANCELLED"
)

// ValidShippingStatuses список валидных статусов доставки.
// Произвольные строки из формы сюда не проходят.
var ValidShippingStatuses = map[string]struct{}{
	ShippingStatusNotRequired:   {},
	ShippingStatusPending:       {},
	ShippingStatusReady:         {},
	ShippingStatusShipped:       {},
	ShippingStatusDelivered:     {},
	ShippingStatusReturnPending: {},
	ShippingStatusReturned:      {},
	ShippingStatusLost:          {},
	ShippingStatusCancelled:     {},
}

// ValidReturnStatuses список валидных статусов возврата
var ValidReturnStatuses = map[string]struct{}{
	ReturnStatusPending:   {},
	ReturnStatusShipped:   {},
	ReturnStatusReturned:  {},
	ReturnStatusLost:      {},
	ReturnStatusCancelled: {},
}

// ConversationStatus константы статусов бесед
const (
	ConversationStatusOpen   = "OPEN"
	ConversationStatusClosed = "CLOSED"
)

// Причины закрытия беседы
const (
	ClosedReasonBookingCancelledByOwner = "BOOKING_CANCELLED_BY_OWNER"
)

// ReviewRole — роль, которую оцениваемый играл в бронировании.
const (
	ReviewRoleOwner  = "OWNER"
	ReviewRoleRenter = "RENTER"
)

// События уведомлений
const (
	EventBookingRequested = "booking.requested"
	EventBookingApproved  = "booking.approved"
	EventBookingRejected  = "booking.rejected"
	EventBookingPaid      = "booking.paid"
	EventMessageNew       = "message.new"
)

// MaxMessageLength — максимальная длина сообщения в чате.
const MaxMessageLength = 2000
