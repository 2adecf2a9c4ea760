package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking описывает бронирование объявления на полуинтервал [start_date, end_date).
// Основной статус, машина доставки и машина возврата живут в одной строке,
// но изменяют непересекающиеся наборы полей.
type Booking struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ListingID uuid.UUID `db:"listing_id" json:"listing_id"`
	RenterID  uuid.UUID `db:"renter_id" json:"renter_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Status    string    `db:"status" json:"status"`

	// Оплата (выставляется платёжным коллаборатором).
	PaymentStatus string     `db:"payment_status" json:"payment_status"`
	PaymentRef    *string    `db:"payment_ref" json:"payment_ref,omitempty"`
	AmountCents   *int64     `db:"amount_cents" json:"amount_cents,omitempty"`
	PaidAt        *time.Time `db:"paid_at" json:"paid_at,omitempty"`

	// Доставка (редактирует владелец).
	ShippingStatus string     `db:"shipping_status" json:"shipping_status"`
	Carrier        *string    `db:"carrier" json:"carrier,omitempty"`
	TrackingNumber *string    `db:"tracking_number" json:"tracking_number,omitempty"`
	ShippedAt      *time.Time `db:"shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`

	// Возврат (редактирует арендатор).
	ReturnStatus         string     `db:"return_status" json:"return_status"`
	ReturnCarrier        *string    `db:"return_carrier" json:"return_carrier,omitempty"`
	ReturnTrackingNumber *string    `db:"return_tracking_number" json:"return_tracking_number,omitempty"`
	ReturnShippedAt      *time.Time `db:"return_shipped_at" json:"return_shipped_at,omitempty"`
	ReturnDeliveredAt    *time.Time `db:"return_delivered_at" json:"return_delivered_at,omitempty"`

	// Флаги отправленных уведомлений (по получателю и событию),
	// чтобы повторная доставка не дублировала письма.
	RequestedOwnerNotified  bool `db:"requested_owner_notified" json:"-"`
	RequestedRenterNotified bool `db:"requested_renter_notified" json:"-"`
	DecisionOwnerNotified   bool `db:"decision_owner_notified" json:"-"`
	DecisionRenterNotified  bool `db:"decision_renter_notified" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsActive сообщает, участвует ли бронирование в проверке пересечения дат.
func (b *Booking) IsActive() bool {
	switch b.Status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusPaid:
		return true
	}
	return false
}

// NotifyFlag — флаг отправленного уведомления по паре (событие, получатель).
type NotifyFlag string

const (
	FlagRequestedOwner  NotifyFlag = "requested_owner_notified"
	FlagRequestedRenter NotifyFlag = "requested_renter_notified"
	FlagDecisionOwner   NotifyFlag = "decision_owner_notified"
	FlagDecisionRenter  NotifyFlag = "decision_renter_notified"
)

// ShippingUpdate — изменение машины доставки от владельца.
type ShippingUpdate struct {
	Status         string  `json:"shipping_status"`
	Carrier        *string `json:"carrier,omitempty"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
}

// ReturnUpdate — изменение машины возврата от арендатора.
type ReturnUpdate struct {
	Status         string  `json:"return_status"`
	Carrier        *string `json:"return_carrier,omitempty"`
	TrackingNumber *string `json:"return_tracking_number,omitempty"`
}
