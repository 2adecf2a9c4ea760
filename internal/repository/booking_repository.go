package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/repository/common"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrBookingOverlap — даты пересекаются с активным бронированием.
	ErrBookingOverlap = errors.New("booking dates overlap")
	// ErrShippingLocked / ErrReturnLocked — подмашина заморожена навсегда.
	ErrShippingLocked = errors.New("shipping is locked")
	ErrReturnLocked   = errors.New("return is locked")
	// ErrStatusMismatch — условное обновление не прошло по основному статусу.
	ErrStatusMismatch = errors.New("booking status mismatch")
)

// validNotifyFlags — белый список колонок флагов уведомлений:
// имя колонки подставляется в запрос напрямую.
var validNotifyFlags = map[models.NotifyFlag]struct{}{
	models.FlagRequestedOwner:  {},
	models.FlagRequestedRenter: {},
	models.FlagDecisionOwner:   {},
	models.FlagDecisionRenter:  {},
}

type BookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateWithNoOverlap проверяет пересечение дат и создаёт бронирование
// одной атомарной единицей. Advisory lock по объявлению сериализует
// конкурирующие запросы: два параллельных арендатора не могут оба пройти
// проверку до коммита друг друга.
func (r *BookingRepository) CreateWithNoOverlap(ctx context.Context, booking *models.Booking) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		// Блокировка живёт до конца транзакции.
		_, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`,
			booking.ListingID,
		)
		if err != nil {
			return fmt.Errorf("booking repository: advisory lock %w", err)
		}

		// Полуинтервалы [start, end): соприкасающиеся границы разрешены.
		var conflict int
		err = tx.GetContext(ctx, &conflict, `
			SELECT 1 FROM bookings
			WHERE listing_id = $1
			  AND status = ANY($2)
			  AND start_date < $4
			  AND end_date > $3
			LIMIT 1
		`, booking.ListingID, pq.Array(models.ActiveBookingStatuses), booking.StartDate, booking.EndDate)
		if err == nil {
			return ErrBookingOverlap
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("booking repository: overlap check %w", err)
		}

		query := `
			INSERT INTO bookings (listing_id, renter_id, start_date, end_date, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, payment_status, shipping_status, return_status, created_at, updated_at
		`
		return tx.QueryRowxContext(ctx, query,
			booking.ListingID, booking.RenterID, booking.StartDate, booking.EndDate, models.BookingStatusPending,
		).Scan(&booking.ID, &booking.PaymentStatus, &booking.ShippingStatus, &booking.ReturnStatus,
			&booking.CreatedAt, &booking.UpdatedAt)
	})
}

// GetByID возвращает бронирование по ID.
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return common.GetByID[models.Booking](ctx, r.db, "bookings", id, ErrBookingNotFound)
}

// UpdateStatusIf переводит основной статус условно (compare-and-swap).
// Возвращает false, если бронирование уже не в ожидаемом статусе —
// два одновременных approve/reject не могут выиграть оба.
func (r *BookingRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("booking repository: update status %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkPaid переводит CONFIRMED → PAID и записывает детали платежа.
// Повторный вызов по уже оплаченному бронированию — no-op (идемпотентность
// для повторов вебхука платёжного провайдера). Второе возвращаемое значение
// сообщает, произошёл ли переход именно в этом вызове: побочные эффекты
// (уведомления) привязаны к нему и не повторяются при ретраях.
func (r *BookingRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string, amountCents int64) (*models.Booking, bool, error) {
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, `
		UPDATE bookings
		SET status = $2,
		    payment_status = $3,
		    payment_ref = $4,
		    amount_cents = $5,
		    paid_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = $6
		RETURNING *
	`, id, models.BookingStatusPaid, models.PaymentStatusPaid, paymentRef, amountCents, models.BookingStatusConfirmed)
	if err == nil {
		return &booking, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("booking repository: mark paid %w", err)
	}

	// Условное обновление не прошло: разбираемся почему.
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, false, getErr
	}
	if current.Status == models.BookingStatusPaid {
		return current, false, nil
	}
	return nil, false, ErrStatusMismatch
}

// UpdateShipping применяет изменение машины доставки одним условным UPDATE.
// Предикаты в WHERE делают переход гонко-безопасным: замороженную
// (DELIVERED) строку не изменит даже конкурирующий запрос.
// shipped_at/delivered_at выставляются не более одного раза (COALESCE).
func (r *BookingRepository) UpdateShipping(ctx context.Context, id uuid.UUID, upd models.ShippingUpdate) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, `
		UPDATE bookings
		SET shipping_status = $2,
		    carrier = $3,
		    tracking_number = $4,
		    shipped_at = CASE WHEN $2 = 'SHIPPED' THEN COALESCE(shipped_at, NOW()) ELSE shipped_at END,
		    delivered_at = CASE WHEN $2 = 'DELIVERED' THEN COALESCE(delivered_at, NOW()) ELSE delivered_at END,
		    updated_at = NOW()
		WHERE id = $1
		  AND shipping_status <> 'DELIVERED'
		  AND status = ANY($5)
		RETURNING *
	`, id, upd.Status, upd.Carrier, upd.TrackingNumber,
		pq.Array([]string{models.BookingStatusConfirmed, models.BookingStatusPaid}))
	if err == nil {
		return &booking, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking repository: update shipping %w", err)
	}
	return nil, r.explainShippingMiss(ctx, id)
}

func (r *BookingRepository) explainShippingMiss(ctx context.Context, id uuid.UUID) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.ShippingStatus == models.ShippingStatusDelivered {
		return ErrShippingLocked
	}
	return ErrStatusMismatch
}

// UpdateReturn — зеркало UpdateShipping для машины возврата арендатора.
// Замораживается при RETURNED; первые SHIPPED/RETURNED фиксируют даты.
func (r *BookingRepository) UpdateReturn(ctx context.Context, id uuid.UUID, upd models.ReturnUpdate) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, `
		UPDATE bookings
		SET return_status = $2,
		    return_carrier = $3,
		    return_tracking_number = $4,
		    return_shipped_at = CASE WHEN $2 = 'SHIPPED' THEN COALESCE(return_shipped_at, NOW()) ELSE return_shipped_at END,
		    return_delivered_at = CASE WHEN $2 = 'RETURNED' THEN COALESCE(return_delivered_at, NOW()) ELSE return_delivered_at END,
		    updated_at = NOW()
		WHERE id = $1
		  AND return_status <> 'RETURNED'
		  AND status = ANY($5)
		RETURNING *
	`, id, upd.Status, upd.Carrier, upd.TrackingNumber,
		pq.Array([]string{models.BookingStatusConfirmed, models.BookingStatusPaid}))
	if err == nil {
		return &booking, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking repository: update return %w", err)
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if current.ReturnStatus == models.ReturnStatusReturned {
		return nil, ErrReturnLocked
	}
	return nil, ErrStatusMismatch
}

// ClaimNotifyFlag пытается захватить флаг отправки уведомления.
// Возвращает true ровно один раз на (бронирование, флаг): повторная
// доставка события не продублирует письмо.
func (r *BookingRepository) ClaimNotifyFlag(ctx context.Context, id uuid.UUID, flag models.NotifyFlag) (bool, error) {
	if _, ok := validNotifyFlags[flag]; !ok {
		return false, fmt.Errorf("booking repository: unknown notify flag %q", flag)
	}
	query := fmt.Sprintf(
		`UPDATE bookings SET %s = TRUE, updated_at = NOW() WHERE id = $1 AND %s = FALSE`,
		flag, flag,
	)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("booking repository: claim notify flag %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListByRenter возвращает бронирования пользователя-арендатора.
func (r *BookingRepository) ListByRenter(ctx context.Context, renterID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT * FROM bookings WHERE renter_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, renterID, limit, offset)
	return bookings, err
}

// ListByOwner возвращает бронирования на объявления владельца.
func (r *BookingRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT b.* FROM bookings b
		JOIN listings l ON l.id = b.listing_id
		WHERE l.owner_id = $1
		ORDER BY b.created_at DESC LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	return bookings, err
}

// ListActiveByListing возвращает активные бронирования объявления
// (для календаря занятости на странице объявления).
func (r *BookingRepository) ListActiveByListing(ctx context.Context, listingID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT * FROM bookings
		WHERE listing_id = $1 AND status = ANY($2)
		ORDER BY start_date
	`, listingID, pq.Array(models.ActiveBookingStatuses))
	return bookings, err
}
