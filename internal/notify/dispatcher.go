package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mojaszafa/rental-backend/internal/logger"
	"github.com/mojaszafa/rental-backend/internal/models"
)

// Notifier доставляет событие получателю. Доставка выполняется по принципу
// best effort: сбой уведомления никогда не откатывает бизнес-операцию.
type Notifier interface {
	Notify(ctx context.Context, event string, recipient uuid.UUID, payload any)
}

// inboxStore сохраняет уведомление в ящике пользователя.
type inboxStore interface {
	Create(ctx context.Context, userID uuid.UUID, payload json.RawMessage) (*models.Notification, error)
}

// pusher доставляет событие в открытые WebSocket-подключения пользователя.
type pusher interface {
	Push(userID uuid.UUID, event string, data any) error
}

// eventPublisher публикует событие во внешнюю шину.
type eventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Dispatcher разносит событие по трём каналам: ящик уведомлений в БД,
// WebSocket и шина событий. Каждый канал независим и необязателен.
type Dispatcher struct {
	inbox     inboxStore
	push      pusher
	publisher eventPublisher
}

func NewDispatcher(inbox inboxStore, push pusher, publisher eventPublisher) *Dispatcher {
	return &Dispatcher{inbox: inbox, push: push, publisher: publisher}
}

type envelope struct {
	Event string    `json:"event"`
	Data  any       `json:"data"`
	At    time.Time `json:"at"`
}

// Notify доставляет событие получателю по всем настроенным каналам.
func (d *Dispatcher) Notify(ctx context.Context, event string, recipient uuid.UUID, payload any) {
	env := envelope{Event: event, Data: payload, At: time.Now().UTC()}

	if d.inbox != nil {
		raw, err := json.Marshal(env)
		if err != nil {
			logger.Log.WithError(err).WithField("event", event).Error("notify: не удалось сериализовать событие")
			return
		}
		if _, err := d.inbox.Create(ctx, recipient, raw); err != nil {
			logger.Log.WithError(err).WithField("event", event).Error("notify: не удалось сохранить уведомление")
		}
	}

	if d.push != nil {
		if err := d.push.Push(recipient, event, payload); err != nil {
			logger.Log.WithError(err).WithField("event", event).Warn("notify: не удалось отправить в WebSocket")
		}
	}

	if d.publisher != nil {
		if err := d.publisher.PublishJSON(ctx, event, env); err != nil {
			logger.Log.WithError(err).WithField("event", event).Warn("notify: не удалось опубликовать в шину")
		}
	}
}
