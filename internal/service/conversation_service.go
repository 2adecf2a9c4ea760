package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mojaszafa/rental-backend/internal/models"
	"github.com/mojaszafa/rental-backend/internal/notify"
	"github.com/mojaszafa/rental-backend/internal/pkg/apperror"
	"github.com/mojaszafa/rental-backend/internal/repository"
)

type ConversationRepo interface {
	OpenOrGet(ctx context.Context, listingID, buyerID, sellerID uuid.UUID) (*models.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	CreateMessage(ctx context.Context, conv *models.Conversation, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error)
	ListSummariesByUser(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error)
	MarkRead(ctx context.Context, conv *models.Conversation, userID uuid.UUID) error
	UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error)
}

type ListingRepoForConversation interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type ConversationService struct {
	repo     ConversationRepo
	listings ListingRepoForConversation
	notifier notify.Notifier
}

func NewConversationService(repo ConversationRepo, listings ListingRepoForConversation, notifier notify.Notifier) *ConversationService {
	return &ConversationService{repo: repo, listings: listings, notifier: notifier}
}

// OpenConversation открывает беседу покупателя с владельцем объявления
// или возвращает уже существующую. Если беседа была закрыта, она
// возвращается закрытой: переоткрытие не предусмотрено.
func (s *ConversationService) OpenConversation(ctx context.Context, listingID, buyerID uuid.UUID) (*models.Conversation, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}
	if listing.OwnerID == buyerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя открыть беседу с самим собой")
	}
	return s.repo.OpenOrGet(ctx, listingID, buyerID, listing.OwnerID)
}

// GetConversation возвращает беседу её участнику.
func (s *ConversationService) GetConversation(ctx context.Context, conversationID, userID uuid.UUID) (*models.Conversation, error) {
	return s.getForParticipant(ctx, conversationID, userID)
}

// SendMessage отправляет сообщение в открытую беседу и уведомляет
// собеседника. В закрытую беседу писать нельзя.
func (s *ConversationService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, text string) (*models.Message, error) {
	conv, err := s.getForParticipant(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if conv.Status == models.ConversationStatusClosed {
		return nil, apperror.ErrChatClosed
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение не может быть пустым")
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("сообщение не может быть длиннее %d символов", models.MaxMessageLength))
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
	}
	if err := s.repo.CreateMessage(ctx, conv, msg); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, models.EventMessageNew, conv.Counterpart(senderID), msg)
	}

	return msg, nil
}

// ListMessages возвращает сообщения беседы её участнику.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]models.Message, error) {
	if _, err := s.getForParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, conversationID, normalizeLimit(limit), offset)
}

// ListMyConversations возвращает беседы пользователя со счётчиками непрочитанных.
func (s *ConversationService) ListMyConversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	return s.repo.ListSummariesByUser(ctx, userID)
}

// MarkRead помечает беседу прочитанной для участника.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	conv, err := s.getForParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, conv, userID)
}

// UnreadTotal возвращает суммарное количество непрочитанных сообщений.
func (s *ConversationService) UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadTotal(ctx, userID)
}

func (s *ConversationService) getForParticipant(ctx context.Context, conversationID, userID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, apperror.ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return conv, nil
}
