package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError    ErrorCode = "DATABASE_ERROR"
	ErrCodeAlreadyProcessed ErrorCode = "ALREADY_PROCESSED"
	ErrCodeLocked           ErrorCode = "LOCKED"
	ErrCodeChatClosed       ErrorCode = "CHAT_CLOSED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeAlreadyProcessed:
		return http.StatusConflict
	case ErrCodeLocked, ErrCodeChatClosed:
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeConflict
}

var (
	ErrListingNotFound      = New(ErrCodeNotFound, "объявление не найдено")
	ErrBookingNotFound      = New(ErrCodeNotFound, "бронирование не найдено")
	ErrConversationNotFound = New(ErrCodeNotFound, "беседа не найдена")
	ErrReviewNotFound       = New(ErrCodeNotFound, "отзыв не найден")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden            = New(ErrCodeForbidden, "недостаточно прав")

	// Ошибки журнала бронирований.
	ErrBookingConflict    = New(ErrCodeConflict, "выбранные даты уже заняты")
	ErrSelfBooking        = New(ErrCodeValidation, "нельзя бронировать собственное объявление")
	ErrListingUnavailable = New(ErrCodeValidation, "объявление недоступно для бронирования")

	// Ошибки переходов состояния.
	ErrAlreadyProcessed = New(ErrCodeAlreadyProcessed, "бронирование уже обработано")
	ErrShippingLocked   = New(ErrCodeLocked, "нельзя редактировать — посылка уже доставлена")
	ErrReturnLocked     = New(ErrCodeLocked, "нельзя редактировать — возврат уже завершён")

	// Ошибки чата и отзывов.
	ErrChatClosed      = New(ErrCodeChatClosed, "беседа закрыта")
	ErrAlreadyReviewed = New(ErrCodeConflict, "вы уже оставили отзыв по этому бронированию")
)
