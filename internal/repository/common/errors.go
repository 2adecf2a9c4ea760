package common

import "errors"

// Общие ошибки репозиториев. Конкретные репозитории объявляют свои
// сентинели (ErrBookingNotFound и т.п.) поверх этих базовых.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidInput  = errors.New("invalid input")
)
