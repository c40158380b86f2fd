package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error представляет ошибку дашборда или бизнес-ошибку upstream API
type Error struct {
	Code        ErrorCode `json:"code"`
	Message     string    `json:"message"`
	Details     string    `json:"details,omitempty"`
	UserMessage string    `json:"user_message,omitempty"`
	Cause       error     `json:"-"`
}

// ErrorCode представляет код ошибки. Коды upstream API передаются как есть.
type ErrorCode string

// Локальные коды ошибок
const (
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrValidation      ErrorCode = "VALIDATION_ERROR"
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrForbidden       ErrorCode = "FORBIDDEN"
	ErrInternal        ErrorCode = "INTERNAL_ERROR"
	ErrConflict        ErrorCode = "CONFLICT"
	ErrTransport       ErrorCode = "TRANSPORT_ERROR"
	ErrTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
)

// Коды бизнес-ошибок upstream API, на которые реагирует дашборд
const (
	ErrInvalidLoginCreds ErrorCode = "INVALID_LOGIN_CREDS"
	ErrLinkExists        ErrorCode = "LINK_EXISTS"
)

// Error возвращает сообщение об ошибке
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap возвращает причину ошибки
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду
func (e *Error) Is(target error) bool {
	if targetError, ok := target.(*Error); ok {
		return e.Code == targetError.Code
	}
	return false
}

// New создает новую кастомную ошибку
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает существующую ошибку в кастомную
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// FromAPI создает ошибку из конверта {code, user_message} upstream API
func FromAPI(code, userMessage string) *Error {
	if code == "" {
		code = string(ErrInternal)
	}
	return &Error{
		Code:        ErrorCode(code),
		Message:     "api: " + code,
		UserMessage: userMessage,
	}
}

// CodeOf извлекает код ошибки. Для ошибок другого типа возвращает пустую строку.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// As извлекает *Error из цепочки ошибок
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrors.As(err, &e)
	return e, ok
}

// WithDetails добавляет детали к ошибке
func (e *Error) WithDetails(details string) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:        e.Code,
		Message:     e.Message,
		Details:     details,
		UserMessage: e.UserMessage,
		Cause:       e.Cause,
	}
}

// HTTPStatus возвращает соответствующий HTTP статус для ошибки
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusOK
	}

	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation, ErrInvalidLoginCreds:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict, ErrLinkExists:
		return http.StatusConflict
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	case ErrTransport:
		return http.StatusBadGateway
	case ErrInternal:
		return http.StatusInternalServerError
	default:
		// Прочие бизнес-ошибки upstream
		return http.StatusUnprocessableEntity
	}
}

// GetUserMessage возвращает пользовательское сообщение об ошибке.
// Сообщение upstream API имеет приоритет над сообщением по умолчанию.
func (e *Error) GetUserMessage() string {
	if e == nil {
		return ""
	}

	if e.UserMessage != "" {
		return e.UserMessage
	}

	// Возвращаем сообщения на русском по умолчанию
	switch e.Code {
	case ErrNotFound:
		return "Ресурс не найден"
	case ErrValidation:
		return "Ошибка валидации данных"
	case ErrUnauthorized:
		return "Не авторизован"
	case ErrForbidden:
		return "Доступ запрещен"
	case ErrConflict:
		return "Конфликт данных (например, дубликат)"
	case ErrTransport:
		return "Сервис временно недоступен"
	case ErrTooManyRequests:
		return "Слишком много запросов, попробуйте позже"
	case ErrInvalidLoginCreds:
		return "Неверная почта или пароль"
	case ErrLinkExists:
		return "Выбранный путь уже существует"
	case ErrInternal:
		return "Внутренняя ошибка сервера"
	default:
		return "Произошла ошибка"
	}
}

type envelope struct {
	Success bool        `json:"success"`
	Error   errorFields `json:"error"`
}

type errorFields struct {
	Code        ErrorCode `json:"code"`
	UserMessage string    `json:"user_message"`
	Details     string    `json:"details,omitempty"`
}

// WriteJSON отправляет ошибку в формате конверта upstream API:
// {"success":false,"error":{"code","user_message","details"}}
func WriteJSON(w http.ResponseWriter, err error) {
	e, ok := As(err)
	if !ok {
		e = Wrap(err, ErrInternal, "internal error")
		if e == nil {
			e = New(ErrInternal, "internal error")
		}
	}

	body, jsonErr := json.Marshal(envelope{
		Success: false,
		Error: errorFields{
			Code:        e.Code,
			UserMessage: e.GetUserMessage(),
			Details:     e.Details,
		},
	})

	w.Header().Set("Content-Type", "application/json")
	if jsonErr != nil {
		// Если не удалось сериализовать ответ, отправляем базовую ошибку
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","user_message":"Внутренняя ошибка сервера"}}`))
		return
	}

	w.WriteHeader(e.HTTPStatus())
	w.Write(body)
}
