// Package errors classifies failures so callers can pick a user-facing response.
package errors

import (
	"errors"
	"fmt"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Error codes. The hundreds digit groups them: 1xx caller mistakes, 2xx storage, 3xx Telegram
// and other remotes, 4xx wizard state, 5xx throttling.
const (
	CodeValidation        = "E100"
	CodeSelfInteraction   = "E110"
	CodeActionUnavailable = "E111"
	CodeUnknownSender     = "E112"
	CodeDuplicateName     = "E120"
	CodeDatabase          = "E200"
	CodeExternalAPI       = "E300"
	CodeState             = "E400"
	CodeRateLimit         = "E500"
)

// AppError is a classified failure. Message is for logs; UserMessage may be shown in chat.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	RetryAfter  time.Duration // wait requested by the remote side, zero when unknown
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another AppError by code, so errors.Is(err, ErrValidation) holds for any
// NewValidationError result.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e != nil && t != nil && e.Code != "" && e.Code == t.Code
}

func expected(code, msg, userMsg string) *AppError {
	return &AppError{Code: code, Message: msg, UserMessage: userMsg, Severity: SeverityLow}
}

// Expected failures of the interaction and catalogue flows. They are never sent to Sentry.
var (
	ErrValidation        = expected(CodeValidation, "validation failed", "Неверный формат данных")
	ErrSelfInteraction   = expected(CodeSelfInteraction, "sender and receiver are the same user", "Нельзя отправить действие самому себе")
	ErrActionUnavailable = expected(CodeActionUnavailable, "action is not available", "Это действие больше недоступно")
	ErrUnknownSender     = expected(CodeUnknownSender, "sender is not registered", "Отправитель не найден")
	ErrDuplicateName     = expected(CodeDuplicateName, "action name already exists", "Действие с таким названием уже существует")
)

// IsExpected reports whether err carries a low-severity AppError.
func IsExpected(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Severity == SeverityLow
}

// CodeOf returns the code of the outermost AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Code
	}
	return ""
}

func NewValidationError(msg string) *AppError {
	return expected(CodeValidation, msg, ErrValidation.UserMessage+". "+msg)
}

func NewDuplicateNameError(name string, cause error) *AppError {
	e := expected(CodeDuplicateName, fmt.Sprintf("action name %q already exists", name), ErrDuplicateName.UserMessage)
	e.cause = cause
	return e
}

func NewActionUnavailableError(name string) *AppError {
	return expected(CodeActionUnavailable, fmt.Sprintf("action %q is not available", name), ErrActionUnavailable.UserMessage)
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "Операция невозможна в текущем состоянии",
		Severity:    SeverityMedium,
	}
}

// NewDatabaseError wraps a storage failure. It is retryable and reported.
func NewDatabaseError(cause error) *AppError {
	msg := "database error"
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &AppError{
		Code:        CodeDatabase,
		Message:     msg,
		UserMessage: "Временная проблема, попробуйте позже",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(api string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternalAPI,
		Message:     "external api error: " + api,
		UserMessage: "Сервис временно недоступен",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewRateLimitError is not retryable by WithRetry; queue workers read RetryAfter instead.
func NewRateLimitError(seconds int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("rate limit exceeded: retry after %ds", seconds),
		UserMessage: fmt.Sprintf("Слишком много запросов. Попробуйте через %d секунд", seconds),
		Severity:    SeverityLow,
		RetryAfter:  time.Duration(seconds) * time.Second,
	}
}
