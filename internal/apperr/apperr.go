// Package apperr define a taxonomia de erros de domínio usada pelos serviços.
// Os handlers convertem cada Kind em status HTTP e código do envelope.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifica a falha.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindDependency
)

// Error é um erro de domínio com Kind para mapeamento HTTP.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details any
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus devolve o status correspondente ao Kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code devolve o código usado no envelope de erro.
func (e *Error) Code() string {
	switch e.Kind {
	case KindValidation:
		return "VALIDATION"
	case KindUnauthorized:
		return "AUTH"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindDependency:
		return "DEPENDENCY"
	default:
		return "INTERNAL"
	}
}

// Exposed indica se a mensagem pode ir para o cliente em produção.
func (e *Error) Exposed() bool {
	return e.Kind != KindInternal && e.Kind != KindDependency
}

// WithDetails anexa detalhes ao envelope.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

func Forbidden(message string) *Error { return New(KindForbidden, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

// Dependency sinaliza falha de armazenamento secundário ou sink externo.
func Dependency(message string, err error) *Error { return Wrap(KindDependency, message, err) }

// Internal embrulha uma falha inesperada.
func Internal(err error) *Error { return Wrap(KindInternal, "erro interno", err) }

// KindOf extrai o Kind de qualquer erro; erros sem tipo são internos.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is verifica se err carrega o Kind informado.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
