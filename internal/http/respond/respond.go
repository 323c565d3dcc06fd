// Package respond padroniza o envelope JSON {data, error} de todas as rotas.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/recrutamento/internal/apperr"
)

// SuccessEnvelope padroniza respostas com dados.
type SuccessEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

// ErrorEnvelope padroniza respostas de erro.
type ErrorEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

var production atomic.Bool

// SetProduction ativa a ocultação de mensagens internas.
func SetProduction(enabled bool) {
	production.Store(enabled)
}

// JSON escreve envelope de sucesso.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Data: data, Error: nil})
}

// WriteError escreve envelope de erro e mantém formato consistente.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Data:  nil,
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// Error converte qualquer erro de domínio no envelope HTTP correspondente.
// Erros sem Kind são tratados como internos.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal(err)
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).Msg("falha ao processar pedido")
	}

	message := appErr.Error()
	details := appErr.Details
	if production.Load() && !appErr.Exposed() {
		message = "erro interno"
		details = nil
	}
	WriteError(w, status, appErr.Code(), message, details)
}

// Decode lê o corpo JSON rejeitando campos desconhecidos.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("payload vazio")
		}
		return apperr.Wrap(apperr.KindValidation, "payload inválido", err)
	}
	return nil
}
