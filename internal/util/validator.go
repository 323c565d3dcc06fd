package util

import (
	"errors"
	"net/mail"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gestaozabele/recrutamento/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateStruct aplica as tags `validate` e devolve erro de validação com os
// campos rejeitados em details.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("payload inválido")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	msg := "campo inválido: " + verrs[0].Field()
	if verrs[0].Tag() == "required" {
		msg = verrs[0].Field() + " obrigatório"
	}
	return apperr.Validation(msg).WithDetails(fields)
}

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Validation("email obrigatório")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Validation("email inválido")
	}
	return nil
}

// NormalizeEmail remove espaços e converte para minúsculas.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Validation(field + " obrigatório")
	}
	return nil
}

// Contains indica se id está presente em ids.
func Contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AppendUnique acrescenta id apenas se ainda não existir.
func AppendUnique(ids []string, id string) []string {
	if id == "" || Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

// Remove devolve ids sem as ocorrências de id.
func Remove(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
