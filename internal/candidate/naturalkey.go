package candidate

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion é a região usada para números sem indicativo.
const DefaultRegion = "PT"

// ErrInvalidPhone indica um telefone que não é possível interpretar.
var ErrInvalidPhone = errors.New("telefone inválido")

// NormalizePhone devolve o número em E.164.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}
	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// NaturalKey identifica duplicados: nome exato sem espaços nas pontas, e-mail
// em minúsculas e telefone em E.164.
func NaturalKey(nome, email, phoneE164 string) string {
	return strings.TrimSpace(nome) + "|" + strings.ToLower(strings.TrimSpace(email)) + "|" + phoneE164
}
