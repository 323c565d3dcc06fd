package util

import "github.com/google/uuid"

// NewID gera um UUID v4 em texto, usado como chave primária em todas as tabelas.
func NewID() string {
	return uuid.NewString()
}

// ValidID indica se o valor é um UUID bem formado.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
