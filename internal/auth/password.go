package auth

import (
	"errors"

	"github.com/alexedwards/argon2id"
)

// ErrWeakPassword indica senha abaixo do mínimo aceite.
var ErrWeakPassword = errors.New("senha deve ter pelo menos 8 caracteres")

var params = &argon2id.Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword valida o tamanho mínimo e gera um hash Argon2id.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", ErrWeakPassword
	}
	return argon2id.CreateHash(password, params)
}

// VerifyPassword compara a senha com o hash Argon2id.
func VerifyPassword(password, encodedHash string) bool {
	if encodedHash == "" {
		return false
	}
	ok, err := argon2id.ComparePasswordAndHash(password, encodedHash)
	return err == nil && ok
}
