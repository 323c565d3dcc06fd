package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidRefresh é retornado quando o token de refresh é inválido ou expirado.
var ErrInvalidRefresh = errors.New("refresh token inválido")

// RefreshStore guarda refresh tokens opacos no Redis, apenas pelo hash.
type RefreshStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRefreshStore cria o armazenamento com a validade configurada.
func NewRefreshStore(client *redis.Client, ttl time.Duration) *RefreshStore {
	return &RefreshStore{redis: client, ttl: ttl}
}

// Issue gera um token novo para o utilizador.
func (s *RefreshStore) Issue(ctx context.Context, userID string) (string, error) {
	raw, hashed, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	if err := s.redis.Set(ctx, refreshKey(hashed), userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	return raw, nil
}

// Rotate consome o token atual e devolve o utilizador dono dele.
// Um token só pode ser usado uma vez.
func (s *RefreshStore) Rotate(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidRefresh
	}
	userID, err := s.redis.GetDel(ctx, refreshKey(hashRefreshToken(raw))).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidRefresh
	}
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	return userID, nil
}

// Revoke invalida o token, se existir.
func (s *RefreshStore) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return s.redis.Del(ctx, refreshKey(hashRefreshToken(raw))).Err()
}

func generateRefreshToken() (raw string, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}

	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, hashRefreshToken(raw), nil
}

func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func refreshKey(hash string) string {
	return "refresh:rh:" + hash
}
