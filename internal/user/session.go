package user

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/recrutamento/internal/apperr"
	"github.com/gestaozabele/recrutamento/internal/auth"
	"github.com/gestaozabele/recrutamento/internal/rbac"
	"github.com/gestaozabele/recrutamento/internal/repo"
	"github.com/gestaozabele/recrutamento/internal/util"
)

// Session é o par de tokens devolvido ao cliente.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         *User  `json:"user"`
}

// AuthService concentra login, refresh, logout e o arranque do primeiro Admin.
type AuthService struct {
	users   *Service
	jwt     *auth.JWTManager
	refresh *auth.RefreshStore
}

func NewAuthService(users *Service, jwtManager *auth.JWTManager, refresh *auth.RefreshStore) *AuthService {
	return &AuthService{users: users, jwt: jwtManager, refresh: refresh}
}

// Bootstrap cria o primeiro Admin quando ainda não há utilizadores.
func (a *AuthService) Bootstrap(ctx context.Context, in CreateInput) (*User, error) {
	in.Departamento = ""
	in.BrokerEquipaID = ""
	u, err := a.users.newUser(ctx, in, rbac.RoleAdmin, "")
	if err != nil {
		return nil, err
	}
	u.Historico[0].Autor = u.ID

	if err := a.users.store.CreateFirstAdmin(ctx, u); err != nil {
		if errors.Is(err, ErrAlreadyBootstrapped) {
			return nil, apperr.Forbidden("já existem utilizadores registados")
		}
		return nil, apperr.Internal(err)
	}
	a.users.mirror.Replicate(ctx, mirrorTable, u.MirrorRow())
	log.Info().Str("usuario_id", u.ID).Msg("primeiro administrador criado")
	return u, nil
}

// Login autentica por e-mail e senha.
func (a *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := a.users.store.GetByEmail(ctx, util.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: utilizador não encontrado")
			return nil, apperr.Unauthorized("credenciais inválidas")
		}
		return nil, apperr.Internal(err)
	}
	if !auth.VerifyPassword(password, u.SenhaHash) {
		log.Warn().Str("usuario_id", u.ID).Msg("login: senha inválida")
		return nil, apperr.Unauthorized("credenciais inválidas")
	}
	if !u.Active() {
		return nil, apperr.Unauthorized("conta desativada")
	}

	session, err := a.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	now := a.users.now().UTC()
	if err := a.users.store.TouchLogin(ctx, u.ID, now); err != nil {
		log.Warn().Err(err).Str("usuario_id", u.ID).Msg("login: falha ao registar último acesso")
	}
	u.UltimoLogin = &now
	return session, nil
}

// Refresh troca um refresh token válido por uma nova sessão. O token antigo
// deixa de ser válido.
func (a *AuthService) Refresh(ctx context.Context, raw string) (*Session, error) {
	userID, err := a.refresh.Rotate(ctx, raw)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefresh) {
			return nil, apperr.Unauthorized("refresh token inválido")
		}
		return nil, apperr.Internal(err)
	}
	u, err := a.users.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.Unauthorized("refresh token inválido")
		}
		return nil, apperr.Internal(err)
	}
	if !u.Active() {
		return nil, apperr.Unauthorized("conta desativada")
	}
	return a.issue(ctx, u)
}

// Logout revoga o refresh token.
func (a *AuthService) Logout(ctx context.Context, userID, raw string) error {
	if raw != "" {
		if err := a.refresh.Revoke(ctx, raw); err != nil {
			return apperr.Internal(err)
		}
	}
	log.Info().Str("usuario_id", userID).Time("at", time.Now().UTC()).Msg("logout")
	return nil
}

func (a *AuthService) issue(ctx context.Context, u *User) (*Session, error) {
	access, err := a.jwt.GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refresh, err := a.refresh.Issue(ctx, u.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(a.jwt.AccessTTL().Seconds()),
		User:         u,
	}, nil
}
